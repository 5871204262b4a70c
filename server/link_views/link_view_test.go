package link_views

import (
	"html/template"
	"strings"
	"testing"
	"time"

	"linkboard/models"
	"linkboard/server/syncview"

	. "github.com/smartystreets/goconvey/convey"
)

func testLink() Link {
	return Link{
		Id:    "api",
		Label: "api",
		Href:  "https://api.example.net/healthz",
	}
}

func TestConvert(t *testing.T) {
	Convey("When services are converted to links", t, func() {
		Convey("When a service is up", func() {
			links := Convert([]models.Service{{
				Name:         "api",
				Href:         "https://api.example.net/healthz",
				Up:           true,
				LatencyMs:    12.34,
				MaxLatencyMs: 20.0,
				Checks:       7,
			}})
			So(len(links), ShouldEqual, 1)
			So(links[0].Disabled, ShouldBeFalse)
			So(links[0].Tooltip, ShouldEqual, "avg 12.3ms, max 20.0ms over 7 checks")
		})

		Convey("When a service is down", func() {
			links := Convert([]models.Service{{Name: "api", Up: false}})
			So(links[0].Disabled, ShouldBeTrue)
			So(links[0].Tooltip, ShouldEqual, "unreachable")
		})
	})
}

func TestLinkViewUpdates(t *testing.T) {
	Convey("When the link view receives view-model updates", t, func() {
		done := make(chan struct{})
		defer close(done)
		links := make(chan []Link)
		lv := NewLinkView(done, links, syncview.NewEscapePolicy(true))

		Convey("When a link is seen for the first time", func() {
			updates := lv.onUpdate([]Link{testLink()})
			So(len(updates), ShouldEqual, 1)
			So(updates[0].EleId, ShouldEqual, "linkboard-api")
			So(updates[0].Ops, ShouldResemble, []syncview.Op{
				{Kind: syncview.OpSetAttr, Key: "href", Value: "https://api.example.net/healthz"},
				{Kind: syncview.OpSetText, Value: "api"},
			})
		})

		Convey("When the same link arrives twice", func() {
			_ = lv.onUpdate([]Link{testLink()})
			updates := lv.onUpdate([]Link{testLink()})
			So(updates, ShouldBeEmpty)
		})

		Convey("When only the tooltip changes", func() {
			_ = lv.onUpdate([]Link{testLink()})

			changed := testLink()
			changed.Tooltip = "avg 9.9ms, max 12.0ms over 3 checks"
			updates := lv.onUpdate([]Link{changed})
			So(len(updates), ShouldEqual, 1)
			So(updates[0].Ops, ShouldResemble, []syncview.Op{
				{Kind: syncview.OpSetAttr, Key: "title", Value: changed.Tooltip},
			})
		})

		Convey("When a link goes down", func() {
			_ = lv.onUpdate([]Link{testLink()})

			downed := testLink()
			downed.Disabled = true
			downed.Tooltip = "unreachable"
			updates := lv.onUpdate([]Link{downed})
			So(len(updates), ShouldEqual, 1)
			// The dead link drops its href and flags its label.
			So(updates[0].Ops, ShouldResemble, []syncview.Op{
				{Kind: syncview.OpRemoveAttr, Key: "href"},
				{Kind: syncview.OpSetAttr, Key: "title", Value: "unreachable"},
				{Kind: syncview.OpSetText, Value: "api (down)"},
			})
		})

		Convey("When a link targets a new window", func() {
			blank := testLink()
			blank.Target = "_blank"
			blank.Rel = []string{"external"}
			updates := lv.onUpdate([]Link{blank})
			So(len(updates), ShouldEqual, 1)

			var rel string
			for _, op := range updates[0].Ops {
				if op.Key == "rel" {
					rel = op.Value
				}
			}
			So(rel, ShouldEqual, "external noopener")
		})

		Convey("When updates flow through the channel", func() {
			go func() { links <- []Link{testLink()} }()
			select {
			case updates := <-lv.Updates():
				So(len(updates), ShouldEqual, 1)
				So(updates[0].EleId, ShouldEqual, "linkboard-api")
			case <-time.After(time.Second):
				So("timed out awaiting link updates", ShouldBeEmpty)
			}
		})
	})
}

func TestLinkViewParse(t *testing.T) {
	Convey("When the link view is cold-rendered", t, func() {
		done := make(chan struct{})
		defer close(done)
		lv := NewLinkView(done, make(chan []Link), syncview.NewEscapePolicy(true))

		t0 := template.New("index.html")
		name, err := lv.Parse(t0)
		So(err, ShouldBeNil)

		_, err = t0.Parse(`{{ template "` + name + `" . }}`)
		So(err, ShouldBeNil)

		Convey("When the page executes with the current links", func() {
			var sb strings.Builder
			err := t0.Execute(&sb, []Link{testLink()})
			So(err, ShouldBeNil)
			So(sb.String(), ShouldContainSubstring,
				`<a id="linkboard-api" class="monitor-link" href="https://api.example.net/healthz">api</a>`)
		})

		Convey("When a label carries markup and escaping is on", func() {
			hostile := testLink()
			hostile.Label = "<b>hi</b>"
			var sb strings.Builder
			err := t0.Execute(&sb, []Link{hostile})
			So(err, ShouldBeNil)
			So(sb.String(), ShouldContainSubstring, "&lt;b&gt;hi&lt;/b&gt;")
			So(sb.String(), ShouldNotContainSubstring, "<b>hi</b>")
		})
	})
}
