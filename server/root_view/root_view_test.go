package root_view

import (
	"context"
	"html/template"
	"strings"
	"testing"
	"time"

	"linkboard/models"
	"linkboard/server/syncview"

	. "github.com/smartystreets/goconvey/convey"
)

func TestBatchify(t *testing.T) {
	Convey("When updates are batched", t, func() {
		Convey("When several updates target the same element within a frame", func() {
			done := make(chan struct{})
			defer close(done)
			source := make(chan []syncview.EleUpdate)
			output := batchify(done, source, time.Millisecond*50)

			stale := syncview.EleUpdate{EleId: "x", Ops: []syncview.Op{{Kind: syncview.OpSetText, Value: "old"}}}
			fresh := syncview.EleUpdate{EleId: "x", Ops: []syncview.Op{{Kind: syncview.OpSetText, Value: "new"}}}

			source <- []syncview.EleUpdate{stale}
			source <- []syncview.EleUpdate{fresh}

			select {
			case batch := <-output:
				// Latest wins within the frame.
				So(len(batch), ShouldEqual, 1)
				So(batch[0], ShouldResemble, fresh)
			case <-time.After(time.Second):
				So("timed out awaiting batch", ShouldBeEmpty)
			}
		})

		Convey("When the source goes quiet after a burst", func() {
			done := make(chan struct{})
			defer close(done)
			source := make(chan []syncview.EleUpdate)
			output := batchify(done, source, time.Millisecond*10)

			last := syncview.EleUpdate{EleId: "x", Ops: []syncview.Op{{Kind: syncview.OpSetText, Value: "final"}}}
			source <- []syncview.EleUpdate{last}

			// No further sends: the flush ticker must still deliver it.
			select {
			case batch := <-output:
				So(len(batch), ShouldEqual, 1)
				So(batch[0], ShouldResemble, last)
			case <-time.After(time.Second):
				So("timed out awaiting flush", ShouldBeEmpty)
			}
		})
	})
}

func TestRootViewParse(t *testing.T) {
	Convey("When the root view is parsed", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates := make(chan []models.Service)
		rv := NewRootView(ctx, updates, syncview.NewEscapePolicy(true))

		t0 := template.New("index.html")
		name, err := rv.Parse(t0)
		So(err, ShouldBeNil)
		So(name, ShouldEqual, "mainpage")

		_, err = t0.Parse(`{{ template "` + name + `" . }}`)
		So(err, ShouldBeNil)

		var sb strings.Builder
		err = t0.Execute(&sb, nil)
		So(err, ShouldBeNil)
		So(sb.String(), ShouldContainSubstring, "new WebSocket")
		So(sb.String(), ShouldContainSubstring, `id="linkboard"`)
	})
}
