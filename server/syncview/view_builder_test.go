package syncview

import (
	"context"
	"html/template"
	"strconv"
	"testing"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

type stubView struct {
	updates <-chan []EleUpdate
}

func (v *stubView) Updates() <-chan []EleUpdate {
	return v.updates
}

func (v *stubView) Parse(t *template.Template) (string, error) {
	return "stub", nil
}

func TestViewBuilder(t *testing.T) {
	Convey("When views are built", t, func() {
		Convey("When the builder succeeds", func() {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			input := make(chan int)
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(input, strconv.Itoa).
				WithView(func(done <-chan struct{}, vms <-chan string) ViewComponent {
					return &stubView{
						updates: channerics.Convert(done, vms, func(s string) []EleUpdate {
							return []EleUpdate{{EleId: s}}
						}),
					}
				}).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 1)

			go func() { input <- 42 }()
			select {
			case updates := <-views[0].Updates():
				So(len(updates), ShouldEqual, 1)
				So(updates[0].EleId, ShouldEqual, "42")
			case <-time.After(time.Second):
				So("timed out awaiting view update", ShouldBeEmpty)
			}
		})

		Convey("When no views were added", func() {
			input := make(chan int)
			_, err := NewViewBuilder[int, string]().
				WithModel(input, strconv.Itoa).
				Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("When no model was set", func() {
			_, err := NewViewBuilder[int, string]().
				WithView(func(done <-chan struct{}, vms <-chan string) ViewComponent {
					return &stubView{}
				}).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})
	})
}
