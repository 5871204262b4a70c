// root_view assembles the page: it builds the views, fans their
// ele-update channels into one batched stream, and owns the index
// template with the websocket bootstrap script.
package root_view

import (
	"context"
	"html/template"
	"log"
	"time"

	"linkboard/models"
	"linkboard/server/link_views"
	"linkboard/server/syncview"

	channerics "github.com/niceyeti/channerics/channels"
)

// RootView is the main page: the container for all the view components
// and the wiring for their channels.
type RootView struct {
	views   []syncview.ViewComponent
	updates <-chan []syncview.EleUpdate
}

// NewRootView creates the main page and the views it contains. The escape
// policy is decided once here and threaded through every view, so all
// text-producing paths share the one decision point.
func NewRootView(
	ctx context.Context,
	serviceUpdates <-chan []models.Service,
	policy syncview.EscapePolicy,
) *RootView {
	views, err := syncview.NewViewBuilder[[]models.Service, []link_views.Link]().
		WithContext(ctx).
		WithModel(serviceUpdates, link_views.Convert).
		WithView(func(
			done <-chan struct{},
			links <-chan []link_views.Link) syncview.ViewComponent {
			return link_views.NewLinkView(done, links, policy)
		}).
		Build()
	if err != nil {
		log.Fatal(err)
	}

	return &RootView{
		views:   views,
		updates: fanIn(ctx.Done(), views),
	}
}

// Updates returns the batched ele-update channel for all the views.
func (rv *RootView) Updates() <-chan []syncview.EleUpdate {
	return rv.updates
}

// Parse builds the main page's template, with the websocket bootstrap
// code, and returns its name. The script applies each op by kind: set an
// attribute, remove an attribute, or replace text content. These are the
// only mutations the server ever asks of a live element.
func (rv *RootView) Parse(
	parent *template.Template,
) (name string, err error) {
	viewTemplates := []string{}
	for _, vc := range rv.views {
		var tname string
		if tname, err = vc.Parse(parent); err != nil {
			return
		}
		viewTemplates = append(viewTemplates, tname)
	}

	var bodySpec string
	for _, tname := range viewTemplates {
		bodySpec += (`{{ template "` + tname + `" . }}`)
	}

	name = "mainpage"
	indexTemplate := `
	{{ define "` + name + `" }}
	<!DOCTYPE html>
	<html>
		<head>
			<link rel="icon" href="data:,">
			<!--The server pushes ele-updates to this page via websocket.-->
			<script>
				const ws = new WebSocket("ws://" + location.host + "/ws");
				ws.onerror = function (event) {
					console.log('WebSocket error: ', event);
				};

				ws.onmessage = function (event) {
					const items = JSON.parse(event.data)
					for (const update of items) {
						const ele = document.getElementById(update.EleId)
						if (!ele) continue
						for (const op of update.Ops) {
							if (op.Kind === 2) {
								ele.textContent = op.Value
							} else if (op.Kind === 1) {
								ele.removeAttribute(op.Key)
							} else {
								ele.setAttribute(op.Key, op.Value)
							}
						}
					}
				}
			</script>
		</head>
		<body>
		` + bodySpec + `
		</body></html>
	{{ end }}
	`

	_, err = parent.Parse(indexTemplate)
	return
}

// fanIn aggregates the views' ele-update channels into a single batched
// channel.
func fanIn(
	done <-chan struct{},
	views []syncview.ViewComponent,
) <-chan []syncview.EleUpdate {
	inputs := make([]<-chan []syncview.EleUpdate, len(views))
	for i, view := range views {
		inputs[i] = view.Updates()
	}
	return batchify(
		done,
		channerics.Merge(done, inputs...),
		time.Millisecond*20)
}

// batchify batches updates within the passed time frame before sending.
// A later update for an ele-id overwrites an earlier one in the same
// frame: updates are idempotent, so only the latest matters. A flush
// ticker drains the pending batch even when the source goes quiet, so
// the last state change of a burst always reaches the page.
func batchify(
	done <-chan struct{},
	source <-chan []syncview.EleUpdate,
	rate time.Duration,
) <-chan []syncview.EleUpdate {
	output := make(chan []syncview.EleUpdate)

	go func() {
		defer close(output)

		data := map[string]syncview.EleUpdate{}
		flush := channerics.NewTicker(done, rate)
		incoming := channerics.OrDone(done, source)
		for {
			select {
			case updates, ok := <-incoming:
				if !ok {
					return
				}
				for _, update := range updates {
					data[update.EleId] = update
				}
			case <-flush:
				if len(data) == 0 {
					continue
				}
				select {
				case output <- slicedVals(data):
					data = map[string]syncview.EleUpdate{}
				case <-done:
					return
				}
			}
		}
	}()

	return output
}

// returns the values of a map as a slice
func slicedVals[T1 comparable, T2 any](mp map[T1]T2) (sliced []T2) {
	for _, v := range mp {
		sliced = append(sliced, v)
	}
	return
}
