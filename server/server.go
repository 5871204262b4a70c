// server serves the link board: a single page cold-rendered per request,
// kept live thereafter by ele-updates pushed over a websocket. The
// ele-update channel is a single stream, so as with any prototype of this
// shape the page serves one live client at a time; muxing the stream to
// multiple clients is the first step toward a real deployment.
package server

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"time"

	"linkboard/models"
	"linkboard/server/link_views"
	"linkboard/server/root_view"
	"linkboard/server/syncview"

	"github.com/gorilla/mux"
)

type Server struct {
	addr     string
	pubRate  time.Duration
	pingRate time.Duration
	// The initial view-model for cold renders before probe results arrive.
	lastUpdate []link_views.Link
	rootView   *root_view.RootView
}

// NewServer builds all of the views and returns a server.
func NewServer(
	ctx context.Context,
	cfg *Config,
	serviceUpdates <-chan []models.Service,
) (*Server, error) {
	rootView := root_view.NewRootView(
		ctx,
		serviceUpdates,
		syncview.NewEscapePolicy(cfg.EscapeHTML))

	return &Server{
		addr:       cfg.Addr,
		pubRate:    cfg.PublishRate,
		pingRate:   cfg.PingRate,
		lastUpdate: link_views.Convert(cfg.InitialServices()),
		rootView:   rootView,
	}, nil
}

func (server *Server) Serve() (err error) {
	router := mux.NewRouter()
	router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	router.HandleFunc("/ws", server.serveWebsocket)

	if err = http.ListenAndServe(server.addr, router); err != nil {
		err = fmt.Errorf("serve: %w", err)
	}

	return
}

// serveWebsocket publishes view updates to the client until disconnect.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := NewClient(
		server.rootView.Updates(),
		w, r,
		server.pubRate,
		server.pingRate)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}

	if err := cli.Sync(); err != nil {
		log.Println("websocket:", err)
	}
}

// Serve the index main page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")

	if err := renderTemplate(w, server.rootView, server.lastUpdate); err != nil {
		_, _ = w.Write([]byte(err.Error()))
	}
}

func renderTemplate(
	w io.Writer,
	vc syncview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}
