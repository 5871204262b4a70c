package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"linkboard/models"

	. "github.com/smartystreets/goconvey/convey"
)

func TestServeIndex(t *testing.T) {
	Convey("When the index page is served", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := &Config{
			Addr:        ":0",
			PublishRate: defaultPublishRate,
			PingRate:    defaultPingRate,
			EscapeHTML:  true,
			Services: []models.Service{
				{Name: "api", Href: "https://api.example.net/healthz"},
			},
		}
		updates := make(chan []models.Service)
		srv, err := NewServer(ctx, cfg, updates)
		So(err, ShouldBeNil)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		srv.serveIndex(rec, req)

		So(rec.Code, ShouldEqual, http.StatusOK)
		So(rec.Header().Get("Content-Type"), ShouldEqual, "text/html")
		body := rec.Body.String()
		// The cold render carries the configured links and the warm-path bootstrap.
		So(body, ShouldContainSubstring, `id="linkboard-api"`)
		So(body, ShouldContainSubstring, "new WebSocket")
	})
}
