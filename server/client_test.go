package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"linkboard/server/syncview"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClientReadLimit(t *testing.T) {
	Convey("When a peer sends an oversized message", t, func() {
		synced := make(chan error, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			updates := make(chan []syncview.EleUpdate)
			cli, err := NewClient(updates, w, r, time.Millisecond*10, time.Millisecond*50)
			if err != nil {
				synced <- err
				return
			}
			synced <- cli.Sync()
		}))
		defer srv.Close()

		wsUrl := "ws" + strings.TrimPrefix(srv.URL, "http")
		conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		// Keep reading so the default ping handler answers the server's
		// liveness pings; only the oversized message may tear us down.
		go func() {
			for {
				if _, _, readErr := conn.ReadMessage(); readErr != nil {
					return
				}
			}
		}()

		err = conn.WriteMessage(websocket.TextMessage, make([]byte, maxMessageSize+1))
		So(err, ShouldBeNil)

		select {
		case err := <-synced:
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "read limit")
		case <-time.After(time.Second * 2):
			So("timed out awaiting teardown", ShouldBeEmpty)
		}
	})
}
