/*
Linkboard is a single page application serving a live board of anchor
links for a set of monitored services. The page is rendered once per
request; thereafter the server pushes per-attribute element updates over a
websocket as probe results change, so the browser never re-renders the
page. The interesting machinery is in prop_cache (computed display values
with dependency-tracked invalidation) and server/syncview (the cold-render
versus warm-patch synchronizer); everything else is wiring.
*/
package main

import (
	"context"
	"flag"
	"log"

	"linkboard/monitor"
	"linkboard/server"
)

var (
	host       *string
	port       *string
	configPath *string
	addr       string
)

func init() {
	host = flag.String("host", "", "the host ip")
	port = flag.String("port", "8080", "the host port")
	configPath = flag.String("config", "./config.yaml", "path to the board config")
	flag.Parse()
	addr = *host + ":" + *port
}

func runApp() (err error) {
	var cfg *server.Config
	if cfg, err = server.FromYaml(*configPath); err != nil {
		return
	}
	cfg.Addr = addr

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	mon := monitor.New(cfg.Services)
	go mon.Run(appCtx, cfg.ProbeInterval)

	var srv *server.Server
	if srv, err = server.NewServer(appCtx, cfg, mon.Updates()); err != nil {
		return
	}

	log.Println("serving on", addr)
	return srv.Serve()
}

func main() {
	if err := runApp(); err != nil {
		log.Fatal(err)
	}
}
