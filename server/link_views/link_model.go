// link_views contains views derived from the Link view-model: anchor
// elements whose display values are computed from raw link properties and
// kept consistent with the page through the syncview synchronizer.
package link_views

import (
	"fmt"

	"linkboard/models"
)

// Link is the display-ready view-model for one anchor. As a rule of thumb,
// Link fields should be immediately usable as raw view properties; derived
// values (joined rel lists, dropped hrefs) belong to the computed entries,
// not here.
type Link struct {
	Id       string
	Label    string
	Href     string
	Target   string
	Rel      []string
	Ping     []string
	Download string
	Tooltip  string
	Disabled bool
}

// Convert transforms service probe results into Links for the link views.
func Convert(services []models.Service) (links []Link) {
	links = make([]Link, 0, len(services))
	for _, svc := range services {
		links = append(links, Link{
			Id:       svc.Name,
			Label:    svc.Name,
			Href:     svc.Href,
			Target:   svc.Target,
			Rel:      svc.Rel,
			Ping:     svc.Ping,
			Download: svc.Download,
			Tooltip:  getTooltip(svc),
			Disabled: !svc.Up,
		})
	}
	return
}

func getTooltip(svc models.Service) string {
	if !svc.Up {
		return "unreachable"
	}
	if svc.Checks == 0 {
		return ""
	}
	return fmt.Sprintf("avg %.1fms, max %.1fms over %d checks",
		svc.LatencyMs, svc.MaxLatencyMs, svc.Checks)
}
