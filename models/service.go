// models holds the data-model shared by the monitor, which produces it,
// and the views, which consume it.
package models

// Service is one monitored endpoint: its declared link identity plus the
// latest probe results. Identity fields come from config; Up, latency and
// Checks are overwritten by the monitor on every snapshot.
type Service struct {
	Name     string   `yaml:"name"`
	Href     string   `yaml:"href"`
	Target   string   `yaml:"target"`
	Rel      []string `yaml:"rel"`
	Ping     []string `yaml:"ping"`
	Download string   `yaml:"download"`

	Up           bool    `yaml:"-"`
	LatencyMs    float64 `yaml:"-"`
	MaxLatencyMs float64 `yaml:"-"`
	Checks       int     `yaml:"-"`
}
