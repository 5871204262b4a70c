package server

import (
	"fmt"
	"time"

	"linkboard/models"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	defaultPublishRate   = time.Millisecond * 100
	defaultPingRate      = time.Millisecond * 200
	defaultProbeInterval = time.Millisecond * 250
)

// Config is the resolved runtime configuration. Addr comes from flags;
// everything else from the yaml board spec.
type Config struct {
	Addr          string
	PublishRate   time.Duration
	PingRate      time.Duration
	ProbeInterval time.Duration
	EscapeHTML    bool
	Services      []models.Service
}

// InitialServices returns the configured services marked up, for the cold
// page render before the first probe results arrive.
func (cfg *Config) InitialServices() []models.Service {
	services := make([]models.Service, len(cfg.Services))
	for i, svc := range cfg.Services {
		svc.Up = true
		services[i] = svc
	}
	return services
}

// The yaml file nests the board spec under a single top-level key, read
// loosely via viper and then strictly re-decoded through yaml tags.
type outerConfig struct {
	Spec map[string]any `mapstructure:"linkboard"`
}

// Tags are lowercase because viper normalizes key case before the spec is
// re-marshalled; the file itself may use camelCase.
type boardSpec struct {
	PublishRate   string           `yaml:"publishrate"`
	PingRate      string           `yaml:"pingrate"`
	ProbeInterval string           `yaml:"probeinterval"`
	EscapeHTML    *bool            `yaml:"escapehtml"`
	Services      []models.Service `yaml:"services"`
}

// FromYaml reads the board config at path.
func FromYaml(path string) (*Config, error) {
	vp := viper.New()
	// An explicit file disables viper's search paths, so pass the full
	// path; resolving relative to the cwd would break the -config flag.
	vp.SetConfigFile(path)
	vp.SetConfigType("yaml")
	if err := vp.ReadInConfig(); err != nil {
		return nil, err
	}

	outer := &outerConfig{}
	if err := vp.Unmarshal(outer); err != nil {
		return nil, err
	}

	spec, err := yaml.Marshal(outer.Spec)
	if err != nil {
		return nil, err
	}
	board := &boardSpec{}
	if err = yaml.Unmarshal(spec, board); err != nil {
		return nil, err
	}

	cfg := &Config{
		// Escaping defaults on; it must be disabled deliberately.
		EscapeHTML: board.EscapeHTML == nil || *board.EscapeHTML,
		Services:   board.Services,
	}
	if cfg.PublishRate, err = durationOr(board.PublishRate, defaultPublishRate); err != nil {
		return nil, fmt.Errorf("publishRate: %w", err)
	}
	if cfg.PingRate, err = durationOr(board.PingRate, defaultPingRate); err != nil {
		return nil, fmt.Errorf("pingRate: %w", err)
	}
	if cfg.ProbeInterval, err = durationOr(board.ProbeInterval, defaultProbeInterval); err != nil {
		return nil, fmt.Errorf("probeInterval: %w", err)
	}
	if len(cfg.Services) == 0 {
		return nil, fmt.Errorf("config %q declares no services", path)
	}
	return cfg, nil
}

func durationOr(val string, fallback time.Duration) (time.Duration, error) {
	if val == "" {
		return fallback, nil
	}
	return time.ParseDuration(val)
}
