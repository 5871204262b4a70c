package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `
linkboard:
  publishRate: 50ms
  pingRate: 100ms
  probeInterval: 1s
  escapeHtml: false
  services:
    - name: api
      href: https://api.example.net/healthz
      target: _blank
      rel: [external]
    - name: docs
      href: https://docs.example.net/
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFromYaml(t *testing.T) {
	Convey("When the board config is loaded", t, func() {
		Convey("When all fields are present", func() {
			cfg, err := FromYaml(writeConfig(t, testConfig))
			So(err, ShouldBeNil)
			So(cfg.PublishRate, ShouldEqual, 50*time.Millisecond)
			So(cfg.PingRate, ShouldEqual, 100*time.Millisecond)
			So(cfg.ProbeInterval, ShouldEqual, time.Second)
			So(cfg.EscapeHTML, ShouldBeFalse)
			So(len(cfg.Services), ShouldEqual, 2)
			So(cfg.Services[0].Name, ShouldEqual, "api")
			So(cfg.Services[0].Rel, ShouldResemble, []string{"external"})
		})

		Convey("When optional fields are omitted", func() {
			cfg, err := FromYaml(writeConfig(t, `
linkboard:
  services:
    - name: api
      href: https://api.example.net/healthz
`))
			So(err, ShouldBeNil)
			So(cfg.PublishRate, ShouldEqual, defaultPublishRate)
			So(cfg.PingRate, ShouldEqual, defaultPingRate)
			So(cfg.ProbeInterval, ShouldEqual, defaultProbeInterval)
			// Escaping defaults on.
			So(cfg.EscapeHTML, ShouldBeTrue)
		})

		Convey("When the config lives outside the working directory", func() {
			// The -config flag accepts arbitrary paths; loading must not
			// resolve relative to the process cwd.
			dir := filepath.Join(t.TempDir(), "etc", "linkboard")
			So(os.MkdirAll(dir, 0755), ShouldBeNil)
			path := filepath.Join(dir, "board.yaml")
			So(os.WriteFile(path, []byte(testConfig), 0644), ShouldBeNil)

			cfg, err := FromYaml(path)
			So(err, ShouldBeNil)
			So(len(cfg.Services), ShouldEqual, 2)
		})

		Convey("When no services are declared", func() {
			_, err := FromYaml(writeConfig(t, "linkboard:\n  publishRate: 50ms\n"))
			So(err, ShouldNotBeNil)
		})

		Convey("When a duration fails to parse", func() {
			_, err := FromYaml(writeConfig(t, `
linkboard:
  publishRate: fast
  services:
    - name: api
      href: https://api.example.net/healthz
`))
			So(err, ShouldNotBeNil)
		})

		Convey("When initial services are requested", func() {
			cfg, err := FromYaml(writeConfig(t, testConfig))
			So(err, ShouldBeNil)
			for _, svc := range cfg.InitialServices() {
				So(svc.Up, ShouldBeTrue)
			}
		})
	})
}
