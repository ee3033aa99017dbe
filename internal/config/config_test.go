package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Defaults", func(c *Config) {}, ""},
		{"Unknown mode", func(c *Config) { c.Service.Mode = "grpc" }, "service mode"},
		{"Port out of range", func(c *Config) { c.Web.Port = 70000 }, "web port"},
		{"Port ignored for pipe mode", func(c *Config) { c.Service.Mode = ModePipe; c.Web.Port = 0 }, ""},
		{"Empty host", func(c *Config) { c.Web.Host = "" }, "web host"},
		{"No pipe path", func(c *Config) { c.Service.Name = ""; c.Pipe.Path = "" }, "pipe path"},
		{"Poll too fast", func(c *Config) { c.Tracker.PollInterval = time.Millisecond }, "less than minimum"},
		{"Poll too slow", func(c *Config) { c.Tracker.PollInterval = time.Hour }, "greater than maximum"},
		{"Unknown desktop source", func(c *Config) { c.Tracker.DesktopSource = "quartz" }, "desktop source"},
		{"Unknown session source", func(c *Config) { c.Tracker.SessionSource = "pam" }, "session source"},
		{"Unknown log level", func(c *Config) { c.Log.Level = "trace" }, "log level"},
		{"No PID file", func(c *Config) { c.Daemon.PIDFile = "" }, "PID file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestPipePath(t *testing.T) {
	cfg := Default()
	if got := cfg.PipePath(); filepath.Base(got) != "vdtime-core.sock" {
		t.Errorf("PipePath() = %s, want a vdtime-core.sock path", got)
	}

	cfg.Pipe.Path = "/tmp/custom.sock"
	if got := cfg.PipePath(); got != "/tmp/custom.sock" {
		t.Errorf("PipePath() = %s, want /tmp/custom.sock", got)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
[service]
mode = "REST"

[web]
port = 5059

[tracker]
poll_interval = "5s"
desktop_source = "wayland"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	want := Default()
	want.Service.Mode = ModeRest
	want.Web.Port = 5059
	want.Tracker.PollInterval = 5 * time.Second
	want.Tracker.DesktopSource = SourceWayland

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Load() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "[web]\nport = 5059\n")
	t.Setenv("VDTIME_WEB_PORT", "6001")
	t.Setenv("VDTIME_SERVICE_MODE", "pipe")
	t.Setenv("VDTIME_TRACKER_POLL_INTERVAL", "10s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Web.Port != 6001 {
		t.Errorf("Web.Port = %d, want 6001", cfg.Web.Port)
	}
	if cfg.Service.Mode != ModePipe {
		t.Errorf("Service.Mode = %s, want pipe", cfg.Service.Mode)
	}
	if cfg.Tracker.PollInterval != 10*time.Second {
		t.Errorf("Tracker.PollInterval = %v, want 10s", cfg.Tracker.PollInterval)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("Load() of a missing explicit file succeeded")
	}

	path := writeConfig(t, "[tracker]\npoll_interval = \"1h\"\n")
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted an out of range poll interval")
	}

	path = writeConfig(t, "not toml [")
	if _, err := Load(path); err == nil {
		t.Error("Load() accepted a malformed file")
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Service.Mode = ModeRest
	cfg.Web.Port = 6123
	cfg.Tracker.PollInterval = 3 * time.Second

	b, err := cfg.TOML()
	if err != nil {
		t.Fatalf("TOML() error: %v", err)
	}
	for _, want := range []string{"[service]", "mode = 'rest'", "port = 6123", "poll_interval = '3s'"} {
		if !strings.Contains(string(b), want) {
			t.Errorf("TOML() missing %q in:\n%s", want, b)
		}
	}

	got, err := Load(writeConfig(t, string(b)))
	if err != nil {
		t.Fatalf("Load() of rendered config error: %v", err)
	}
	cfg.Pipe.Path = cfg.PipePath()
	if diff := cmp.Diff(cfg, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
