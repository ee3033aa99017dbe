package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Service modes
const (
	ModeRest = "rest"
	ModePipe = "pipe"
	ModeBoth = "both"
)

// Source selectors
const (
	SourceAuto    = "auto"
	SourceX11     = "x11"
	SourceWayland = "wayland"
	SourceLogind  = "logind"
	SourceLockers = "lockers"
	SourceNone    = "none"
)

const appName = "vdtime"

// Config holds all application configuration
type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Web      WebConfig      `mapstructure:"web"`
	Pipe     PipeConfig     `mapstructure:"pipe"`
	Database DatabaseConfig `mapstructure:"database"`
	Daemon   DaemonConfig   `mapstructure:"daemon"`
	Log      LogConfig      `mapstructure:"log"`
	Tracker  TrackerConfig  `mapstructure:"tracker"`
}

// ServiceConfig selects which adaptors the daemon serves
type ServiceConfig struct {
	Mode string `mapstructure:"mode"` // rest, pipe or both
	Name string `mapstructure:"name"` // Base name of the pipe socket
}

// WebConfig holds web server configuration
type WebConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// PipeConfig holds the local socket configuration
type PipeConfig struct {
	Path string `mapstructure:"path"` // Empty means $XDG_RUNTIME_DIR/<service.name>.sock
}

// DatabaseConfig holds journal database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DaemonConfig holds daemon process configuration
type DaemonConfig struct {
	PIDFile string `mapstructure:"pid_file"`
}

// LogConfig holds log output configuration
type LogConfig struct {
	Path       string `mapstructure:"path"`
	Level      string `mapstructure:"level"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
}

// TrackerConfig holds desktop and session source configuration
type TrackerConfig struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"` // Polling period of sources without change notifications
	MinPollInterval time.Duration `mapstructure:"-"`
	MaxPollInterval time.Duration `mapstructure:"-"`
	DesktopSource   string        `mapstructure:"desktop_source"`
	SessionSource   string        `mapstructure:"session_source"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Mode: ModeBoth,
			Name: "vdtime-core",
		},
		Web: WebConfig{
			Host: "localhost",
			Port: 5055,
		},
		Database: DatabaseConfig{
			Path: filepath.Join(xdg.DataHome, appName, appName+".db"),
		},
		Daemon: DaemonConfig{
			PIDFile: filepath.Join(xdg.RuntimeDir, appName+".pid"),
		},
		Log: LogConfig{
			Path:       filepath.Join(xdg.StateHome, appName, appName+".log"),
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
		Tracker: TrackerConfig{
			PollInterval:    2 * time.Second,
			MinPollInterval: time.Second,
			MaxPollInterval: time.Minute,
			DesktopSource:   SourceAuto,
			SessionSource:   SourceAuto,
		},
	}
}

// DefaultFile is the configuration file read when none is given
func DefaultFile() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.toml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Service.Mode {
	case ModeRest, ModePipe, ModeBoth:
	default:
		return fmt.Errorf("service mode must be one of rest, pipe or both, got %q", c.Service.Mode)
	}

	if c.ServesREST() {
		if c.Web.Port < 1 || c.Web.Port > 65535 {
			return fmt.Errorf("web port must be between 1 and 65535, got %d", c.Web.Port)
		}
		if c.Web.Host == "" {
			return fmt.Errorf("web host cannot be empty")
		}
	}

	if c.PipePath() == "" {
		return fmt.Errorf("pipe path cannot be empty")
	}

	if c.Tracker.PollInterval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be less than minimum (%v)",
			c.Tracker.PollInterval, c.Tracker.MinPollInterval)
	}
	if c.Tracker.PollInterval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval (%v) cannot be greater than maximum (%v)",
			c.Tracker.PollInterval, c.Tracker.MaxPollInterval)
	}

	switch c.Tracker.DesktopSource {
	case SourceAuto, SourceX11, SourceWayland:
	default:
		return fmt.Errorf("unknown desktop source %q", c.Tracker.DesktopSource)
	}
	switch c.Tracker.SessionSource {
	case SourceAuto, SourceLogind, SourceLockers, SourceNone:
	default:
		return fmt.Errorf("unknown session source %q", c.Tracker.SessionSource)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}

	if c.Daemon.PIDFile == "" {
		return fmt.Errorf("PID file path cannot be empty")
	}

	return nil
}

// ServesREST reports whether the HTTP adaptor is enabled
func (c *Config) ServesREST() bool {
	return c.Service.Mode == ModeRest || c.Service.Mode == ModeBoth
}

// ServesPipe reports whether the pipe adaptor is enabled
func (c *Config) ServesPipe() bool {
	return c.Service.Mode == ModePipe || c.Service.Mode == ModeBoth
}

// PipePath returns the socket path, derived from the service name unless set
func (c *Config) PipePath() string {
	if c.Pipe.Path != "" {
		return c.Pipe.Path
	}
	if c.Service.Name == "" {
		return ""
	}
	return filepath.Join(xdg.RuntimeDir, c.Service.Name+".sock")
}

// SetMode sets the service mode with validation
func (c *Config) SetMode(mode string) error {
	switch mode {
	case ModeRest, ModePipe, ModeBoth:
		c.Service.Mode = mode
		return nil
	}
	return fmt.Errorf("mode must be one of rest, pipe or both, got %q", mode)
}

// SetPollInterval sets the poll interval with validation
func (c *Config) SetPollInterval(interval time.Duration) error {
	if interval < c.Tracker.MinPollInterval {
		return fmt.Errorf("poll interval cannot be less than %v", c.Tracker.MinPollInterval)
	}
	if interval > c.Tracker.MaxPollInterval {
		return fmt.Errorf("poll interval cannot be greater than %v", c.Tracker.MaxPollInterval)
	}
	c.Tracker.PollInterval = interval
	return nil
}

// SetWebPort sets the web server port with validation
func (c *Config) SetWebPort(port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	c.Web.Port = port
	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf(`Configuration:
  Service:
    Mode: %s
    Name: %s
  Web:
    Host: %s
    Port: %d
  Pipe:
    Path: %s
  Database:
    Path: %s
  Daemon:
    PID File: %s
  Log:
    Path: %s
    Level: %s
  Tracker:
    Poll Interval: %v
    Desktop Source: %s
    Session Source: %s`,
		c.Service.Mode,
		c.Service.Name,
		c.Web.Host,
		c.Web.Port,
		c.PipePath(),
		c.Database.Path,
		c.Daemon.PIDFile,
		c.Log.Path,
		c.Log.Level,
		c.Tracker.PollInterval,
		c.Tracker.DesktopSource,
		c.Tracker.SessionSource,
	)
}
