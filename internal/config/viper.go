package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VDTIME_WEB_PORT
const EnvPrefix = "VDTIME"

const (
	keyServiceMode       = "service.mode"
	keyServiceName       = "service.name"
	keyWebHost           = "web.host"
	keyWebPort           = "web.port"
	keyPipePath          = "pipe.path"
	keyDatabasePath      = "database.path"
	keyDaemonPIDFile     = "daemon.pid_file"
	keyLogPath           = "log.path"
	keyLogLevel          = "log.level"
	keyLogMaxSizeMB      = "log.max_size_mb"
	keyLogMaxBackups     = "log.max_backups"
	keyTrackerPoll       = "tracker.poll_interval"
	keyTrackerDesktopSrc = "tracker.desktop_source"
	keyTrackerSessionSrc = "tracker.session_source"
)

// New returns the configuration from the default file and the environment,
// falling back to defaults when either cannot be loaded.
func New() *Config {
	cfg, err := Load("")
	if err != nil {
		return Default()
	}
	return cfg
}

// Load reads defaults, then the TOML file at path (DefaultFile when empty),
// then VDTIME_* environment variables. An explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	v := viper.New()
	setupViper(v, cfg)

	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reading config file %s failed: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config failed: %w", err)
	}
	cfg.Service.Mode = strings.ToLower(cfg.Service.Mode)
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupViper(v *viper.Viper, c *Config) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(keyServiceMode, c.Service.Mode)
	v.SetDefault(keyServiceName, c.Service.Name)
	v.SetDefault(keyWebHost, c.Web.Host)
	v.SetDefault(keyWebPort, c.Web.Port)
	v.SetDefault(keyPipePath, c.Pipe.Path)
	v.SetDefault(keyDatabasePath, c.Database.Path)
	v.SetDefault(keyDaemonPIDFile, c.Daemon.PIDFile)
	v.SetDefault(keyLogPath, c.Log.Path)
	v.SetDefault(keyLogLevel, c.Log.Level)
	v.SetDefault(keyLogMaxSizeMB, c.Log.MaxSizeMB)
	v.SetDefault(keyLogMaxBackups, c.Log.MaxBackups)
	v.SetDefault(keyTrackerPoll, c.Tracker.PollInterval.String())
	v.SetDefault(keyTrackerDesktopSrc, c.Tracker.DesktopSource)
	v.SetDefault(keyTrackerSessionSrc, c.Tracker.SessionSource)
}

type tomlFile struct {
	Service  tomlService `toml:"service"`
	Web      tomlWeb     `toml:"web"`
	Pipe     tomlPath    `toml:"pipe"`
	Database tomlPath    `toml:"database"`
	Daemon   tomlDaemon  `toml:"daemon"`
	Log      tomlLog     `toml:"log"`
	Tracker  tomlTracker `toml:"tracker"`
}

type tomlService struct {
	Mode string `toml:"mode"`
	Name string `toml:"name"`
}

type tomlWeb struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type tomlPath struct {
	Path string `toml:"path"`
}

type tomlDaemon struct {
	PIDFile string `toml:"pid_file"`
}

type tomlLog struct {
	Path       string `toml:"path"`
	Level      string `toml:"level"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

type tomlTracker struct {
	PollInterval  string `toml:"poll_interval"`
	DesktopSource string `toml:"desktop_source"`
	SessionSource string `toml:"session_source"`
}

// TOML renders the effective configuration in the format Load reads
func (c *Config) TOML() ([]byte, error) {
	f := tomlFile{
		Service:  tomlService{Mode: c.Service.Mode, Name: c.Service.Name},
		Web:      tomlWeb{Host: c.Web.Host, Port: c.Web.Port},
		Pipe:     tomlPath{Path: c.PipePath()},
		Database: tomlPath{Path: c.Database.Path},
		Daemon:   tomlDaemon{PIDFile: c.Daemon.PIDFile},
		Log: tomlLog{
			Path:       c.Log.Path,
			Level:      c.Log.Level,
			MaxSizeMB:  c.Log.MaxSizeMB,
			MaxBackups: c.Log.MaxBackups,
		},
		Tracker: tomlTracker{
			PollInterval:  c.Tracker.PollInterval.String(),
			DesktopSource: c.Tracker.DesktopSource,
			SessionSource: c.Tracker.SessionSource,
		},
	}
	b, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding config failed: %w", err)
	}
	return b, nil
}
