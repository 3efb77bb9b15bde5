package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 8318
	DefaultUpstreamPort = 8317
	DefaultAdminPort    = 8319

	EnvPrefix     = "SWITCHBACK"
	EnvConfigFile = "SWITCHBACK_CONFIG_FILE"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            DefaultHost,
			Port:            DefaultPort,
			MaxConnections:  128,
			MaxHeaderBytes:  1 << 20,
			ReadBufferSize:  32 * 1024,
			ShutdownTimeout: 10 * time.Second,
		},
		Upstream: UpstreamConfig{
			Host:           DefaultHost,
			Port:           DefaultUpstreamPort,
			ConnectTimeout: 10 * time.Second,
			KeepAlive:      30 * time.Second,
			ReadTimeout:    10 * time.Minute, // between chunks, reasoning models can sit quiet for a while
			WriteTimeout:   60 * time.Second,
			HealthInterval: 30 * time.Second,
		},
		Fallback: FallbackConfig{
			SettingsFile:        "./config/virtual-models.yaml",
			InspectionThreshold: 4096,
			WatchSettings:       true,
			WatchDebounce:       200 * time.Millisecond,
		},
		Storage: StorageConfig{
			Path:        "./data/switchback.db",
			BusyTimeout: 5 * time.Second,
		},
		History: HistoryConfig{
			Enabled:      true,
			Capacity:     200,
			MaxRows:      10000,
			SnippetBytes: 1024,
		},
		Admin: AdminConfig{
			Enabled: true,
			Host:    DefaultHost,
			Port:    DefaultAdminPort,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "switchback",
		},
	}
}

// Load reads config.yaml from . or ./config (or SWITCHBACK_CONFIG_FILE), applies
// SWITCHBACK_ environment overrides and validates the result. When a file was read
// and onChange is set, the file is watched and every valid edit is passed to onChange.
func Load(onChange func(*Config)) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
	}

	fileUsed := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		fileUsed = false
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	if fileUsed && onChange != nil {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			// invalid edits are ignored; the running config stays in place
			if next, err := decode(v); err == nil {
				onChange(next)
			}
		})
		v.WatchConfig()
	}

	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.Filename = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that never
// appear in the file
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.max_header_bytes", d.Server.MaxHeaderBytes)
	v.SetDefault("server.read_buffer_size", d.Server.ReadBufferSize)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("upstream.host", d.Upstream.Host)
	v.SetDefault("upstream.port", d.Upstream.Port)
	v.SetDefault("upstream.connect_timeout", d.Upstream.ConnectTimeout)
	v.SetDefault("upstream.keep_alive", d.Upstream.KeepAlive)
	v.SetDefault("upstream.read_timeout", d.Upstream.ReadTimeout)
	v.SetDefault("upstream.write_timeout", d.Upstream.WriteTimeout)
	v.SetDefault("upstream.health_interval", d.Upstream.HealthInterval)

	v.SetDefault("fallback.settings_file", d.Fallback.SettingsFile)
	v.SetDefault("fallback.inspection_threshold", d.Fallback.InspectionThreshold)
	v.SetDefault("fallback.watch_settings", d.Fallback.WatchSettings)
	v.SetDefault("fallback.watch_debounce", d.Fallback.WatchDebounce)

	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.busy_timeout", d.Storage.BusyTimeout)

	v.SetDefault("history.enabled", d.History.Enabled)
	v.SetDefault("history.capacity", d.History.Capacity)
	v.SetDefault("history.max_rows", d.History.MaxRows)
	v.SetDefault("history.snippet_bytes", d.History.SnippetBytes)

	v.SetDefault("admin.enabled", d.Admin.Enabled)
	v.SetDefault("admin.host", d.Admin.Host)
	v.SetDefault("admin.port", d.Admin.Port)
	v.SetDefault("admin.profiling", d.Admin.Profiling)

	v.SetDefault("metrics.enabled", d.Metrics.Enabled)
	v.SetDefault("metrics.namespace", d.Metrics.Namespace)
}
