package config

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Filename string         `yaml:"-" mapstructure:"-"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream"`
	Fallback FallbackConfig `yaml:"fallback" mapstructure:"fallback"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
	Admin    AdminConfig    `yaml:"admin" mapstructure:"admin"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// ServerConfig is the client facing relay listener
type ServerConfig struct {
	Host            string        `yaml:"host" mapstructure:"host"`
	Port            int           `yaml:"port" mapstructure:"port"`
	MaxConnections  int           `yaml:"max_connections" mapstructure:"max_connections"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"`
	ReadBufferSize  int           `yaml:"read_buffer_size" mapstructure:"read_buffer_size"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// GetAddress returns the server address in host:port format
func (s *ServerConfig) GetAddress() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// UpstreamConfig describes the aggregator every attempt connects to
type UpstreamConfig struct {
	Host           string        `yaml:"host" mapstructure:"host"`
	Port           int           `yaml:"port" mapstructure:"port"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" mapstructure:"connect_timeout"`
	KeepAlive      time.Duration `yaml:"keep_alive" mapstructure:"keep_alive"`
	ReadTimeout    time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	HealthInterval time.Duration `yaml:"health_interval" mapstructure:"health_interval"` // 0 disables the reachability probe
}

func (u *UpstreamConfig) GetAddress() string {
	return net.JoinHostPort(u.Host, strconv.Itoa(u.Port))
}

// FallbackConfig controls virtual model routing
type FallbackConfig struct {
	SettingsFile        string        `yaml:"settings_file" mapstructure:"settings_file"`
	InspectionThreshold int           `yaml:"inspection_threshold" mapstructure:"inspection_threshold"`
	WatchSettings       bool          `yaml:"watch_settings" mapstructure:"watch_settings"`
	WatchDebounce       time.Duration `yaml:"watch_debounce" mapstructure:"watch_debounce"`
}

// StorageConfig points at the sqlite database shared by the route cache and history.
// An empty path keeps everything in memory.
type StorageConfig struct {
	Path        string        `yaml:"path" mapstructure:"path"`
	BusyTimeout time.Duration `yaml:"busy_timeout" mapstructure:"busy_timeout"`
}

type HistoryConfig struct {
	Enabled      bool `yaml:"enabled" mapstructure:"enabled"`
	Capacity     int  `yaml:"capacity" mapstructure:"capacity"`
	MaxRows      int  `yaml:"max_rows" mapstructure:"max_rows"`
	SnippetBytes int  `yaml:"snippet_bytes" mapstructure:"snippet_bytes"`
}

// AdminConfig is the loopback HTTP API for status, history and metrics
type AdminConfig struct {
	Host      string `yaml:"host" mapstructure:"host"`
	Port      int    `yaml:"port" mapstructure:"port"`
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Profiling bool   `yaml:"profiling" mapstructure:"profiling"` // mounts pprof under /debug/pprof
}

func (a *AdminConfig) GetAddress() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

type MetricsConfig struct {
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}

// Validate reports the first setting that cannot work
func (c *Config) Validate() error {
	switch {
	case !validPort(c.Server.Port):
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	case !validPort(c.Upstream.Port):
		return fmt.Errorf("upstream.port %d out of range", c.Upstream.Port)
	case c.Admin.Enabled && !validPort(c.Admin.Port):
		return fmt.Errorf("admin.port %d out of range", c.Admin.Port)
	case c.Server.MaxConnections <= 0:
		return fmt.Errorf("server.max_connections must be positive, got %d", c.Server.MaxConnections)
	case c.Fallback.InspectionThreshold <= 0:
		return fmt.Errorf("fallback.inspection_threshold must be positive, got %d", c.Fallback.InspectionThreshold)
	case c.Upstream.ConnectTimeout <= 0:
		return fmt.Errorf("upstream.connect_timeout must be positive, got %s", c.Upstream.ConnectTimeout)
	}
	return nil
}
