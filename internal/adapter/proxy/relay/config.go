package relay

import (
	"net"
	"strconv"
	"time"

	"github.com/thushan/switchback/internal/core/constants"
)

const (
	DefaultUpstreamHost   = "127.0.0.1"
	DefaultConnectTimeout = 10 * time.Second
	DefaultKeepAlive      = 30 * time.Second
	DefaultReadTimeout    = 10 * time.Minute
	DefaultWriteTimeout   = 60 * time.Second
	DefaultMaxConnections = 128

	DefaultSetNoDelay = true

	// DefaultSnippetBytes bounds the failing response body copied into metadata
	DefaultSnippetBytes = 512
)

// Configuration holds relay tunables. A Configuration is never modified once
// handed to the service; reloads swap in a new one.
type Configuration struct {
	UpstreamHost        string
	UpstreamPort        int
	ConnectTimeout      time.Duration
	KeepAlive           time.Duration
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	MaxConnections      int
	MaxHeaderBytes      int
	ReadBufferSize      int
	InspectionThreshold int
}

func (c *Configuration) GetUpstreamHost() string {
	if c.UpstreamHost == "" {
		return DefaultUpstreamHost
	}
	return c.UpstreamHost
}

func (c *Configuration) GetUpstreamAddress() string {
	return net.JoinHostPort(c.GetUpstreamHost(), strconv.Itoa(c.UpstreamPort))
}

func (c *Configuration) GetConnectTimeout() time.Duration {
	if c.ConnectTimeout <= 0 {
		return DefaultConnectTimeout
	}
	return c.ConnectTimeout
}

func (c *Configuration) GetKeepAlive() time.Duration {
	if c.KeepAlive == 0 {
		return DefaultKeepAlive
	}
	return c.KeepAlive
}

func (c *Configuration) GetReadTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

func (c *Configuration) GetWriteTimeout() time.Duration {
	if c.WriteTimeout <= 0 {
		return DefaultWriteTimeout
	}
	return c.WriteTimeout
}

func (c *Configuration) GetMaxConnections() int64 {
	if c.MaxConnections <= 0 {
		return DefaultMaxConnections
	}
	return int64(c.MaxConnections)
}

func (c *Configuration) GetMaxHeaderBytes() int {
	if c.MaxHeaderBytes <= 0 {
		return constants.DefaultMaxHeaderBytes
	}
	return c.MaxHeaderBytes
}

func (c *Configuration) GetReadBufferSize() int {
	if c.ReadBufferSize <= 0 {
		return constants.DefaultReadBufferSize
	}
	return c.ReadBufferSize
}

func (c *Configuration) GetInspectionThreshold() int {
	if c.InspectionThreshold <= 0 {
		return constants.DefaultInspectionThreshold
	}
	return c.InspectionThreshold
}
