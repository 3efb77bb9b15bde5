// Package health checks that the upstream aggregator accepts connections
package health

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/thushan/switchback/internal/logger"
)

const (
	DefaultInterval      = 30 * time.Second
	DefaultTimeout       = 5 * time.Second
	MaxBackoffMultiplier = 12
	MaxBackoffInterval   = 5 * time.Minute
)

type Status string

const (
	StatusUnknown Status = "unknown"
	StatusHealthy Status = "healthy"
	StatusOffline Status = "offline"
)

// Result is the latest probe outcome
type Result struct {
	LastChecked         time.Time     `json:"last_checked"`
	NextCheck           time.Time     `json:"next_check"`
	Status              Status        `json:"status"`
	Address             string        `json:"address"`
	LastError           string        `json:"last_error,omitempty"`
	Latency             time.Duration `json:"latency"`
	ConsecutiveFailures int           `json:"consecutive_failures"`
}

type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// UpstreamProbe periodically opens and closes a TCP connection to the upstream.
// It never sends a request; the relay does not depend on its verdict.
type UpstreamProbe struct {
	dial     DialFunc
	logger   logger.StyledLogger
	address  string
	result   Result
	interval time.Duration
	timeout  time.Duration
	backoff  int
	mu       sync.RWMutex
}

func NewUpstreamProbe(address string, interval, timeout time.Duration, logger logger.StyledLogger) *UpstreamProbe {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var d net.Dialer
	return &UpstreamProbe{
		dial:     d.DialContext,
		logger:   logger,
		address:  address,
		interval: interval,
		timeout:  timeout,
		backoff:  1,
		result:   Result{Status: StatusUnknown, Address: address},
	}
}

// Run checks immediately and then on the interval, backing off while the
// upstream stays offline. It returns when ctx is done.
func (p *UpstreamProbe) Run(ctx context.Context) {
	for {
		next := p.Check(ctx)

		timer := time.NewTimer(next)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Check performs one probe and returns the delay before the next one
func (p *UpstreamProbe) Check(ctx context.Context) time.Duration {
	start := time.Now()
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	conn, err := p.dial(checkCtx, "tcp", p.address)
	cancel()
	latency := time.Since(start)
	if err == nil {
		_ = conn.Close()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.result.Status
	p.result.LastChecked = start
	p.result.Latency = latency

	if err != nil {
		if ctx.Err() != nil {
			return p.interval
		}
		p.result.Status = StatusOffline
		p.result.LastError = err.Error()
		p.result.ConsecutiveFailures++
		p.backoff = min(p.backoff*2, MaxBackoffMultiplier)
	} else {
		p.result.Status = StatusHealthy
		p.result.LastError = ""
		p.result.ConsecutiveFailures = 0
		p.backoff = 1
	}

	next := min(p.interval*time.Duration(p.backoff), MaxBackoffInterval)
	p.result.NextCheck = start.Add(next)

	if prev != p.result.Status {
		switch p.result.Status {
		case StatusHealthy:
			p.logger.InfoWithUpstream("Upstream reachable", p.address, "latency", latency.Round(time.Millisecond))
		case StatusOffline:
			p.logger.WarnWithUpstream("Upstream unreachable", p.address, "error", err, "next_check", next)
		}
	}
	return next
}

func (p *UpstreamProbe) Result() Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.result
}

// Healthy is 1 when the last probe connected, for gauges
func (p *UpstreamProbe) Healthy() float64 {
	if p.Result().Status == StatusHealthy {
		return 1
	}
	return 0
}
