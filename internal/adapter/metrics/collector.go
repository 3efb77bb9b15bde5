// Package metrics exposes relay and fallback activity to Prometheus
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
)

const DefaultNamespace = "switchback"

// StatsFunc returns a snapshot of relay counters, read on every scrape
type StatsFunc func() ports.RelayStats

// Collector owns a private registry so tests and embedded use never collide
// with the global default registry
type Collector struct {
	registry  *prometheus.Registry
	namespace string

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	attempts  *prometheus.CounterVec
	fallbacks *prometheus.CounterVec
	bytes     *prometheus.CounterVec
}

func NewCollector(namespace string, stats StatsFunc) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	c := &Collector{
		registry:  prometheus.NewRegistry(),
		namespace: namespace,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Client exchanges by final status code class and virtual model",
		}, []string{"status", "virtual_model"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Client exchange duration from accept to close",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"virtual_model"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_attempts_total",
			Help:      "Concluded fallback attempts by provider, outcome and trigger",
		}, []string{"provider", "outcome", "reason"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_exchanges_total",
			Help:      "Exchanges that exercised fallback, by whether they ended in success",
		}, []string{"virtual_model", "result"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exchange_bytes_total",
			Help:      "Bytes relayed per direction",
		}, []string{"direction"}),
	}

	c.registry.MustRegister(c.requests, c.duration, c.attempts, c.fallbacks, c.bytes)

	if stats != nil {
		c.registerRelayGauges(namespace, stats)
	}
	return c
}

func (c *Collector) registerRelayGauges(namespace string, stats StatsFunc) {
	gauge := func(name, help string, read func(ports.RelayStats) int64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats())) })
	}
	counter := func(name, help string, read func(ports.RelayStats) int64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      name,
			Help:      help,
		}, func() float64 { return float64(read(stats())) })
	}

	c.registry.MustRegister(
		gauge("active_connections", "Client connections currently being served",
			func(s ports.RelayStats) int64 { return s.ActiveConnections }),
		counter("connections_total", "Client connections accepted",
			func(s ports.RelayStats) int64 { return s.TotalConnections }),
		counter("rejected_connections_total", "Client connections refused at the admission limit",
			func(s ports.RelayStats) int64 { return s.RejectedConnections }),
		counter("framing_errors_total", "Requests answered 400 because they could not be framed",
			func(s ports.RelayStats) int64 { return s.FramingErrors }),
		counter("upstream_attempts_total", "Upstream connections opened",
			func(s ports.RelayStats) int64 { return s.UpstreamAttempts }),
		counter("sanitized_retries_total", "Retries sent with thinking signatures stripped",
			func(s ports.RelayStats) int64 { return s.SanitizedRetries }),
	)
}

// RegisterUpstreamUp exports the reachability probe verdict as a gauge
func (c *Collector) RegisterUpstreamUp(up func() float64) {
	c.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: c.namespace,
		Name:      "upstream_up",
		Help:      "1 when the last reachability probe connected to the upstream",
	}, up))
}

// Observe records one completed exchange
func (c *Collector) Observe(md domain.RequestMetadata) {
	vm := md.VirtualModel
	c.requests.WithLabelValues(statusClass(md.StatusCode), vm).Inc()
	c.duration.WithLabelValues(vm).Observe(md.Duration.Seconds())
	c.bytes.WithLabelValues("in").Add(float64(md.RequestBytes))
	c.bytes.WithLabelValues("out").Add(float64(md.ResponseBytes))

	if len(md.Attempts) == 0 {
		return
	}
	for _, a := range md.Attempts {
		reason := ""
		if a.Reason != nil {
			reason = string(a.Reason.Kind)
		}
		c.attempts.WithLabelValues(string(a.Entry.Provider), string(a.Outcome), reason).Inc()
	}
	result := "failed"
	if md.Succeeded() {
		result = "recovered"
	}
	c.fallbacks.WithLabelValues(vm, result).Inc()
}

// Run observes events until the channel closes or ctx is done
func (c *Collector) Run(ctx context.Context, events <-chan domain.RequestMetadata) {
	for {
		select {
		case <-ctx.Done():
			return
		case md, ok := <-events:
			if !ok {
				return
			}
			c.Observe(md)
		}
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

func statusClass(code int) string {
	if code <= 0 {
		return "none"
	}
	return strconv.Itoa(code/100) + "xx"
}
