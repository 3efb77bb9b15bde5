package ports

import (
	"context"
)

// RelayService is the raw TCP relay in front of the upstream aggregator
type RelayService interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Addr() string
	Stats() RelayStats
}

// RelayStats is a point in time copy of relay counters
type RelayStats struct {
	TotalConnections    int64 `json:"total_connections"`
	ActiveConnections   int64 `json:"active_connections"`
	RejectedConnections int64 `json:"rejected_connections"`
	TotalExchanges      int64 `json:"total_exchanges"`
	FailedExchanges     int64 `json:"failed_exchanges"`
	FramingErrors       int64 `json:"framing_errors"`
	UpstreamAttempts    int64 `json:"upstream_attempts"`
	FallbackAdvances    int64 `json:"fallback_advances"`
	SanitizedRetries    int64 `json:"sanitized_retries"`
	BytesFromClients    int64 `json:"bytes_from_clients"`
	BytesToClients      int64 `json:"bytes_to_clients"`
	AverageLatency      int64 `json:"average_latency_ms"`
	MinLatency          int64 `json:"min_latency_ms"`
	MaxLatency          int64 `json:"max_latency_ms"`
}
