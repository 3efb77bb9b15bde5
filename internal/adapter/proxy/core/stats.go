package core

import (
	"sync/atomic"

	"github.com/thushan/switchback/internal/core/ports"
)

// RelayStats holds relay counters. All fields are updated atomically.
type RelayStats struct {
	totalConnections    atomic.Int64
	rejectedConnections atomic.Int64
	totalExchanges      atomic.Int64
	failedExchanges     atomic.Int64
	framingErrors       atomic.Int64
	upstreamAttempts    atomic.Int64
	fallbackAdvances    atomic.Int64
	sanitizedRetries    atomic.Int64
	bytesFromClients    atomic.Int64
	bytesToClients      atomic.Int64
	successCount        atomic.Int64
	totalLatency        atomic.Int64
	minLatency          atomic.Int64
	maxLatency          atomic.Int64
}

func (s *RelayStats) RecordConnection() { s.totalConnections.Add(1) }
func (s *RelayStats) RecordRejected() { s.rejectedConnections.Add(1) }
func (s *RelayStats) RecordFramingError() { s.framingErrors.Add(1) }
func (s *RelayStats) RecordAttempt() { s.upstreamAttempts.Add(1) }
func (s *RelayStats) RecordAdvance() { s.fallbackAdvances.Add(1) }
func (s *RelayStats) RecordSanitizedRetry() { s.sanitizedRetries.Add(1) }
func (s *RelayStats) RecordClientBytes(n int64) { s.bytesFromClients.Add(n) }

// RecordExchange records a finished exchange; latency is in milliseconds
func (s *RelayStats) RecordExchange(success bool, latency int64, bytesOut int64) {
	s.totalExchanges.Add(1)
	s.bytesToClients.Add(bytesOut)
	if !success {
		s.failedExchanges.Add(1)
		return
	}

	s.successCount.Add(1)
	s.totalLatency.Add(latency)

	for {
		oldMin := s.minLatency.Load()
		if oldMin != 0 && oldMin <= latency {
			break
		}
		if s.minLatency.CompareAndSwap(oldMin, latency) {
			break
		}
	}

	for {
		oldMax := s.maxLatency.Load()
		if oldMax >= latency {
			break
		}
		if s.maxLatency.CompareAndSwap(oldMax, latency) {
			break
		}
	}
}

// Snapshot copies the counters; active is supplied by the admission counter owner
func (s *RelayStats) Snapshot(active int64) ports.RelayStats {
	successful := s.successCount.Load()
	avg := int64(0)
	if successful > 0 {
		avg = s.totalLatency.Load() / successful
	}

	return ports.RelayStats{
		TotalConnections:    s.totalConnections.Load(),
		ActiveConnections:   active,
		RejectedConnections: s.rejectedConnections.Load(),
		TotalExchanges:      s.totalExchanges.Load(),
		FailedExchanges:     s.failedExchanges.Load(),
		FramingErrors:       s.framingErrors.Load(),
		UpstreamAttempts:    s.upstreamAttempts.Load(),
		FallbackAdvances:    s.fallbackAdvances.Load(),
		SanitizedRetries:    s.sanitizedRetries.Load(),
		BytesFromClients:    s.bytesFromClients.Load(),
		BytesToClients:      s.bytesToClients.Load(),
		AverageLatency:      avg,
		MinLatency:          s.minLatency.Load(),
		MaxLatency:          s.maxLatency.Load(),
	}
}
