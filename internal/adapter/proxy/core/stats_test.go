package core

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRelayStats_Snapshot(t *testing.T) {
	var s RelayStats
	s.RecordConnection()
	s.RecordConnection()
	s.RecordRejected()
	s.RecordFramingError()
	s.RecordAttempt()
	s.RecordAttempt()
	s.RecordAdvance()
	s.RecordSanitizedRetry()
	s.RecordClientBytes(100)

	s.RecordExchange(true, 30, 500)
	s.RecordExchange(true, 10, 200)
	s.RecordExchange(false, 999, 50)

	snap := s.Snapshot(4)
	assert.Equal(t, int64(2), snap.TotalConnections)
	assert.Equal(t, int64(4), snap.ActiveConnections)
	assert.Equal(t, int64(1), snap.RejectedConnections)
	assert.Equal(t, int64(3), snap.TotalExchanges)
	assert.Equal(t, int64(1), snap.FailedExchanges)
	assert.Equal(t, int64(1), snap.FramingErrors)
	assert.Equal(t, int64(2), snap.UpstreamAttempts)
	assert.Equal(t, int64(1), snap.FallbackAdvances)
	assert.Equal(t, int64(1), snap.SanitizedRetries)
	assert.Equal(t, int64(100), snap.BytesFromClients)
	assert.Equal(t, int64(750), snap.BytesToClients)
	assert.Equal(t, int64(20), snap.AverageLatency)
	assert.Equal(t, int64(10), snap.MinLatency)
	assert.Equal(t, int64(30), snap.MaxLatency)
}

func TestRelayStats_ConcurrentLatency(t *testing.T) {
	var s RelayStats
	var wg sync.WaitGroup
	for i := int64(1); i <= 50; i++ {
		wg.Add(1)
		go func(latency int64) {
			defer wg.Done()
			s.RecordExchange(true, latency, 1)
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot(0)
	assert.Equal(t, int64(50), snap.TotalExchanges)
	assert.Equal(t, int64(1), snap.MinLatency)
	assert.Equal(t, int64(50), snap.MaxLatency)
	assert.Equal(t, int64(50), snap.BytesToClients)
}
