package ports

import (
	"context"

	"github.com/thushan/switchback/internal/core/domain"
)

// FallbackSettings provides the virtual model configuration as a per-request snapshot
type FallbackSettings interface {
	Snapshot() domain.FallbackSnapshot
}

// FallbackCache remembers the last entry that served each virtual model.
// Implementations must be safe for concurrent use by in-flight exchanges.
type FallbackCache interface {
	GetCachedEntryID(virtualModel string) (string, bool)
	SetCachedEntryID(virtualModel, entryID string)
}

// RouteStateObserver is notified whenever an exchange settles on, or tentatively
// moves to, a fallback entry
type RouteStateObserver interface {
	UpdateRouteState(virtualModel string, index int, entry domain.FallbackEntry, total int)
}

// RouteStore bundles the collaborators the resolver and recorder talk to
type RouteStore interface {
	FallbackSettings
	FallbackCache
	RouteStateObserver
}

// TriggerVerdict is the outcome of offering buffered response bytes to a detector
type TriggerVerdict struct {
	Reason   *domain.FallbackTriggerReason
	NeedMore bool
}

// TriggerDetector classifies the first bytes of an upstream response.
// complete is true when no more bytes will be offered, either because the upstream
// finished or because the inspection window is full.
type TriggerDetector interface {
	Detect(response []byte, complete bool) TriggerVerdict
}

// MetadataSink receives the single metadata record produced by an exchange
type MetadataSink interface {
	RequestCompleted(ctx context.Context, metadata domain.RequestMetadata)
}
