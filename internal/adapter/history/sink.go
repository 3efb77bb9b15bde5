package history

import (
	"context"

	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/pkg/eventbus"
)

// BusSink fans request metadata out to every eventbus subscriber. Publishing
// blocks on slow subscribers until the relay's publish deadline expires.
type BusSink struct {
	bus    *eventbus.EventBus[domain.RequestMetadata]
	logger logger.StyledLogger
}

var _ ports.MetadataSink = (*BusSink)(nil)

func NewBusSink(bus *eventbus.EventBus[domain.RequestMetadata], logger logger.StyledLogger) *BusSink {
	return &BusSink{bus: bus, logger: logger}
}

func (s *BusSink) RequestCompleted(ctx context.Context, metadata domain.RequestMetadata) {
	if _, err := s.bus.PublishContext(ctx, metadata); err != nil {
		s.logger.Warn("Request metadata not delivered to all subscribers", "id", metadata.ID, "error", err)
	}
}
