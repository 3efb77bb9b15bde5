package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/thushan/switchback/internal/adapter/history"
	"github.com/thushan/switchback/internal/adapter/metrics"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/pkg/eventbus"
)

// EventsService carries request metadata from the relay to the history recorder
// and the metrics collector. Each consumer has its own subscription.
type EventsService struct {
	config    *config.Config
	storage   *StorageService
	logger    logger.StyledLogger
	bus       *eventbus.EventBus[domain.RequestMetadata]
	sink      *history.BusSink
	recorder  *history.Recorder
	collector *metrics.Collector
	stats     metrics.StatsFunc
	upstream  func() float64
	group     *errgroup.Group
	cancel    context.CancelFunc
}

func NewEventsService(config *config.Config, storage *StorageService, logger logger.StyledLogger) *EventsService {
	return &EventsService{config: config, storage: storage, logger: logger}
}

func (s *EventsService) Name() string { return "events" }

func (s *EventsService) Dependencies() []string { return []string{"storage"} }

// SetStatsSource supplies the relay counters exported as gauges. It must be
// called before Start.
func (s *EventsService) SetStatsSource(stats metrics.StatsFunc) {
	s.stats = stats
}

// SetUpstreamProbe exports the reachability probe as a gauge. Optional.
func (s *EventsService) SetUpstreamProbe(up func() float64) {
	s.upstream = up
}

func (s *EventsService) Start(ctx context.Context) error {
	s.bus = eventbus.New[domain.RequestMetadata]()
	s.sink = history.NewBusSink(s.bus, s.logger)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.group, runCtx = errgroup.WithContext(runCtx)

	if s.config.History.Enabled {
		recorder, err := history.New(ctx, history.Config{
			Capacity:     s.config.History.Capacity,
			MaxRows:      s.config.History.MaxRows,
			SnippetBytes: s.config.History.SnippetBytes,
		}, s.storage.DB(), s.logger)
		if err != nil {
			cancel()
			return err
		}
		s.recorder = recorder
		events, _ := s.bus.Subscribe(runCtx)
		s.group.Go(func() error {
			recorder.Run(runCtx, events)
			return nil
		})
	}

	if s.config.Metrics.Enabled {
		s.collector = metrics.NewCollector(s.config.Metrics.Namespace, s.stats)
		if s.upstream != nil {
			s.collector.RegisterUpstreamUp(s.upstream)
		}
		events, _ := s.bus.Subscribe(runCtx)
		s.group.Go(func() error {
			s.collector.Run(runCtx, events)
			return nil
		})
	}
	return nil
}

// Stop runs after the relay has stopped, so every exchange has already published
func (s *EventsService) Stop(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	// closing the subscriptions lets each consumer drain what it has buffered
	s.bus.Shutdown()
	err := s.group.Wait()
	s.cancel()
	if s.recorder != nil {
		if cerr := s.recorder.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (s *EventsService) Sink() ports.MetadataSink {
	return s.sink
}

// Recorder is nil when history is disabled
func (s *EventsService) Recorder() *history.Recorder {
	return s.recorder
}

// Collector is nil when metrics are disabled
func (s *EventsService) Collector() *metrics.Collector {
	return s.collector
}
