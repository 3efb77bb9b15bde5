package services

import (
	"context"
	"sync/atomic"

	"github.com/thushan/switchback/internal/adapter/proxy/relay"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
)

// RelayService runs the client facing relay once routes and the metadata sink exist
type RelayService struct {
	config *config.Config
	routes *RoutesService
	events *EventsService
	logger logger.StyledLogger
	relay  atomic.Pointer[relay.Service]
}

func NewRelayService(config *config.Config, routes *RoutesService, events *EventsService, logger logger.StyledLogger) *RelayService {
	return &RelayService{config: config, routes: routes, events: events, logger: logger}
}

func (s *RelayService) Name() string { return "relay" }

func (s *RelayService) Dependencies() []string { return []string{"routes", "events"} }

func (s *RelayService) Start(ctx context.Context) error {
	svc, err := relay.NewService(
		s.config.Server.GetAddress(),
		RelayConfiguration(s.config),
		s.routes.Store(),
		nil,
		s.events.Sink(),
		s.logger,
	)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	s.relay.Store(svc)
	return nil
}

func (s *RelayService) Stop(ctx context.Context) error {
	if svc := s.relay.Load(); svc != nil {
		return svc.Stop(ctx)
	}
	return nil
}

// UpdateConfig hands reloaded tunables to the running relay
func (s *RelayService) UpdateConfig(cfg *config.Config) {
	if svc := s.relay.Load(); svc != nil {
		svc.UpdateConfig(RelayConfiguration(cfg))
	}
}

func (s *RelayService) Addr() string {
	if svc := s.relay.Load(); svc != nil {
		return svc.Addr()
	}
	return s.config.Server.GetAddress()
}

// Stats is safe to call before Start; counters read zero until the relay runs
func (s *RelayService) Stats() ports.RelayStats {
	if svc := s.relay.Load(); svc != nil {
		return svc.Stats()
	}
	return ports.RelayStats{}
}

// RelayConfiguration maps the file configuration onto relay tunables
func RelayConfiguration(cfg *config.Config) *relay.Configuration {
	return &relay.Configuration{
		UpstreamHost:        cfg.Upstream.Host,
		UpstreamPort:        cfg.Upstream.Port,
		ConnectTimeout:      cfg.Upstream.ConnectTimeout,
		KeepAlive:           cfg.Upstream.KeepAlive,
		ReadTimeout:         cfg.Upstream.ReadTimeout,
		WriteTimeout:        cfg.Upstream.WriteTimeout,
		MaxConnections:      cfg.Server.MaxConnections,
		MaxHeaderBytes:      cfg.Server.MaxHeaderBytes,
		ReadBufferSize:      cfg.Server.ReadBufferSize,
		InspectionThreshold: cfg.Fallback.InspectionThreshold,
	}
}
