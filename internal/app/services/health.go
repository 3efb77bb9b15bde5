package services

import (
	"context"
	"sync"

	"github.com/thushan/switchback/internal/adapter/health"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/logger"
)

// HealthService runs the upstream reachability probe. Probe returns nil when
// upstream.health_interval is zero.
type HealthService struct {
	config *config.UpstreamConfig
	logger logger.StyledLogger
	probe  *health.UpstreamProbe
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewHealthService(config *config.UpstreamConfig, logger logger.StyledLogger) *HealthService {
	s := &HealthService{config: config, logger: logger}
	if config.HealthInterval > 0 {
		s.probe = health.NewUpstreamProbe(config.GetAddress(), config.HealthInterval, config.ConnectTimeout, logger)
	}
	return s
}

func (s *HealthService) Name() string { return "health" }

func (s *HealthService) Dependencies() []string { return nil }

func (s *HealthService) Start(ctx context.Context) error {
	if s.probe == nil {
		return nil
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.probe.Run(runCtx)
	}()
	return nil
}

func (s *HealthService) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *HealthService) Probe() *health.UpstreamProbe {
	return s.probe
}
