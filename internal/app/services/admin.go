package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/thushan/switchback/internal/app/handlers"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/logger"
)

const (
	adminReadTimeout  = 10 * time.Second
	adminIdleTimeout  = 60 * time.Second
	adminWriteTimeout = 60 * time.Second // pprof profiles default to 30s
)

// AdminService serves the loopback status, history and metrics API
type AdminService struct {
	config   *config.Config
	relay    *RelayService
	routes   *RoutesService
	events   *EventsService
	health   *HealthService
	logger   logger.StyledLogger
	server   *http.Server
	listener net.Listener
	done     chan struct{}
}

func NewAdminService(config *config.Config, relay *RelayService, routes *RoutesService, events *EventsService, health *HealthService, logger logger.StyledLogger) *AdminService {
	return &AdminService{config: config, relay: relay, routes: routes, events: events, health: health, logger: logger}
}

func (s *AdminService) Name() string { return "admin" }

func (s *AdminService) Dependencies() []string { return []string{"relay", "health"} }

func (s *AdminService) Start(ctx context.Context) error {
	var history handlers.HistoryView
	if rec := s.events.Recorder(); rec != nil {
		history = rec
	}
	var metrics http.Handler
	if col := s.events.Collector(); col != nil {
		metrics = col.Handler()
	}

	app := handlers.NewApplication(s.config, s.relay, s.routes.Store(), history, metrics, s.logger)
	if probe := s.health.Probe(); probe != nil {
		app.Upstream = probe
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Admin.GetAddress())
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           app.Router(),
		ReadHeaderTimeout: adminReadTimeout,
		ReadTimeout:       adminReadTimeout,
		WriteTimeout:      adminWriteTimeout,
		IdleTimeout:       adminIdleTimeout,
	}
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Admin server error", "error", err)
		}
	}()

	s.logger.Info("Admin API listening", "address", ln.Addr().String())
	return nil
}

func (s *AdminService) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-s.done
	return err
}

func (s *AdminService) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Admin.GetAddress()
}
