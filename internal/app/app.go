package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/thushan/switchback/internal/app/services"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/internal/version"
)

const defaultShutdownTimeout = 10 * time.Second

// Application wires the relay and its supporting services together
type Application struct {
	startTime time.Time
	config    *config.Config
	logger    logger.StyledLogger
	manager   *services.ServiceManager
	relay     *services.RelayService
	admin     *services.AdminService
	configMu  sync.RWMutex
}

// New loads configuration and registers every service. Nothing listens until Start.
func New(startTime time.Time, logger logger.StyledLogger) (*Application, error) {
	a := &Application{startTime: startTime, logger: logger}

	cfg, err := config.Load(a.reloadConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := a.build(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

// NewWithConfig skips file loading and hot reload
func NewWithConfig(cfg *config.Config, logger logger.StyledLogger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Application{startTime: time.Now(), logger: logger}
	if err := a.build(cfg); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Application) build(cfg *config.Config) error {
	a.configMu.Lock()
	a.config = cfg
	a.configMu.Unlock()
	a.manager = services.NewServiceManager(a.logger)

	healthSvc := services.NewHealthService(&cfg.Upstream, a.logger)
	storageSvc := services.NewStorageService(&cfg.Storage, a.logger)
	routesSvc := services.NewRoutesService(&cfg.Fallback, storageSvc, a.logger)
	eventsSvc := services.NewEventsService(cfg, storageSvc, a.logger)
	a.relay = services.NewRelayService(cfg, routesSvc, eventsSvc, a.logger)
	eventsSvc.SetStatsSource(a.relay.Stats)
	if probe := healthSvc.Probe(); probe != nil {
		eventsSvc.SetUpstreamProbe(probe.Healthy)
	}

	all := []services.ManagedService{healthSvc, storageSvc, routesSvc, eventsSvc, a.relay}
	if cfg.Admin.Enabled {
		a.admin = services.NewAdminService(cfg, a.relay, routesSvc, eventsSvc, healthSvc, a.logger)
		all = append(all, a.admin)
	}
	for _, svc := range all {
		if err := a.manager.Register(svc); err != nil {
			return err
		}
	}
	return nil
}

func (a *Application) Start(ctx context.Context) error {
	if err := a.manager.Start(ctx); err != nil {
		return err
	}
	cfg := a.currentConfig()
	a.logger.Info(version.Name+" started, waiting for requests...",
		"bind", a.relay.Addr(),
		"upstream", cfg.Upstream.GetAddress(),
		"startup", time.Since(a.startTime).Round(time.Millisecond))
	return nil
}

// Stop shuts services down within the configured shutdown timeout
func (a *Application) Stop(ctx context.Context) error {
	timeout := a.currentConfig().Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return a.manager.Stop(ctx)
}

func (a *Application) RelayAddr() string {
	return a.relay.Addr()
}

// AdminAddr is empty when the admin API is disabled
func (a *Application) AdminAddr() string {
	if a.admin == nil {
		return ""
	}
	return a.admin.Addr()
}

// reloadConfig applies an edited config file. Listener addresses, storage and
// history settings need a restart; relay tunables apply to new connections.
func (a *Application) reloadConfig(next *config.Config) {
	a.configMu.Lock()
	prev := a.config
	a.config = next
	a.configMu.Unlock()

	if a.relay == nil {
		return
	}
	if prev != nil && prev.Server.GetAddress() != next.Server.GetAddress() {
		a.logger.Warn("Listen address changes need a restart", "current", prev.Server.GetAddress(), "configured", next.Server.GetAddress())
	}
	a.relay.UpdateConfig(next)
	a.logger.Info("Configuration reloaded", "file", next.Filename)
}

func (a *Application) currentConfig() *config.Config {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.config
}
