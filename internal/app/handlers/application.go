package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/thushan/switchback/internal/adapter/health"
	"github.com/thushan/switchback/internal/app/middleware"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/core/constants"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/internal/router"
	"github.com/thushan/switchback/pkg/profiler"
)

// RelayView is the part of the relay the admin API reports on
type RelayView interface {
	Addr() string
	Stats() ports.RelayStats
}

// RouteView exposes the virtual model settings and what each one is routed to
type RouteView interface {
	Snapshot() domain.FallbackSnapshot
	RouteStates() []domain.RouteState
	CachedEntries() map[string]string
}

// UpstreamView reports the reachability probe
type UpstreamView interface {
	Result() health.Result
}

type HistoryView interface {
	Recent(ctx context.Context, limit int) ([]domain.RequestMetadata, error)
}

// Application holds what the admin handlers read from. History, Metrics and
// Upstream are nil when disabled.
type Application struct {
	Config    *config.Config
	Relay     RelayView
	Routes    RouteView
	History   HistoryView
	Upstream  UpstreamView
	Metrics   http.Handler
	logger    logger.StyledLogger
	registry  *router.RouteRegistry
	StartTime time.Time
}

func NewApplication(cfg *config.Config, relay RelayView, routes RouteView, history HistoryView, metrics http.Handler, logger logger.StyledLogger) *Application {
	return &Application{
		Config:    cfg,
		Relay:     relay,
		Routes:    routes,
		History:   history,
		Metrics:   metrics,
		logger:    logger,
		registry:  router.NewRouteRegistry(logger),
		StartTime: time.Now(),
	}
}

func (a *Application) registerRoutes() {
	a.registry.Register(constants.DefaultHealthCheckEndpoint, a.healthHandler, "Health check")
	a.registry.Register(constants.PathVersion, a.versionHandler, "Version information")
	a.registry.Register(constants.PathStatus, a.statusHandler, "Relay status and counters")
	a.registry.Register(constants.PathRoutes, a.routesHandler, "Virtual models and their current routes")

	if a.History != nil {
		a.registry.Register(constants.PathHistory, a.historyHandler, "Recent request metadata")
	}
	if a.Metrics != nil {
		a.registry.RegisterWithMethod(constants.PathMetrics, a.Metrics.ServeHTTP, "Prometheus metrics", http.MethodGet)
	}
	if a.Config != nil && a.Config.Admin.Profiling {
		a.registry.Mount(constants.PathProfiling, profiler.Routes(), "Go runtime profiling")
	}
}

// Router builds the admin handler tree
func (a *Application) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggingMiddleware(a.logger))

	a.registerRoutes()
	a.registry.WireUp(r)
	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
