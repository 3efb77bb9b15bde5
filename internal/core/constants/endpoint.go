package constants

// Admin API paths
const (
	DefaultHealthCheckEndpoint = "/internal/health"
	PathStatus                 = "/internal/status"
	PathRoutes                 = "/internal/routes"
	PathHistory                = "/internal/history"
	PathVersion                = "/version"
	PathMetrics                = "/metrics"
	PathProfiling              = "/debug/pprof"
)
