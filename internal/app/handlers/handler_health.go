package handlers

import (
	"net/http"

	"github.com/thushan/switchback/internal/adapter/health"
)

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
)

// HealthResponse is served with 200 while the relay runs, an offline upstream
// reports as degraded
type HealthResponse struct {
	Status   string        `json:"status"`
	Upstream health.Status `json:"upstream,omitempty"`
}

func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: healthStatusHealthy}
	if a.Upstream != nil {
		resp.Upstream = a.Upstream.Result().Status
		if resp.Upstream == health.StatusOffline {
			resp.Status = healthStatusDegraded
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
