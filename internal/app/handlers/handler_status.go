package handlers

import (
	"net/http"
	"time"

	"github.com/thushan/switchback/internal/adapter/health"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/pkg/format"
)

type StatusResponse struct {
	Timestamp     time.Time        `json:"timestamp"`
	Listen        string           `json:"listen"`
	Upstream      string           `json:"upstream"`
	Uptime        string           `json:"uptime"`
	FallbackRatio string           `json:"fallback_ratio"`
	FailureRatio  string           `json:"failure_ratio"`
	AvgLatency    string           `json:"avg_latency"`
	Relay         ports.RelayStats `json:"relay"`
	UpstreamCheck *health.Result   `json:"upstream_check,omitempty"`
	VirtualModels int              `json:"virtual_models"`
	Fallback      bool             `json:"fallback_enabled"`
}

func (a *Application) statusHandler(w http.ResponseWriter, r *http.Request) {
	stats := a.Relay.Stats()
	snapshot := a.Routes.Snapshot()

	resp := StatusResponse{
		Timestamp:     time.Now(),
		Listen:        a.Relay.Addr(),
		Uptime:        format.Duration(time.Since(a.StartTime)),
		FallbackRatio: format.Ratio(stats.FallbackAdvances, stats.TotalExchanges),
		FailureRatio:  format.Ratio(stats.FailedExchanges, stats.TotalExchanges),
		AvgLatency:    format.Latency(stats.AverageLatency),
		Relay:         stats,
		VirtualModels: len(snapshot.VirtualModels),
		Fallback:      snapshot.Enabled,
	}
	if a.Upstream != nil {
		result := a.Upstream.Result()
		resp.UpstreamCheck = &result
	}
	if a.Config != nil {
		resp.Upstream = a.Config.Upstream.GetAddress()
	}
	writeJSON(w, http.StatusOK, resp)
}
