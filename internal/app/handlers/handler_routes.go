package handlers

import (
	"net/http"
	"time"

	"github.com/thushan/switchback/internal/core/domain"
)

type RouteSummary struct {
	Current       *domain.RouteState     `json:"current,omitempty"`
	Name          string                 `json:"name"`
	CachedEntryID string                 `json:"cached_entry_id,omitempty"`
	Entries       []domain.FallbackEntry `json:"entries"`
	Enabled       bool                   `json:"enabled"`
}

type RoutesResponse struct {
	Timestamp     time.Time      `json:"timestamp"`
	VirtualModels []RouteSummary `json:"virtual_models"`
	Enabled       bool           `json:"enabled"`
}

func (a *Application) routesHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := a.Routes.Snapshot()
	cached := a.Routes.CachedEntries()

	states := make(map[string]domain.RouteState)
	for _, s := range a.Routes.RouteStates() {
		states[s.VirtualModel] = s
	}

	summaries := make([]RouteSummary, 0, len(snapshot.VirtualModels))
	for _, vm := range snapshot.VirtualModels {
		summary := RouteSummary{
			Name:          vm.Name,
			Enabled:       vm.Enabled,
			Entries:       vm.SortedEntries(),
			CachedEntryID: cached[vm.Name],
		}
		if s, ok := states[vm.Name]; ok {
			summary.Current = &s
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, http.StatusOK, RoutesResponse{
		Timestamp:     time.Now(),
		Enabled:       snapshot.Enabled,
		VirtualModels: summaries,
	})
}
