package handlers

import (
	"net/http"
	"strconv"

	"github.com/thushan/switchback/internal/app/middleware"
	"github.com/thushan/switchback/internal/core/domain"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 1000
)

type HistoryResponse struct {
	Requests []domain.RequestMetadata `json:"requests"`
	Count    int                      `json:"count"`
}

func (a *Application) historyHandler(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	records, err := a.History.Recent(r.Context(), limit)
	if err != nil {
		middleware.GetLogger(r.Context()).Error("Failed to read request history", "error", err)
		http.Error(w, "Failed to read request history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []domain.RequestMetadata{}
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Requests: records, Count: len(records)})
}
