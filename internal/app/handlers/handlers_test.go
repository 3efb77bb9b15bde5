package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchback/internal/adapter/health"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
)

type stubRelay struct {
	stats ports.RelayStats
}

func (s stubRelay) Addr() string            { return "127.0.0.1:8318" }
func (s stubRelay) Stats() ports.RelayStats { return s.stats }

type stubRoutes struct {
	snapshot domain.FallbackSnapshot
	states   []domain.RouteState
	cached   map[string]string
}

func (s stubRoutes) Snapshot() domain.FallbackSnapshot { return s.snapshot }
func (s stubRoutes) RouteStates() []domain.RouteState  { return s.states }
func (s stubRoutes) CachedEntries() map[string]string  { return s.cached }

type stubHistory struct {
	err       error
	records   []domain.RequestMetadata
	lastLimit int
}

func (s *stubHistory) Recent(_ context.Context, limit int) ([]domain.RequestMetadata, error) {
	s.lastLimit = limit
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

var (
	claudeA = domain.FallbackEntry{ID: "claude:a", Provider: domain.ProviderClaude, ModelID: "a", Priority: 1}
	geminiB = domain.FallbackEntry{ID: "gemini:b", Provider: domain.ProviderGemini, ModelID: "b", Priority: 2}
)

func newTestApp(history HistoryView, metrics http.Handler, profiling bool) http.Handler {
	cfg := config.DefaultConfig()
	cfg.Admin.Profiling = profiling

	routes := stubRoutes{
		snapshot: domain.FallbackSnapshot{
			Enabled: true,
			VirtualModels: []domain.VirtualModel{
				{Name: "smart", Enabled: true, Entries: []domain.FallbackEntry{geminiB, claudeA}},
				{Name: "idle", Enabled: false},
			},
		},
		states: []domain.RouteState{{VirtualModel: "smart", Entry: geminiB, Index: 1, Total: 2}},
		cached: map[string]string{"smart": "gemini:b"},
	}
	relay := stubRelay{stats: ports.RelayStats{TotalExchanges: 4, FallbackAdvances: 1}}
	log := logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	return NewApplication(cfg, relay, routes, history, metrics, log).Router()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthAndVersion(t *testing.T) {
	h := newTestApp(nil, nil, false)

	rec := get(t, h, "/internal/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = get(t, h, "/version")
	require.Equal(t, http.StatusOK, rec.Code)
	var v VersionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, "switchback", v.Name)
}

type stubUpstream struct{}

func (stubUpstream) Result() health.Result {
	return health.Result{Status: health.StatusOffline, ConsecutiveFailures: 2}
}

func TestHealthHandler_UpstreamState(t *testing.T) {
	app := NewApplication(config.DefaultConfig(), stubRelay{}, stubRoutes{}, nil, nil,
		logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	app.Upstream = stubUpstream{}

	rec := get(t, app.Router(), "/internal/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"degraded","upstream":"offline"}`, rec.Body.String())
}

func TestStatusHandler(t *testing.T) {
	rec := get(t, newTestApp(nil, nil, false), "/internal/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "127.0.0.1:8318", resp.Listen)
	assert.Equal(t, "127.0.0.1:8317", resp.Upstream)
	assert.Equal(t, int64(4), resp.Relay.TotalExchanges)
	assert.Equal(t, 2, resp.VirtualModels)
	assert.True(t, resp.Fallback)
	assert.Nil(t, resp.UpstreamCheck)
}

func TestStatusHandler_IncludesUpstreamProbe(t *testing.T) {
	cfg := config.DefaultConfig()
	app := NewApplication(cfg, stubRelay{}, stubRoutes{}, nil, nil,
		logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	app.Upstream = stubUpstream{}

	rec := get(t, app.Router(), "/internal/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.UpstreamCheck)
	assert.Equal(t, health.StatusOffline, resp.UpstreamCheck.Status)
	assert.Equal(t, 2, resp.UpstreamCheck.ConsecutiveFailures)
}

func TestRoutesHandler(t *testing.T) {
	rec := get(t, newTestApp(nil, nil, false), "/internal/routes")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp RoutesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.VirtualModels, 2)

	smart := resp.VirtualModels[0]
	assert.Equal(t, "smart", smart.Name)
	assert.Equal(t, []string{"claude:a", "gemini:b"}, []string{smart.Entries[0].ID, smart.Entries[1].ID})
	assert.Equal(t, "gemini:b", smart.CachedEntryID)
	require.NotNil(t, smart.Current)
	assert.Equal(t, 1, smart.Current.Index)

	assert.Nil(t, resp.VirtualModels[1].Current)
}

func TestHistoryHandler(t *testing.T) {
	tests := []struct {
		history    *stubHistory
		name       string
		query      string
		wantStatus int
		wantLimit  int
		wantCount  int
	}{
		{name: "default limit", history: &stubHistory{records: []domain.RequestMetadata{{ID: "x"}}}, wantStatus: http.StatusOK, wantLimit: defaultHistoryLimit, wantCount: 1},
		{name: "explicit limit", history: &stubHistory{}, query: "?limit=5", wantStatus: http.StatusOK, wantLimit: 5},
		{name: "capped limit", history: &stubHistory{}, query: "?limit=999999", wantStatus: http.StatusOK, wantLimit: maxHistoryLimit},
		{name: "bad limit", history: &stubHistory{}, query: "?limit=abc", wantStatus: http.StatusBadRequest},
		{name: "store failure", history: &stubHistory{err: errors.New("disk")}, wantStatus: http.StatusInternalServerError, wantLimit: defaultHistoryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := get(t, newTestApp(tt.history, nil, false), "/internal/history"+tt.query)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLimit, tt.history.lastLimit)
			if tt.wantStatus != http.StatusOK {
				return
			}
			var resp HistoryResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCount, resp.Count)
			assert.NotNil(t, resp.Requests)
		})
	}
}

func TestOptionalRoutes(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("# metrics"))
	})

	off := newTestApp(nil, nil, false)
	assert.Equal(t, http.StatusNotFound, get(t, off, "/internal/history").Code)
	assert.Equal(t, http.StatusNotFound, get(t, off, "/metrics").Code)
	assert.Equal(t, http.StatusNotFound, get(t, off, "/debug/pprof/").Code)

	on := newTestApp(&stubHistory{}, metrics, true)
	rec := get(t, on, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# metrics", rec.Body.String())
	assert.Equal(t, http.StatusOK, get(t, on, "/debug/pprof/").Code)
}
