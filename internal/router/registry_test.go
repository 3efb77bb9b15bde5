package router

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/thushan/switchback/internal/logger"
)

func TestRouteRegistry_WireUp(t *testing.T) {
	reg := NewRouteRegistry(logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	reg.Register("/a", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("a"))
	}, "first")
	reg.RegisterWithMethod("/b", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}, "second", http.MethodPost)

	sub := chi.NewRouter()
	sub.Get("/inner", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("inner"))
	})
	reg.Mount("/sub", sub, "mounted")

	mux := chi.NewRouter()
	reg.WireUp(mux)

	assert.Equal(t, []string{"/a", "/b", "/sub"}, reg.ordered())

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{method: http.MethodGet, path: "/a", status: http.StatusOK, body: "a"},
		{method: http.MethodPost, path: "/b", status: http.StatusAccepted},
		{method: http.MethodPost, path: "/a", status: http.StatusMethodNotAllowed},
		{method: http.MethodGet, path: "/sub/inner", status: http.StatusOK, body: "inner"},
		{method: http.MethodGet, path: "/missing", status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}
