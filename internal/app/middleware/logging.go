package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/thushan/switchback/internal/core/constants"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/pkg/format"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"
	LoggerKey    contextKey = "logger"
)

// responseWriter captures status and size for the completion log line
type responseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += int64(size)
	return size, err
}

func (rw *responseWriter) WriteHeader(s int) {
	rw.status = s
	rw.ResponseWriter.WriteHeader(s)
}

// Flush keeps pprof traces and long profiles streaming
func (rw *responseWriter) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func GetLogger(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// LoggingMiddleware tags each admin request with an id and logs it. Scrapes and
// health probes are frequent, so they only log at debug.
func LoggingMiddleware(styledLogger logger.StyledLogger) func(http.Handler) http.Handler {
	base := styledLogger.GetUnderlying()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get(constants.HeaderRequestID)
			if requestID == "" {
				requestID = uuid.NewString()
			}

			reqLogger := base.With(string(constants.ContextRequestIDKey), requestID)
			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = context.WithValue(ctx, LoggerKey, reqLogger)

			w.Header().Set(constants.HeaderRequestID, requestID)
			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r.WithContext(ctx))

			duration := time.Since(start)
			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration", format.Duration(duration),
				"response_bytes", wrapped.size,
				"remote_addr", r.RemoteAddr,
			}
			if isQuiet(r.URL.Path) {
				reqLogger.Debug("Admin request completed", fields...)
				return
			}
			reqLogger.Info("Admin request completed", fields...)

			// full access record for the log file only
			detailedCtx := context.WithValue(r.Context(), logger.DefaultDetailedCookie, true)
			reqLogger.InfoContext(detailedCtx, "Access log",
				"timestamp", start.Format(time.RFC3339),
				"query", r.URL.RawQuery,
				"user_agent", r.UserAgent(),
				"size", format.Bytes(uint64(wrapped.size)))
		})
	}
}

func isQuiet(path string) bool {
	return path == constants.DefaultHealthCheckEndpoint || path == constants.PathMetrics
}
