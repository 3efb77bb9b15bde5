package relay

import (
	"context"
	"time"

	"github.com/thushan/switchback/internal/adapter/fallback"
	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/internal/util"
	"github.com/thushan/switchback/pkg/format"
)

// complete runs once per framed request, after the client connection is closed.
// It settles the audit trail, applies the cache write rule and emits metadata.
func (ex *exchange) complete(ctx context.Context, fc domain.FallbackContext, requestedModel string, out outcome) {
	if ex.completed {
		return
	}
	ex.completed = true

	duration := time.Since(ex.startTime)
	status := out.status
	success := domain.IsSuccessStatus(status)

	var finalReason *domain.FallbackTriggerReason
	if status != 0 && !success {
		finalReason = out.reason
		if finalReason == nil {
			finalReason = domain.HTTPStatusReason(status)
		}
	}

	path := ex.req.Target
	if requestedModel == "" {
		requestedModel = fallback.ModelFromPath(path)
	}
	requestedProvider := fallback.DetectProvider(path, requestedModel)

	resolvedModel, resolvedProvider := requestedModel, requestedProvider
	if entry, ok := fc.CurrentEntry(); ok {
		resolvedModel, resolvedProvider = entry.ModelID, entry.Provider

		if fc.ExercisedFallback(!success) {
			attemptOutcome := domain.OutcomeFailed
			if success {
				attemptOutcome = domain.OutcomeSuccess
			}
			fc = fc.WithAttempt(domain.FallbackAttempt{Entry: entry, Outcome: attemptOutcome, Reason: finalReason})
		}

		// only newly discovered routes are cached, a replayed cache hit is already there
		if success && fc.CurrentIndex > 0 && !fc.WasLoadedFromCache {
			ex.svc.store.SetCachedEntryID(fc.VirtualModelName, entry.ID)
			ex.log.InfoWithVirtualModel("Cached fallback route", fc.VirtualModelName, "entry", entry.ID)
		}
	}

	metadata := domain.RequestMetadata{
		ID:                 ex.requestID,
		Timestamp:          ex.startTime,
		Method:             ex.req.Method,
		Path:               path,
		ClientAddr:         ex.clientIP,
		RequestedModel:     requestedModel,
		RequestedProvider:  requestedProvider,
		ResolvedModel:      resolvedModel,
		ResolvedProvider:   resolvedProvider,
		VirtualModel:       fc.VirtualModelName,
		StatusCode:         status,
		Duration:           duration,
		RequestBytes:       ex.req.Size(),
		ResponseBytes:      ex.written,
		Attempts:           fc.Attempts,
		WasLoadedFromCache: fc.WasLoadedFromCache,
		FinalReason:        finalReason,
	}
	if out.err != nil {
		metadata.Error = out.err.Error()
	}
	if !success {
		metadata.ErrorSnippet = ex.errorSnippet()
	}

	ex.svc.stats.RecordExchange(success, duration.Milliseconds(), ex.written)

	logCtx := logger.LogContext{
		UserArgs: []any{
			"status", status,
			"model", resolvedModel,
			"duration_ms", duration.Milliseconds(),
			"bytes", ex.written,
		},
		DetailedArgs: []any{
			"attempts", format.Attempts(attemptIDs(fc.Attempts)),
			"requested_model", requestedModel,
			"client", ex.clientIP,
			"request_bytes", metadata.RequestBytes,
			"from_cache", fc.WasLoadedFromCache,
		},
	}
	subject := metadata.Method + " " + path
	switch {
	case success:
		ex.log.InfoWithContext("Request completed", subject, logCtx)
	case status == 0:
		logCtx.UserArgs = append(logCtx.UserArgs, "error", metadata.Error)
		ex.log.WarnWithContext("Request ended without a response", subject, logCtx)
	default:
		logCtx.UserArgs = append(logCtx.UserArgs, "reason", finalReason.String())
		ex.log.WarnWithContext("Request failed", subject, logCtx)
	}

	if ex.svc.sink == nil {
		return
	}
	// the exchange context may already be cancelled, the record must still go out
	sinkCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sinkPublishTimeout)
	defer cancel()
	ex.svc.sink.RequestCompleted(sinkCtx, metadata)
}

func (ex *exchange) errorSnippet() string {
	_, body, ok := core.SplitResponse(ex.head)
	if !ok || len(body) == 0 {
		return ""
	}
	return util.TruncateLog(string(body), DefaultSnippetBytes)
}

func attemptIDs(attempts []domain.FallbackAttempt) []string {
	ids := make([]string, 0, len(attempts))
	for _, a := range attempts {
		ids = append(ids, a.Entry.ID)
	}
	return ids
}
