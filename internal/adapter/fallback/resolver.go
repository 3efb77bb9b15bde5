package fallback

import (
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
)

// Resolution is what the resolver hands to the forwarder
type Resolution struct {
	Body           []byte
	RequestedModel string
	Context        domain.FallbackContext
}

// Resolver decides whether a request names a virtual model and, if so, which
// concrete entry the first attempt targets
type Resolver struct {
	store  ports.RouteStore
	logger logger.StyledLogger
}

func NewResolver(store ports.RouteStore, logger logger.StyledLogger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve never fails: anything it cannot understand is forwarded untouched with
// the empty context
func (r *Resolver) Resolve(body []byte) Resolution {
	passthrough := Resolution{Body: body, Context: domain.EmptyFallbackContext}

	model, ok := PeekModel(body)
	if !ok {
		return passthrough
	}
	passthrough.RequestedModel = model

	vm, ok := r.store.Snapshot().Lookup(model)
	if !ok {
		return passthrough
	}

	entries := vm.SortedEntries()
	if len(entries) == 0 {
		return passthrough
	}

	start, fromCache := 0, false
	if id, ok := r.store.GetCachedEntryID(vm.Name); ok {
		if idx := indexOfEntry(entries, id); idx >= 0 {
			start, fromCache = idx, true
		} else {
			r.logger.Debug("Cached fallback entry no longer configured", "virtual_model", vm.Name, "entry_id", id)
		}
	}

	fc := domain.NewFallbackContext(vm.Name, entries, body, start, fromCache)
	entry, _ := fc.CurrentEntry()
	if fromCache {
		fc = fc.WithAttempt(domain.FallbackAttempt{
			Entry:   entry,
			Outcome: domain.OutcomeSkipped,
			Reason:  domain.NewTriggerReason(domain.TriggerCachedRoute),
		})
	}

	rewritten, err := RewriteModel(body, entry.ModelID)
	if err != nil {
		r.logger.Warn("Unable to rewrite request for virtual model, forwarding unchanged",
			"virtual_model", vm.Name, "error", err)
		return passthrough
	}

	r.store.UpdateRouteState(vm.Name, fc.CurrentIndex, entry, len(entries))

	return Resolution{
		Body:           rewritten,
		RequestedModel: model,
		Context:        fc,
	}
}

// BodyForCurrent rewrites the original body for the context's current entry
func BodyForCurrent(fc domain.FallbackContext) ([]byte, error) {
	entry, ok := fc.CurrentEntry()
	if !ok {
		return fc.OriginalBody, nil
	}
	return RewriteModel(fc.OriginalBody, entry.ModelID)
}

// SanitizedBodyForCurrent strips reasoning blocks from the original body and targets
// the current entry. ok is false when sanitising would not change anything.
func SanitizedBodyForCurrent(fc domain.FallbackContext) ([]byte, bool, error) {
	sanitized, changed, err := SanitizeThinking(fc.OriginalBody)
	if err != nil || !changed {
		return nil, false, err
	}
	entry, ok := fc.CurrentEntry()
	if !ok {
		return sanitized, true, nil
	}
	out, err := RewriteModel(sanitized, entry.ModelID)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func indexOfEntry(entries []domain.FallbackEntry, id string) int {
	for i, e := range entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}
