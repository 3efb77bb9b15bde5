package domain

import (
	"slices"
	"strconv"
)

// Provider identifies the upstream account family a fallback entry is served by.
// The aggregator routes on the model id, the provider is carried for audit and display.
type Provider string

const (
	ProviderClaude      Provider = "claude"
	ProviderCodex       Provider = "codex"
	ProviderGemini      Provider = "gemini"
	ProviderQwen        Provider = "qwen"
	ProviderIFlow       Provider = "iflow"
	ProviderAntigravity Provider = "antigravity"
	ProviderUnknown     Provider = "unknown"
)

var knownProviders = []Provider{
	ProviderClaude,
	ProviderCodex,
	ProviderGemini,
	ProviderQwen,
	ProviderIFlow,
	ProviderAntigravity,
}

// ParseProvider maps a configured provider name onto a known Provider.
func ParseProvider(name string) (Provider, bool) {
	p := Provider(name)
	if slices.Contains(knownProviders, p) {
		return p, true
	}
	return ProviderUnknown, false
}

func (p Provider) String() string {
	return string(p)
}

// FallbackEntry is one concrete (provider, model) candidate of a virtual model
type FallbackEntry struct {
	ID       string   `json:"id"`
	Provider Provider `json:"provider"`
	ModelID  string   `json:"model"`
	Priority int      `json:"priority"`
}

// VirtualModel is the client facing model name mapped to an ordered candidate list
type VirtualModel struct {
	Name    string          `json:"name"`
	Entries []FallbackEntry `json:"entries"`
	Enabled bool            `json:"enabled"`
}

// SortedEntries returns a copy of the entries ordered by priority. Entries sharing
// a priority keep their configured order.
func (vm VirtualModel) SortedEntries() []FallbackEntry {
	entries := slices.Clone(vm.Entries)
	slices.SortStableFunc(entries, func(a, b FallbackEntry) int {
		return a.Priority - b.Priority
	})
	return entries
}

// FallbackSnapshot is the read-only view of virtual model settings taken per request
type FallbackSnapshot struct {
	VirtualModels []VirtualModel
	Enabled       bool
}

// Lookup finds an enabled virtual model by exact name
func (s FallbackSnapshot) Lookup(name string) (VirtualModel, bool) {
	if !s.Enabled || name == "" {
		return VirtualModel{}, false
	}
	for _, vm := range s.VirtualModels {
		if vm.Name == name && vm.Enabled {
			return vm, true
		}
	}
	return VirtualModel{}, false
}

type TriggerKind string

const (
	TriggerHTTPStatus          TriggerKind = "http_status"
	TriggerQuotaExceeded       TriggerKind = "quota_exceeded"
	TriggerRateLimited         TriggerKind = "rate_limited"
	TriggerThinkingSignature   TriggerKind = "thinking_signature"
	TriggerModelUnavailable    TriggerKind = "model_unavailable"
	TriggerAuthFailed          TriggerKind = "auth_failed"
	TriggerOverloaded          TriggerKind = "overloaded"
	TriggerProviderError       TriggerKind = "provider_error"
	TriggerUpstreamUnreachable TriggerKind = "upstream_unreachable"
	TriggerCachedRoute         TriggerKind = "cached_route"
)

// FallbackTriggerReason classifies why a response counts as a provider side failure.
// StatusCode is only meaningful for TriggerHTTPStatus.
type FallbackTriggerReason struct {
	Kind       TriggerKind `json:"kind"`
	StatusCode int         `json:"status_code,omitempty"`
}

func HTTPStatusReason(code int) *FallbackTriggerReason {
	return &FallbackTriggerReason{Kind: TriggerHTTPStatus, StatusCode: code}
}

func NewTriggerReason(kind TriggerKind) *FallbackTriggerReason {
	return &FallbackTriggerReason{Kind: kind}
}

func (r *FallbackTriggerReason) IsThinkingSignature() bool {
	return r != nil && r.Kind == TriggerThinkingSignature
}

func (r *FallbackTriggerReason) String() string {
	if r == nil {
		return ""
	}
	if r.Kind == TriggerHTTPStatus {
		return string(r.Kind) + "(" + strconv.Itoa(r.StatusCode) + ")"
	}
	return string(r.Kind)
}

type AttemptOutcome string

const (
	OutcomeSuccess AttemptOutcome = "success"
	OutcomeFailed  AttemptOutcome = "failed"
	OutcomeSkipped AttemptOutcome = "skipped"
)

// FallbackAttempt is one concluded attempt in the audit trail
type FallbackAttempt struct {
	Reason  *FallbackTriggerReason `json:"reason,omitempty"`
	Entry   FallbackEntry          `json:"entry"`
	Outcome AttemptOutcome         `json:"outcome"`
}

// FallbackContext tracks virtual model routing for a single client exchange.
// It is a value type: every transition returns a new context and never touches
// the receiver, so a context captured by an earlier attempt stays valid.
type FallbackContext struct {
	VirtualModelName   string
	Entries            []FallbackEntry
	OriginalBody       []byte
	Attempts           []FallbackAttempt
	CurrentIndex       int
	WasLoadedFromCache bool
	TriedSanitization  bool
}

// EmptyFallbackContext is the context for requests that do not name a virtual model
var EmptyFallbackContext = FallbackContext{}

// NewFallbackContext seeds a context at startIndex. A non-empty entry list is required
// for HasFallback to report true.
func NewFallbackContext(name string, entries []FallbackEntry, originalBody []byte, startIndex int, fromCache bool) FallbackContext {
	if len(entries) == 0 {
		return EmptyFallbackContext
	}
	if startIndex < 0 || startIndex >= len(entries) {
		startIndex = 0
		fromCache = false
	}
	return FallbackContext{
		VirtualModelName:   name,
		Entries:            slices.Clone(entries),
		OriginalBody:       originalBody,
		CurrentIndex:       startIndex,
		WasLoadedFromCache: fromCache,
	}
}

func (fc FallbackContext) HasFallback() bool {
	return len(fc.Entries) > 0
}

func (fc FallbackContext) HasNext() bool {
	return fc.HasFallback() && fc.CurrentIndex+1 < len(fc.Entries)
}

// CurrentEntry returns the entry the next attempt targets
func (fc FallbackContext) CurrentEntry() (FallbackEntry, bool) {
	if !fc.HasFallback() {
		return FallbackEntry{}, false
	}
	return fc.Entries[fc.CurrentIndex], true
}

// CanSanitize reports whether the one-shot sanitisation retry is still available
func (fc FallbackContext) CanSanitize() bool {
	return fc.HasFallback() && !fc.TriedSanitization
}

// WithAttempt returns a copy with the attempt appended
func (fc FallbackContext) WithAttempt(attempt FallbackAttempt) FallbackContext {
	if !fc.HasFallback() {
		return fc
	}
	next := fc
	next.Attempts = append(slices.Clip(fc.Attempts), attempt)
	return next
}

// Advance records the failed current entry and moves to the next candidate.
// The boolean is false when no candidate remains, in which case the receiver is
// returned unchanged.
func (fc FallbackContext) Advance(reason *FallbackTriggerReason) (FallbackContext, bool) {
	if !fc.HasNext() {
		return fc, false
	}
	current := fc.Entries[fc.CurrentIndex]
	next := fc.WithAttempt(FallbackAttempt{Entry: current, Outcome: OutcomeFailed, Reason: reason})
	next.CurrentIndex = fc.CurrentIndex + 1
	return next, true
}

// MarkSanitized flips the one-shot sanitisation guard. The index does not move.
func (fc FallbackContext) MarkSanitized() FallbackContext {
	next := fc
	next.TriedSanitization = true
	return next
}

// ExercisedFallback reports whether the exchange used fallback in a way worth auditing
func (fc FallbackContext) ExercisedFallback(failed bool) bool {
	if !fc.HasFallback() {
		return false
	}
	return fc.WasLoadedFromCache || fc.CurrentIndex > 0 || len(fc.Attempts) > 0 || failed
}
