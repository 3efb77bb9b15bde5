package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeEntries() []FallbackEntry {
	return []FallbackEntry{
		{ID: "claude:a", Provider: ProviderClaude, ModelID: "a", Priority: 1},
		{ID: "gemini:b", Provider: ProviderGemini, ModelID: "b", Priority: 2},
		{ID: "codex:c", Provider: ProviderCodex, ModelID: "c", Priority: 3},
	}
}

func TestParseProvider(t *testing.T) {
	tests := []struct {
		name   string
		want   Provider
		wantOK bool
	}{
		{"claude", ProviderClaude, true},
		{"antigravity", ProviderAntigravity, true},
		{"Claude", ProviderUnknown, false},
		{"", ProviderUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseProvider(tt.name)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVirtualModel_SortedEntriesIsStable(t *testing.T) {
	vm := VirtualModel{Entries: []FallbackEntry{
		{ID: "late", Priority: 5},
		{ID: "first-tie", Priority: 1},
		{ID: "second-tie", Priority: 1},
	}}

	sorted := vm.SortedEntries()
	assert.Equal(t, []string{"first-tie", "second-tie", "late"}, []string{sorted[0].ID, sorted[1].ID, sorted[2].ID})
	assert.Equal(t, "late", vm.Entries[0].ID, "configured order must not change")
}

func TestFallbackSnapshot_Lookup(t *testing.T) {
	snap := FallbackSnapshot{
		Enabled: true,
		VirtualModels: []VirtualModel{
			{Name: "smart", Enabled: true},
			{Name: "paused", Enabled: false},
		},
	}

	_, ok := snap.Lookup("smart")
	assert.True(t, ok)
	_, ok = snap.Lookup("paused")
	assert.False(t, ok)
	_, ok = snap.Lookup("SMART")
	assert.False(t, ok)
	_, ok = snap.Lookup("")
	assert.False(t, ok)

	snap.Enabled = false
	_, ok = snap.Lookup("smart")
	assert.False(t, ok)
}

func TestNewFallbackContext(t *testing.T) {
	tests := []struct {
		name      string
		entries   []FallbackEntry
		start     int
		fromCache bool
		wantIndex int
		wantCache bool
		wantFB    bool
	}{
		{name: "no entries", entries: nil, start: 0, wantFB: false},
		{name: "first entry", entries: threeEntries(), start: 0, wantFB: true},
		{name: "cached start", entries: threeEntries(), start: 2, fromCache: true, wantIndex: 2, wantCache: true, wantFB: true},
		{name: "out of range start", entries: threeEntries(), start: 7, fromCache: true, wantIndex: 0, wantCache: false, wantFB: true},
		{name: "negative start", entries: threeEntries(), start: -1, wantIndex: 0, wantFB: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fc := NewFallbackContext("smart", tt.entries, []byte(`{}`), tt.start, tt.fromCache)
			assert.Equal(t, tt.wantFB, fc.HasFallback())
			assert.Equal(t, tt.wantIndex, fc.CurrentIndex)
			assert.Equal(t, tt.wantCache, fc.WasLoadedFromCache)
		})
	}
}

func TestFallbackContext_AdvanceIsPure(t *testing.T) {
	fc := NewFallbackContext("smart", threeEntries(), []byte(`{"model":"smart"}`), 0, false)

	first, ok := fc.Advance(NewTriggerReason(TriggerQuotaExceeded))
	require.True(t, ok)
	assert.Equal(t, 0, fc.CurrentIndex)
	assert.Empty(t, fc.Attempts)

	assert.Equal(t, 1, first.CurrentIndex)
	require.Len(t, first.Attempts, 1)
	assert.Equal(t, "claude:a", first.Attempts[0].Entry.ID)
	assert.Equal(t, OutcomeFailed, first.Attempts[0].Outcome)

	// two advances from the same context must not share an attempts array
	branchA, _ := first.Advance(NewTriggerReason(TriggerRateLimited))
	branchB, _ := first.Advance(HTTPStatusReason(503))
	assert.Equal(t, TriggerRateLimited, branchA.Attempts[1].Reason.Kind)
	assert.Equal(t, TriggerHTTPStatus, branchB.Attempts[1].Reason.Kind)

	last, ok := branchA.Advance(NewTriggerReason(TriggerOverloaded))
	assert.False(t, ok)
	assert.Equal(t, branchA.CurrentIndex, last.CurrentIndex)
	assert.Len(t, last.Attempts, 2)
	assert.False(t, last.HasNext())
}

func TestFallbackContext_Sanitization(t *testing.T) {
	fc := NewFallbackContext("smart", threeEntries(), nil, 1, false)
	require.True(t, fc.CanSanitize())

	marked := fc.MarkSanitized()
	assert.False(t, marked.CanSanitize())
	assert.True(t, fc.CanSanitize())
	assert.Equal(t, 1, marked.CurrentIndex)

	assert.False(t, EmptyFallbackContext.CanSanitize())
}

func TestFallbackContext_ExercisedFallback(t *testing.T) {
	fresh := NewFallbackContext("smart", threeEntries(), nil, 0, false)
	cached := NewFallbackContext("smart", threeEntries(), nil, 1, true)
	advanced, _ := fresh.Advance(NewTriggerReason(TriggerAuthFailed))

	tests := []struct {
		name   string
		fc     FallbackContext
		failed bool
		want   bool
	}{
		{"no virtual model", EmptyFallbackContext, true, false},
		{"first entry succeeded", fresh, false, false},
		{"first entry failed", fresh, true, true},
		{"started from cache", cached, false, true},
		{"advanced", advanced, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.fc.ExercisedFallback(tt.failed))
		})
	}
}

func TestFallbackContext_WithAttemptOnEmpty(t *testing.T) {
	got := EmptyFallbackContext.WithAttempt(FallbackAttempt{Outcome: OutcomeSkipped})
	assert.Empty(t, got.Attempts)

	_, ok := EmptyFallbackContext.CurrentEntry()
	assert.False(t, ok)
}

func TestFallbackTriggerReason_String(t *testing.T) {
	var nilReason *FallbackTriggerReason
	assert.Equal(t, "", nilReason.String())
	assert.False(t, nilReason.IsThinkingSignature())
	assert.Equal(t, "http_status(429)", HTTPStatusReason(429).String())
	assert.Equal(t, "quota_exceeded", NewTriggerReason(TriggerQuotaExceeded).String())
	assert.True(t, NewTriggerReason(TriggerThinkingSignature).IsThinkingSignature())
}
