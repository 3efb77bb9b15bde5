package domain

import "time"

// RequestMetadata is emitted once per client exchange after the client stream closes
type RequestMetadata struct {
	Timestamp          time.Time              `json:"timestamp"`
	FinalReason        *FallbackTriggerReason `json:"final_reason,omitempty"`
	ID                 string                 `json:"id"`
	Method             string                 `json:"method"`
	Path               string                 `json:"path"`
	ClientAddr         string                 `json:"client_addr"`
	RequestedProvider  Provider               `json:"requested_provider"`
	RequestedModel     string                 `json:"requested_model"`
	ResolvedProvider   Provider               `json:"resolved_provider"`
	ResolvedModel      string                 `json:"resolved_model"`
	VirtualModel       string                 `json:"virtual_model,omitempty"`
	ErrorSnippet       string                 `json:"error_snippet,omitempty"`
	Error              string                 `json:"error,omitempty"`
	Attempts           []FallbackAttempt      `json:"attempts,omitempty"`
	Duration           time.Duration          `json:"duration"`
	RequestBytes       int64                  `json:"request_bytes"`
	ResponseBytes      int64                  `json:"response_bytes"`
	StatusCode         int                    `json:"status_code"`
	WasLoadedFromCache bool                   `json:"was_loaded_from_cache"`
}

// Succeeded reports a 2xx final status
func (m RequestMetadata) Succeeded() bool {
	return IsSuccessStatus(m.StatusCode)
}

func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}

// RouteState is the observable record of which entry a virtual model is using
type RouteState struct {
	UpdatedAt    time.Time     `json:"updated_at"`
	VirtualModel string        `json:"virtual_model"`
	Entry        FallbackEntry `json:"entry"`
	Index        int           `json:"index"`
	Total        int           `json:"total"`
}
