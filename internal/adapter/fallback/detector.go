package fallback

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/constants"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
)

// Signature matches an error body when any of Any appears, or when every entry of
// All appears. Patterns are lower case.
type Signature struct {
	Kind domain.TriggerKind
	Any  []string
	All  []string
}

func (s Signature) matches(text string) bool {
	for _, p := range s.Any {
		if strings.Contains(text, p) {
			return true
		}
	}
	if len(s.All) == 0 {
		return false
	}
	for _, p := range s.All {
		if !strings.Contains(text, p) {
			return false
		}
	}
	return true
}

// DefaultSignatures is checked in order, the first match wins. Thinking signature
// errors come first since they select the sanitise-and-retry path.
var DefaultSignatures = []Signature{
	{
		Kind: domain.TriggerThinkingSignature,
		Any:  []string{"thought_signature", "thoughtsignature", "invalid `signature` in `thinking` block"},
		All:  []string{"thinking", "signature"},
	},
	{
		Kind: domain.TriggerQuotaExceeded,
		Any: []string{
			"insufficient_quota", "quota_exceeded", "quota exceeded", "exceeded your current quota",
			"resource_exhausted", "usage limit", "credit balance is too low", "usage_limit_reached",
		},
	},
	{
		Kind: domain.TriggerRateLimited,
		Any:  []string{"rate_limit", "rate limit", "too many requests"},
	},
	{
		Kind: domain.TriggerModelUnavailable,
		Any: []string{
			"model_not_found", "model not found", "unknown model", "unsupported model",
			"auth_unavailable", "no auth available", "model is not available",
		},
	},
	{
		Kind: domain.TriggerOverloaded,
		Any:  []string{"overloaded_error", "overloaded", "server is busy"},
	},
	{
		Kind: domain.TriggerAuthFailed,
		Any:  []string{"authentication_error", "invalid_api_key", "invalid x-api-key", "permission_denied", "token expired"},
	},
}

// DefaultTriggerStatuses advance fallback on status alone when no signature matched
var DefaultTriggerStatuses = []int{401, 402, 403, 408, 429}

// SignatureDetector classifies the start of an upstream response by status code and
// by well known provider error bodies
type SignatureDetector struct {
	signatures      []Signature
	triggerStatuses map[int]struct{}
}

var _ ports.TriggerDetector = (*SignatureDetector)(nil)

func NewSignatureDetector(signatures []Signature, triggerStatuses []int) *SignatureDetector {
	if signatures == nil {
		signatures = DefaultSignatures
	}
	if triggerStatuses == nil {
		triggerStatuses = DefaultTriggerStatuses
	}
	statuses := make(map[int]struct{}, len(triggerStatuses))
	for _, s := range triggerStatuses {
		statuses[s] = struct{}{}
	}
	return &SignatureDetector{signatures: signatures, triggerStatuses: statuses}
}

func NewDefaultDetector() *SignatureDetector {
	return NewSignatureDetector(nil, nil)
}

func (d *SignatureDetector) Detect(response []byte, complete bool) ports.TriggerVerdict {
	header, body, ok := core.SplitResponse(response)
	if !ok {
		return ports.TriggerVerdict{NeedMore: !complete}
	}

	code, ok := core.ParseStatusCode(header)
	if !ok {
		return ports.TriggerVerdict{}
	}

	if domain.IsSuccessStatus(code) {
		return d.detectSuccess(header, body, complete)
	}

	if !complete && !bodyComplete(header, body) {
		return ports.TriggerVerdict{NeedMore: true}
	}

	if kind, found := d.classify(body); found {
		return ports.TriggerVerdict{Reason: domain.NewTriggerReason(kind)}
	}
	if d.isTriggerStatus(code) {
		return ports.TriggerVerdict{Reason: domain.HTTPStatusReason(code)}
	}
	return ports.TriggerVerdict{}
}

// detectSuccess releases a successful response as soon as its first payload bytes
// show a normal stream. An empty body or the start of an error event keeps it held.
func (d *SignatureDetector) detectSuccess(header, body []byte, complete bool) ports.TriggerVerdict {
	payload := payloadStart(header, body)
	pending := !complete && !bodyComplete(header, body)

	if looksLikeErrorPayload(payload) {
		if kind, found := d.classify(payload); found {
			return ports.TriggerVerdict{Reason: domain.NewTriggerReason(kind)}
		}
		return ports.TriggerVerdict{NeedMore: pending && !errorPayloadComplete(payload)}
	}
	return ports.TriggerVerdict{NeedMore: pending && mayBecomeErrorPayload(payload)}
}

func (d *SignatureDetector) isTriggerStatus(code int) bool {
	if code >= 500 {
		return true
	}
	_, ok := d.triggerStatuses[code]
	return ok
}

func (d *SignatureDetector) classify(body []byte) (domain.TriggerKind, bool) {
	text := strings.ToLower(errorText(body))
	if text == "" {
		return "", false
	}
	for _, sig := range d.signatures {
		if sig.matches(text) {
			return sig.Kind, true
		}
	}
	return "", false
}

// errorText pulls the interesting fields out of a JSON error body. Non JSON bodies,
// SSE framed errors and chunked bodies are matched as raw text.
func errorText(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if !gjson.ValidBytes(trimmed) {
		return string(trimmed)
	}

	parsed := gjson.ParseBytes(trimmed)
	if parsed.IsArray() {
		// gemini wraps errors in a single element array
		parsed = parsed.Get("0")
	}

	var parts []string
	for _, path := range []string{"error.type", "error.code", "error.status", "error.message", "error", "type", "code", "message", "detail"} {
		v := parsed.Get(path)
		if v.Exists() && v.Type != gjson.JSON {
			parts = append(parts, v.String())
		}
	}
	if len(parts) == 0 {
		return string(trimmed)
	}
	return strings.Join(parts, " ")
}

// errorPrefixes start the error bodies and error events providers send with a
// success status
var errorPrefixes = [][]byte{
	[]byte(`{"error"`),
	[]byte(`[{"error"`),
	[]byte(`{"type":"error"`),
	[]byte("event: error"),
	[]byte(`data: {"error"`),
	[]byte(`data: {"type":"error"`),
}

func looksLikeErrorPayload(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	for _, prefix := range errorPrefixes {
		if bytes.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return bytes.Contains(trimmed, []byte(`"type":"error"`))
}

// mayBecomeErrorPayload reports a payload too short to rule out an error prefix
func mayBecomeErrorPayload(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return true
	}
	for _, prefix := range errorPrefixes {
		if bytes.HasPrefix(prefix, trimmed) {
			return true
		}
	}
	return false
}

// errorPayloadComplete reports a whole JSON document or a terminated SSE event
func errorPayloadComplete(payload []byte) bool {
	trimmed := bytes.TrimSpace(payload)
	return gjson.ValidBytes(trimmed) || bytes.Contains(payload, []byte("\n\n"))
}

// payloadStart skips the size line of a chunked body. It returns nil while that
// line is still arriving.
func payloadStart(header, body []byte) []byte {
	te, ok := core.ResponseHeader(header, constants.HeaderTransferEncoding)
	if !ok || !strings.Contains(strings.ToLower(te), "chunked") {
		return body
	}
	line, rest, found := bytes.Cut(body, []byte("\r\n"))
	if !found {
		return nil
	}
	size, _, _ := bytes.Cut(line, []byte(";"))
	if _, err := strconv.ParseUint(string(bytes.TrimSpace(size)), 16, 64); err != nil {
		return body
	}
	return rest
}

// bodyComplete reports whether an error body is fully buffered, judged from the
// framing the upstream announced
func bodyComplete(header, body []byte) bool {
	if cl, ok := core.ResponseHeader(header, constants.HeaderContentLength); ok {
		n, err := strconv.Atoi(cl)
		return err == nil && len(body) >= n
	}
	if te, ok := core.ResponseHeader(header, constants.HeaderTransferEncoding); ok && strings.Contains(strings.ToLower(te), "chunked") {
		return bytes.HasSuffix(body, []byte("0\r\n\r\n"))
	}
	return false
}
