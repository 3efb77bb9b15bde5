package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsUnwrap(t *testing.T) {
	framing := &FramingError{Err: ErrMalformedRequest, Message: "Invalid request format"}
	assert.ErrorIs(t, framing, ErrMalformedRequest)
	assert.Contains(t, framing.Error(), "Invalid request format")

	cfg := &ConfigError{Field: "upstream.port", Value: 0, Err: ErrInvalidPort}
	assert.ErrorIs(t, cfg, ErrInvalidPort)
	assert.Equal(t, "invalid config upstream.port=0: invalid port", cfg.Error())
}

func TestUpstreamError(t *testing.T) {
	base := errors.New("connection refused")

	dial := &UpstreamError{Err: base, Address: "127.0.0.1:8317", Operation: OpDial, EntryID: "claude:a"}
	assert.True(t, dial.IsDialFailure())
	assert.ErrorIs(t, dial, base)
	assert.Contains(t, dial.Error(), "(entry claude:a)")

	read := &UpstreamError{Err: base, Address: "127.0.0.1:8317", Operation: OpRead}
	assert.False(t, read.IsDialFailure())
	assert.NotContains(t, read.Error(), "entry")
}

func TestRequestMetadata_Succeeded(t *testing.T) {
	for code, want := range map[int]bool{200: true, 204: true, 299: true, 301: false, 429: false, 0: false} {
		assert.Equal(t, want, RequestMetadata{StatusCode: code}.Succeeded(), "status %d", code)
	}
}
