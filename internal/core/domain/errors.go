package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidPort        = errors.New("invalid port")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrHeaderTooLarge     = errors.New("request header too large")
	ErrInvalidContentLen  = errors.New("invalid content-length")
	ErrClientClosed       = errors.New("client closed connection")
	ErrFallbackExhausted  = errors.New("fallback candidates exhausted")
	ErrRelayAlreadyActive = errors.New("relay already running")
)

// FramingError is raised while assembling a client request. Message is what the
// client receives in the synthetic 400 body.
type FramingError struct {
	Err     error
	Message string
}

func (e *FramingError) Error() string {
	return fmt.Sprintf("framing failed: %s: %v", e.Message, e.Err)
}

func (e *FramingError) Unwrap() error {
	return e.Err
}

// UpstreamError describes a failed upstream attempt
type UpstreamError struct {
	Err       error
	Address   string
	Operation string
	EntryID   string
	Latency   time.Duration
}

func (e *UpstreamError) Error() string {
	if e.EntryID != "" {
		return fmt.Sprintf("upstream %s failed for %s (entry %s) after %v: %v", e.Operation, e.Address, e.EntryID, e.Latency, e.Err)
	}
	return fmt.Sprintf("upstream %s failed for %s after %v: %v", e.Operation, e.Address, e.Latency, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsDialFailure reports whether the attempt never reached the upstream
func (e *UpstreamError) IsDialFailure() bool {
	return e.Operation == OpDial
}

const (
	OpDial  = "dial"
	OpWrite = "write"
	OpRead  = "read"
)

type ConfigError struct {
	Err   error
	Field string
	Value any
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s=%v: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
