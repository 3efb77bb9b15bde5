package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/thushan/switchback/internal/core/domain"
)

// MakeUserFriendlyError converts socket level failures from an upstream attempt into
// a message an operator can act on. The relay uses it for log lines and as the body
// of synthesised 502 responses, so the text must not carry request content.
func MakeUserFriendlyError(err error, duration time.Duration, address string) error {
	if err == nil {
		return nil
	}

	secs := duration.Seconds()

	switch {
	case errors.Is(err, domain.ErrInvalidPort):
		return fmt.Errorf("upstream port is not configured correctly (%s)", address)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("request cancelled after %.1fs - client disconnected", secs)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("connect timeout after %.1fs - upstream at %s did not accept the connection", secs, address)
	case errors.Is(err, io.EOF):
		return fmt.Errorf("upstream closed connection after %.1fs before responding", secs)
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case "dial":
			if opErr.Timeout() {
				return fmt.Errorf("connect timeout after %.1fs - upstream at %s did not accept the connection", secs, address)
			}
			if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
				return fmt.Errorf("connection refused after %.1fs - nothing is listening on %s (is the aggregator running?)", secs, address)
			}
			return fmt.Errorf("connection failed after %.1fs - cannot reach upstream at %s", secs, address)
		case "read":
			return fmt.Errorf("connection lost after %.1fs while reading response - upstream disconnected", secs)
		case "write":
			return fmt.Errorf("connection lost after %.1fs while sending request - upstream unavailable", secs)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("network timeout after %.1fs talking to %s", secs, address)
	}

	errStr := err.Error()
	switch {
	case strings.Contains(errStr, "connection refused"):
		return fmt.Errorf("connection refused after %.1fs - nothing is listening on %s (is the aggregator running?)", secs, address)
	case strings.Contains(errStr, "connection reset"):
		return fmt.Errorf("connection reset after %.1fs - upstream closed connection unexpectedly", secs)
	case strings.Contains(errStr, "broken pipe"):
		return fmt.Errorf("broken pipe after %.1fs - upstream stopped reading the request", secs)
	}

	return fmt.Errorf("upstream request failed after %.1fs: %w", secs, err)
}
