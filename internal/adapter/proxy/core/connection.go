package core

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// IsConnectionError determines if an error means the upstream could not be reached
// or dropped the socket, as opposed to a protocol level failure
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var syscallErr syscall.Errno
	if errors.As(err, &syscallErr) {
		switch syscallErr {
		case syscall.ECONNREFUSED, syscall.ECONNRESET, syscall.ECONNABORTED, syscall.EPIPE:
			return true
		default:
		}
	}

	errStr := strings.ToLower(err.Error())
	connectionErrors := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"network is unreachable",
		"no route to host",
		"connection timed out",
		"i/o timeout",
		"dial tcp",
	}
	for _, pattern := range connectionErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	return false
}

// IsTimeout reports a deadline or dial timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsClosedConn reports errors caused by our own Close racing a read or write
func IsClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed)
}
