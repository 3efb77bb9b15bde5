package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/domain"
)

// attemptResult is what one upstream attempt left behind
type attemptResult struct {
	err        error
	reason     *domain.FallbackTriggerReason
	retry      *retryPlan
	status     int
	dialFailed bool
	sendFailed bool
	emptyReply bool
}

// unreachable reports an attempt that never produced a response
func (r attemptResult) unreachable() bool {
	return r.dialFailed || r.emptyReply
}

func isDialFailure(err error) bool {
	var upErr *domain.UpstreamError
	return errors.As(err, &upErr) && upErr.IsDialFailure()
}

// attempt opens a fresh upstream connection, sends the request once and streams
// the response back
func (ex *exchange) attempt(ctx context.Context, fc domain.FallbackContext, body []byte) attemptResult {
	addr := ex.cfg.GetUpstreamAddress()
	entry, _ := fc.CurrentEntry()
	start := time.Now()

	upstream, err := ex.dial(ctx, addr)
	if err != nil {
		return attemptResult{
			dialFailed: true,
			err: &domain.UpstreamError{
				Err: err, Address: addr, Operation: domain.OpDial,
				EntryID: entry.ID, Latency: time.Since(start),
			},
		}
	}
	defer upstream.Close()

	// closing the socket is the only way to interrupt a blocked read or write
	stop := context.AfterFunc(ctx, func() { _ = upstream.Close() })
	defer stop()

	payload := core.BuildUpstreamRequest(ex.req, body, addr)
	_ = upstream.SetWriteDeadline(time.Now().Add(ex.cfg.GetWriteTimeout()))
	if _, err := upstream.Write(payload); err != nil {
		return attemptResult{
			sendFailed: true,
			err: &domain.UpstreamError{
				Err: err, Address: addr, Operation: domain.OpWrite,
				EntryID: entry.ID, Latency: time.Since(start),
			},
		}
	}

	ex.log.Debug("Request sent upstream", "upstream", addr, "entry", entry.ID, "bytes", len(payload))

	return ex.stream(upstream, fc)
}

func (ex *exchange) dial(ctx context.Context, addr string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   ex.cfg.GetConnectTimeout(),
		KeepAlive: ex.cfg.GetKeepAlive(),
	}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	// token streams are many tiny writes
	if tcpConn, ok := conn.(*net.TCPConn); ok {
		if err := tcpConn.SetNoDelay(DefaultSetNoDelay); err != nil {
			ex.log.Debug("Failed to set NoDelay", "error", err)
		}
	}
	return conn, nil
}

// errEmptyReply stands in for an upstream that closed without sending anything
var errEmptyReply = fmt.Errorf("empty reply from upstream: %w", io.EOF)
