package relay

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/domain"
)

// stream copies the upstream response to the client. While the exchange still has
// somewhere else to go, the leading bytes are held back and offered to the
// detector until it returns a verdict or the inspection threshold is passed.
func (ex *exchange) stream(upstream net.Conn, fc domain.FallbackContext) attemptResult {
	buf := ex.svc.bufferPool.Get()
	defer ex.svc.bufferPool.Put(buf)

	threshold := ex.cfg.GetInspectionThreshold()
	inspecting := fc.HasNext() || fc.CanSanitize()

	var (
		held     []byte
		received int
		result   attemptResult
	)

	// release hands held bytes to the client and ends inspection for this attempt
	release := func() error {
		inspecting = false
		if len(held) == 0 {
			return nil
		}
		_, err := ex.forward(held)
		held = nil
		return err
	}

	// offer shows the detector the inspection window and returns true when the
	// attempt should be dropped in favour of a retry
	offer := func(complete bool) bool {
		verdict := ex.svc.detector.Detect(held[:min(len(held), threshold)], complete)
		switch {
		case verdict.Reason != nil:
			if plan, ok := ex.planRetry(fc, verdict.Reason); ok {
				result.retry = plan
				result.reason = verdict.Reason
				return true
			}
			result.reason = verdict.Reason
			inspecting = false
		case !verdict.NeedMore:
			inspecting = false
		}
		return false
	}

	for {
		_ = upstream.SetReadDeadline(time.Now().Add(ex.cfg.GetReadTimeout()))
		n, readErr := upstream.Read(buf.B)

		if n > 0 {
			received += n
			chunk := buf.B[:n]

			if inspecting {
				held = append(held, chunk...)
				// a full window gets a final verdict, later bytes are never inspected
				windowFull := len(held) >= threshold
				if offer(windowFull) {
					ex.log.Debug("Discarding triggered response", "reason", result.reason.String(), "bytes", len(held))
					return result
				}
				if !inspecting || windowFull {
					if err := release(); err != nil {
						return ex.clientWriteFailed(result, err)
					}
				}
			} else if _, err := ex.forward(chunk); err != nil {
				return ex.clientWriteFailed(result, err)
			}
		}

		if readErr == nil {
			continue
		}

		if errors.Is(readErr, io.EOF) {
			if received == 0 {
				result.emptyReply = true
				result.err = errEmptyReply
				return result
			}
			if inspecting && offer(true) {
				return result
			}
			if err := release(); err != nil {
				return ex.clientWriteFailed(result, err)
			}
			break
		}

		// whatever was held is still the best answer the client can get
		if err := release(); err != nil {
			return ex.clientWriteFailed(result, err)
		}
		if received == 0 && !core.IsClosedConn(readErr) {
			result.emptyReply = true
		}
		result.err = &domain.UpstreamError{
			Err: readErr, Address: ex.cfg.GetUpstreamAddress(), Operation: domain.OpRead,
		}
		break
	}

	result.status, _ = core.ParseStatusCode(ex.head)
	return result
}

func (ex *exchange) clientWriteFailed(result attemptResult, err error) attemptResult {
	result.err = err
	result.status, _ = core.ParseStatusCode(ex.head)
	ex.cancel(domain.ErrClientClosed)
	return result
}
