package relay

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/thushan/switchback/internal/adapter/fallback"
	"github.com/thushan/switchback/internal/adapter/proxy/common"
	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/constants"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/internal/util"
)

// exchange is one client connection carrying one request through every attempt
type exchange struct {
	startTime time.Time
	svc       *Service
	cfg       *Configuration
	client    net.Conn
	log       logger.StyledLogger
	req       *core.Request
	cancel    context.CancelCauseFunc
	connID    string
	requestID string
	clientIP  string
	head      []byte // leading bytes of what the client was sent
	written   int64
	completed bool
	finished  atomic.Bool
}

func (s *Service) serve(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()
	defer s.release()

	connID := util.GenerateConnID()
	ex := &exchange{
		svc:       s,
		cfg:       s.config(),
		client:    conn,
		connID:    connID,
		clientIP:  conn.RemoteAddr().String(),
		startTime: time.Now(),
		log:       s.logger.With(string(constants.ContextConnIDKey), connID),
	}

	defer func() {
		if rec := recover(); rec != nil {
			ex.log.Error("Connection handler panic recovered",
				"panic", rec,
				"stack", string(debug.Stack()))
			if ex.written == 0 {
				ex.respond(http.StatusInternalServerError, core.MsgInternalError)
			}
			if ex.req != nil && !ex.completed {
				ex.complete(ctx, domain.EmptyFallbackContext, "", outcome{status: http.StatusInternalServerError, err: errPanic})
			}
			ex.closeClient()
		}
	}()

	ex.run(ctx)
}

var errPanic = errors.New("relay panic recovered")

func (ex *exchange) run(parent context.Context) {
	ctx, cancel := context.WithCancelCause(parent)
	ex.cancel = cancel
	defer cancel(nil)

	stopClose := context.AfterFunc(ctx, func() { _ = ex.client.Close() })
	defer stopClose()

	req, err := ex.readRequest()
	if err != nil {
		var ferr *domain.FramingError
		if errors.As(err, &ferr) {
			ex.svc.stats.RecordFramingError()
			ex.log.Warn("Rejecting malformed request", "error", ferr.Message)
			ex.respond(http.StatusBadRequest, ferr.Message)
		} else if !errors.Is(err, io.EOF) && parent.Err() == nil {
			ex.log.Debug("Client read failed before request completed", "error", err)
		}
		ex.closeClient()
		return
	}

	ex.requestID = uuid.NewString()
	ex.log = ex.log.WithRequestID(ex.requestID)
	ex.req = req
	ex.svc.stats.RecordClientBytes(req.Size())
	go ex.watchClient()

	res := ex.svc.resolver.Resolve(req.Body)
	if res.Context.HasFallback() {
		entry, _ := res.Context.CurrentEntry()
		ex.log = ex.log.With("virtual_model", res.Context.VirtualModelName)
		ex.log.InfoWithVirtualModel("Routing virtual model", res.Context.VirtualModelName,
			"entry", entry.ID, "from_cache", res.Context.WasLoadedFromCache)
	}

	fc, out := ex.attempts(ctx, res)

	ex.closeClient()
	ex.complete(parent, fc, res.RequestedModel, out)
}

// readRequest feeds client reads to the framer until one request is complete.
// io.EOF is returned when the client leaves before that.
func (ex *exchange) readRequest() (*core.Request, error) {
	buf := ex.svc.bufferPool.Get()
	defer ex.svc.bufferPool.Put(buf)

	framer := core.NewFramer(ex.cfg.GetMaxHeaderBytes())
	for {
		n, err := ex.client.Read(buf.B)
		if n > 0 {
			req, ferr := framer.Feed(buf.B[:n])
			if ferr != nil {
				return nil, ferr
			}
			if req != nil {
				return req, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				if framer.Started() {
					ex.log.Debug("Client closed mid request", "buffered", framer.Buffered())
				}
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

// watchClient cancels the exchange when the client goes away. Nothing more is
// expected from the client once its request is framed, so any read result other
// than more bytes means it closed.
func (ex *exchange) watchClient() {
	var scratch [256]byte
	for {
		if _, err := ex.client.Read(scratch[:]); err != nil {
			if !ex.finished.Load() {
				ex.cancel(domain.ErrClientClosed)
			}
			return
		}
	}
}

// outcome is the settled result of the attempt loop
type outcome struct {
	reason *domain.FallbackTriggerReason
	err    error
	status int
}

// attempts runs upstream attempts in order until one is delivered to the client
// or nothing is left to try
func (ex *exchange) attempts(ctx context.Context, res fallback.Resolution) (domain.FallbackContext, outcome) {
	fc := res.Context
	body := res.Body
	addr := ex.cfg.GetUpstreamAddress()

	for {
		ex.svc.stats.RecordAttempt()
		attemptStart := time.Now()

		result := ex.attempt(ctx, fc, body)

		switch {
		case result.retry != nil:
			plan := result.retry
			ex.applyRetry(fc, plan, result.reason)
			fc, body = plan.fc, plan.body
			continue

		case result.err != nil && ex.clientGone(ctx):
			return fc, outcome{status: result.status, err: domain.ErrClientClosed}

		case result.unreachable():
			reason := domain.NewTriggerReason(domain.TriggerUpstreamUnreachable)
			if plan, ok := ex.planAdvance(fc, reason); ok {
				ex.log.WarnWithUpstream("Upstream attempt failed, trying next entry", addr,
					"error", result.err, "connected", !isDialFailure(result.err), "timeout", core.IsTimeout(result.err))
				ex.applyRetry(fc, plan, reason)
				fc, body = plan.fc, plan.body
				continue
			}
			friendly := common.MakeUserFriendlyError(result.err, time.Since(attemptStart), addr)
			ex.log.WarnWithUpstream("Upstream unavailable", addr, "error", friendly)
			ex.respond(http.StatusBadGateway, friendly.Error())
			err := result.err
			if fc.HasFallback() {
				err = errors.Join(domain.ErrFallbackExhausted, result.err)
			}
			return fc, outcome{status: http.StatusBadGateway, reason: reason, err: err}

		case result.sendFailed:
			// neither side can be trusted after a partial request write
			ex.log.WarnWithUpstream("Failed to send request upstream", addr, "error", result.err)
			return fc, outcome{err: result.err}
		}

		if result.err != nil {
			ex.log.Debug("Upstream stream ended with error", "error", result.err, "bytes", ex.written,
				"connection_error", core.IsConnectionError(result.err))
		}
		return fc, outcome{status: result.status, reason: result.reason, err: result.err}
	}
}

func (ex *exchange) clientGone(ctx context.Context) bool {
	return errors.Is(context.Cause(ctx), domain.ErrClientClosed)
}

// retryPlan is the context and body of the next attempt
type retryPlan struct {
	body      []byte
	fc        domain.FallbackContext
	sanitized bool
}

// planRetry decides whether a triggered response can be replaced. A thinking
// signature error first earns one sanitised retry of the same entry, anything
// else moves to the next entry.
func (ex *exchange) planRetry(fc domain.FallbackContext, reason *domain.FallbackTriggerReason) (*retryPlan, bool) {
	if reason.IsThinkingSignature() && fc.CanSanitize() {
		body, changed, err := fallback.SanitizedBodyForCurrent(fc)
		switch {
		case err != nil:
			ex.log.Warn("Unable to sanitise request body", "error", err)
		case changed:
			return &retryPlan{fc: fc.MarkSanitized(), body: body, sanitized: true}, true
		}
	}
	return ex.planAdvance(fc, reason)
}

func (ex *exchange) planAdvance(fc domain.FallbackContext, reason *domain.FallbackTriggerReason) (*retryPlan, bool) {
	next, ok := fc.Advance(reason)
	if !ok {
		if fc.HasFallback() {
			last, _ := fc.CurrentEntry()
			ex.log.WarnWithVirtualModel("Fallback exhausted", fc.VirtualModelName,
				"entry", last.ID, "reason", reason.String(), "entries", len(fc.Entries))
		}
		return nil, false
	}
	body, err := fallback.BodyForCurrent(next)
	if err != nil {
		ex.log.Warn("Unable to rewrite request for next entry", "error", err)
		return nil, false
	}
	return &retryPlan{fc: next, body: body}, true
}

func (ex *exchange) applyRetry(prev domain.FallbackContext, plan *retryPlan, reason *domain.FallbackTriggerReason) {
	from, _ := prev.CurrentEntry()
	to, _ := plan.fc.CurrentEntry()

	if plan.sanitized {
		ex.svc.stats.RecordSanitizedRetry()
		ex.log.InfoWithVirtualModel("Retrying entry without thinking blocks", plan.fc.VirtualModelName,
			"entry", to.ID, "reason", reason.String())
		return
	}

	ex.svc.stats.RecordAdvance()
	ex.svc.store.UpdateRouteState(plan.fc.VirtualModelName, plan.fc.CurrentIndex, to, len(plan.fc.Entries))
	ex.log.InfoFallbackAdvance(plan.fc.VirtualModelName, from.ID, to.ID, reason.String())
}

// respond writes a synthetic response, only when nothing has reached the client yet
func (ex *exchange) respond(code int, message string) {
	if ex.written > 0 {
		return
	}
	_ = ex.client.SetWriteDeadline(time.Now().Add(ex.cfg.GetWriteTimeout()))
	if _, err := ex.forward(core.SyntheticResponse(code, message)); err != nil {
		ex.log.Debug("Failed to write synthetic response", "status", code, "error", err)
	}
}

// forward writes to the client and keeps the first bytes for status and snippet extraction
func (ex *exchange) forward(data []byte) (int, error) {
	if room := ex.cfg.GetInspectionThreshold() - len(ex.head); room > 0 {
		ex.head = append(ex.head, data[:min(room, len(data))]...)
	}
	n, err := ex.client.Write(data)
	ex.written += int64(n)
	return n, err
}

// closeClient half-closes so the client sees the end of the stream, then closes
func (ex *exchange) closeClient() {
	ex.finished.Store(true)
	if tcp, ok := ex.client.(interface{ CloseWrite() error }); ok {
		_ = tcp.CloseWrite()
	}
	_ = ex.client.Close()
}
