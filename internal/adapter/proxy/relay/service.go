package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/thushan/switchback/internal/adapter/fallback"
	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/pkg/pool"
)

const (
	acceptRetryDelay   = 5 * time.Millisecond
	rejectLogInterval  = 5 * time.Second
	sinkPublishTimeout = 5 * time.Second
)

// Service is the raw TCP relay. Each accepted connection carries exactly one
// client exchange and every upstream attempt gets a fresh connection.
type Service struct {
	configuration atomic.Pointer[Configuration]
	listener      net.Listener
	store         ports.RouteStore
	detector      ports.TriggerDetector
	sink          ports.MetadataSink
	logger        logger.StyledLogger
	resolver      *fallback.Resolver
	stats         *core.RelayStats
	bufferPool    *pool.Pool[*pool.Buffer]
	rejectLimiter *rate.Limiter
	cancel        context.CancelFunc
	listenAddr    string
	wg            sync.WaitGroup
	mu            sync.Mutex
	active        atomic.Int64
	running       atomic.Bool
}

var _ ports.RelayService = (*Service)(nil)

func NewService(
	listenAddr string,
	configuration *Configuration,
	store ports.RouteStore,
	detector ports.TriggerDetector,
	sink ports.MetadataSink,
	logger logger.StyledLogger,
) (*Service, error) {
	if configuration == nil {
		return nil, errors.New("relay: configuration is required")
	}
	if store == nil {
		return nil, errors.New("relay: route store is required")
	}
	if detector == nil {
		detector = fallback.NewDefaultDetector()
	}

	bufferPool, err := pool.NewBufferPool(configuration.GetReadBufferSize())
	if err != nil {
		return nil, fmt.Errorf("failed to create buffer pool: %w", err)
	}

	s := &Service{
		listenAddr:    listenAddr,
		store:         store,
		detector:      detector,
		sink:          sink,
		logger:        logger,
		resolver:      fallback.NewResolver(store, logger),
		stats:         &core.RelayStats{},
		bufferPool:    bufferPool,
		rejectLimiter: rate.NewLimiter(rate.Every(rejectLogInterval), 1),
	}
	s.configuration.Store(configuration)
	return s, nil
}

// UpdateConfig swaps the tunables used by connections accepted from now on.
// The read buffer size is fixed at construction.
func (s *Service) UpdateConfig(configuration *Configuration) {
	if configuration == nil {
		return
	}
	s.configuration.Store(configuration)
	s.logger.Info("Relay configuration updated",
		"upstream", configuration.GetUpstreamAddress(),
		"max_connections", configuration.GetMaxConnections(),
		"inspection_threshold", configuration.GetInspectionThreshold())
}

func (s *Service) config() *Configuration {
	return s.configuration.Load()
}

// Start binds the listener and begins accepting. An unusable address or port is
// returned as a *domain.ConfigError and nothing is started.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running.Load() {
		return domain.ErrRelayAlreadyActive
	}

	if err := validateAddress("listen address", s.listenAddr); err != nil {
		return err
	}
	if err := validatePort("upstream port", s.config().UpstreamPort, false); err != nil {
		return err
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", s.listenAddr)
	if err != nil {
		return &domain.ConfigError{Field: "listen address", Value: s.listenAddr, Err: err}
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.listener = listener
	s.cancel = cancel
	s.running.Store(true)

	s.wg.Add(1)
	go s.acceptLoop(runCtx, listener)

	s.logger.InfoWithUpstream("Relay listening", listener.Addr().String(),
		"upstream", s.config().GetUpstreamAddress())
	return nil
}

// Stop closes the listener, cancels in-flight exchanges and waits for their
// goroutines until ctx expires
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(true, false) {
		return nil
	}

	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		s.logger.Warn("Failed to close relay listener", "error", err)
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("relay stop: %d connections still active: %w", s.active.Load(), ctx.Err())
	}
}

// Addr is the bound listener address, or the configured one before Start
func (s *Service) Addr() string {
	if s.running.Load() && s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.listenAddr
}

func (s *Service) Stats() ports.RelayStats {
	return s.stats.Snapshot(s.active.Load())
}

func (s *Service) acceptLoop(ctx context.Context, listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return
			}
			s.logger.Warn("Accept failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(acceptRetryDelay):
			}
			continue
		}

		if !s.admit() {
			s.stats.RecordRejected()
			if s.rejectLimiter.Allow() {
				s.logger.Warn("Connection ceiling reached, dropping new connections",
					"limit", s.config().GetMaxConnections(),
					"rejected_total", s.stats.Snapshot(s.active.Load()).RejectedConnections)
			}
			_ = conn.Close()
			continue
		}

		s.stats.RecordConnection()
		s.wg.Add(1)
		go s.serve(ctx, conn)
	}
}

// admit reserves a connection slot, failing once the ceiling is reached
func (s *Service) admit() bool {
	limit := s.config().GetMaxConnections()
	for {
		current := s.active.Load()
		if current >= limit {
			return false
		}
		if s.active.CompareAndSwap(current, current+1) {
			return true
		}
	}
}

func (s *Service) release() {
	s.active.Add(-1)
}

func validateAddress(field, addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return &domain.ConfigError{Field: field, Value: addr, Err: err}
	}
	n, err := strconv.Atoi(port)
	if err != nil {
		return &domain.ConfigError{Field: field, Value: addr, Err: domain.ErrInvalidPort}
	}
	return validatePort(field, n, true)
}

// validatePort accepts 1-65535, and 0 when the kernel may pick the port
func validatePort(field string, port int, allowEphemeral bool) error {
	if port < 0 || port > 65535 || (port == 0 && !allowEphemeral) {
		return &domain.ConfigError{Field: field, Value: port, Err: domain.ErrInvalidPort}
	}
	return nil
}
