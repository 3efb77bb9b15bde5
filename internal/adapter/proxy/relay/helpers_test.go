package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/thushan/switchback/internal/adapter/proxy/core"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/logger"
)

func testLogger() logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// upstreamHandler answers the nth request (zero based) on conn
type upstreamHandler func(n int, req *core.Request, conn net.Conn)

type fakeUpstream struct {
	ln       net.Listener
	handler  upstreamHandler
	requests []*core.Request
	mu       sync.Mutex
	wg       sync.WaitGroup
}

func newFakeUpstream(t *testing.T, handler upstreamHandler) *fakeUpstream {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	u := &fakeUpstream{ln: ln, handler: handler}
	u.wg.Add(1)
	go u.acceptLoop()
	t.Cleanup(func() {
		_ = ln.Close()
		u.wg.Wait()
	})
	return u
}

func (u *fakeUpstream) acceptLoop() {
	defer u.wg.Done()
	for {
		conn, err := u.ln.Accept()
		if err != nil {
			return
		}
		u.wg.Add(1)
		go func() {
			defer u.wg.Done()
			defer conn.Close()

			req := readUpstreamRequest(conn)
			if req == nil {
				return
			}
			u.mu.Lock()
			n := len(u.requests)
			u.requests = append(u.requests, req)
			u.mu.Unlock()

			u.handler(n, req, conn)
		}()
	}
}

func readUpstreamRequest(conn net.Conn) *core.Request {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	defer conn.SetReadDeadline(time.Time{})

	framer := core.NewFramer(0)
	buf := make([]byte, 4096)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			req, ferr := framer.Feed(buf[:n])
			if ferr != nil {
				return nil
			}
			if req != nil {
				return req
			}
		}
		if err != nil {
			return nil
		}
	}
}

func (u *fakeUpstream) port() int {
	return u.ln.Addr().(*net.TCPAddr).Port
}

func (u *fakeUpstream) received() []*core.Request {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]*core.Request, len(u.requests))
	copy(out, u.requests)
	return out
}

func (u *fakeUpstream) models() []string {
	var models []string
	for _, req := range u.received() {
		models = append(models, gjson.GetBytes(req.Body, "model").String())
	}
	return models
}

// byModel answers with the canned response for the request's model, or 404
func byModel(responses map[string]string) upstreamHandler {
	return func(_ int, req *core.Request, conn net.Conn) {
		model := gjson.GetBytes(req.Body, "model").String()
		resp, ok := responses[model]
		if !ok {
			resp = httpResponse(http.StatusNotFound, `{"error":"no such model"}`)
		}
		_, _ = conn.Write([]byte(resp))
	}
}

// inOrder answers the nth request with responses[n]
func inOrder(responses ...string) upstreamHandler {
	return func(n int, _ *core.Request, conn net.Conn) {
		if n < len(responses) {
			_, _ = conn.Write([]byte(responses[n]))
		}
	}
}

func httpResponse(status int, body string) string {
	return fmt.Sprintf("HTTP/1.1 %d %s\r\nContent-Type: application/json\r\nContent-Length: %d\r\n\r\n%s",
		status, http.StatusText(status), len(body), body)
}

func postJSON(path, body string) string {
	return fmt.Sprintf("POST %s HTTP/1.1\r\nHost: localhost:8318\r\nContent-Type: application/json\r\n"+
		"Accept-Encoding: gzip\r\nConnection: keep-alive\r\nContent-Length: %d\r\n\r\n%s", path, len(body), body)
}

type fakeStore struct {
	cache       map[string]string
	snapshot    domain.FallbackSnapshot
	cacheWrites []string
	routes      []domain.RouteState
	mu          sync.Mutex
}

func newFakeStore(models ...domain.VirtualModel) *fakeStore {
	return &fakeStore{
		cache:    make(map[string]string),
		snapshot: domain.FallbackSnapshot{Enabled: true, VirtualModels: models},
	}
}

func (s *fakeStore) Snapshot() domain.FallbackSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

func (s *fakeStore) GetCachedEntryID(vm string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.cache[vm]
	return id, ok
}

func (s *fakeStore) SetCachedEntryID(vm, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[vm] = id
	s.cacheWrites = append(s.cacheWrites, vm+"="+id)
}

func (s *fakeStore) UpdateRouteState(vm string, index int, entry domain.FallbackEntry, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes = append(s.routes, domain.RouteState{VirtualModel: vm, Index: index, Entry: entry, Total: total})
}

func (s *fakeStore) writes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cacheWrites...)
}

func (s *fakeStore) routeIndexes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, r := range s.routes {
		out = append(out, r.Index)
	}
	return out
}

type captureSink struct {
	ch chan domain.RequestMetadata
}

func newCaptureSink() *captureSink {
	return &captureSink{ch: make(chan domain.RequestMetadata, 16)}
}

func (c *captureSink) RequestCompleted(_ context.Context, md domain.RequestMetadata) {
	c.ch <- md
}

// next waits for one record and checks no second record follows it
func (c *captureSink) next(t *testing.T) domain.RequestMetadata {
	t.Helper()
	var md domain.RequestMetadata
	select {
	case md = <-c.ch:
	case <-time.After(3 * time.Second):
		t.Fatal("no request metadata emitted")
	}
	select {
	case extra := <-c.ch:
		t.Fatalf("second metadata record emitted: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	return md
}

func virtualModel(name string, entries ...domain.FallbackEntry) domain.VirtualModel {
	return domain.VirtualModel{Name: name, Enabled: true, Entries: entries}
}

func entry(id, model string, priority int) domain.FallbackEntry {
	return domain.FallbackEntry{ID: id, Provider: domain.ProviderClaude, ModelID: model, Priority: priority}
}

func startRelay(t *testing.T, upstreamPort int, store *fakeStore, mutate func(*Configuration)) (*Service, *captureSink) {
	t.Helper()
	cfg := &Configuration{
		UpstreamHost:   "127.0.0.1",
		UpstreamPort:   upstreamPort,
		ConnectTimeout: 2 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		MaxConnections: 16,
	}
	if mutate != nil {
		mutate(cfg)
	}
	sink := newCaptureSink()
	svc, err := NewService("127.0.0.1:0", cfg, store, nil, sink, testLogger())
	require.NoError(t, err)
	require.NoError(t, svc.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Stop(ctx)
	})
	return svc, sink
}

// roundTrip sends raw bytes and reads until the relay closes the connection
func roundTrip(t *testing.T, addr, raw string) string {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))
	_, err = conn.Write([]byte(raw))
	require.NoError(t, err)

	out, err := io.ReadAll(conn)
	if err != nil && !errors.Is(err, net.ErrClosed) {
		require.NoError(t, err)
	}
	return string(out)
}

// closedPort returns a loopback port with nothing listening on it
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}

func contentLength(t *testing.T, resp string) int {
	t.Helper()
	header, _, ok := core.SplitResponse([]byte(resp))
	require.True(t, ok)
	v, ok := core.ResponseHeader(header, "Content-Length")
	require.True(t, ok)
	n, err := strconv.Atoi(v)
	require.NoError(t, err)
	return n
}
