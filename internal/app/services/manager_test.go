package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchback/internal/logger"
)

type recordingService struct {
	startErr error
	stopErr  error
	log      *callLog
	name     string
	deps     []string
}

type callLog struct {
	calls []string
	mu    sync.Mutex
}

func (l *callLog) add(call string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, call)
}

func (s *recordingService) Name() string           { return s.name }
func (s *recordingService) Dependencies() []string { return s.deps }

func (s *recordingService) Start(context.Context) error {
	s.log.add("start:" + s.name)
	return s.startErr
}

func (s *recordingService) Stop(context.Context) error {
	s.log.add("stop:" + s.name)
	return s.stopErr
}

func testLogger() logger.StyledLogger {
	return logger.NewPlainStyledLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestServiceManager_StartsInDependencyOrder(t *testing.T) {
	calls := &callLog{}
	sm := NewServiceManager(testLogger())
	for _, svc := range []*recordingService{
		{name: "admin", deps: []string{"relay", "health"}, log: calls},
		{name: "relay", deps: []string{"routes", "events"}, log: calls},
		{name: "events", deps: []string{"storage"}, log: calls},
		{name: "routes", deps: []string{"storage"}, log: calls},
		{name: "storage", log: calls},
		{name: "health", log: calls},
	} {
		require.NoError(t, sm.Register(svc))
	}

	require.NoError(t, sm.Start(context.Background()))
	assert.Equal(t, []string{
		"start:health", "start:storage", "start:events", "start:routes", "start:relay", "start:admin",
	}, calls.calls)

	calls.calls = nil
	require.NoError(t, sm.Stop(context.Background()))
	assert.Equal(t, []string{
		"stop:admin", "stop:relay", "stop:routes", "stop:events", "stop:storage", "stop:health",
	}, calls.calls)
}

func TestServiceManager_RollsBackOnStartFailure(t *testing.T) {
	calls := &callLog{}
	sm := NewServiceManager(testLogger())
	require.NoError(t, sm.Register(&recordingService{name: "a", log: calls}))
	require.NoError(t, sm.Register(&recordingService{name: "b", deps: []string{"a"}, log: calls}))
	require.NoError(t, sm.Register(&recordingService{name: "c", deps: []string{"b"}, log: calls, startErr: errors.New("bind failed")}))

	err := sm.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start service c")
	assert.Equal(t, []string{"start:a", "start:b", "start:c", "stop:b", "stop:a"}, calls.calls)
}

func TestServiceManager_DependencyErrors(t *testing.T) {
	tests := []struct {
		name     string
		services []*recordingService
		contains string
	}{
		{
			name:     "unregistered dependency",
			services: []*recordingService{{name: "relay", deps: []string{"routes"}}},
			contains: "depends on unregistered routes",
		},
		{
			name: "cycle",
			services: []*recordingService{
				{name: "a", deps: []string{"b"}},
				{name: "b", deps: []string{"a"}},
			},
			contains: "circular",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sm := NewServiceManager(testLogger())
			for _, svc := range tt.services {
				svc.log = &callLog{}
				require.NoError(t, sm.Register(svc))
			}
			err := sm.Start(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestServiceManager_RegisterTwice(t *testing.T) {
	sm := NewServiceManager(testLogger())
	require.NoError(t, sm.Register(&recordingService{name: "relay", log: &callLog{}}))
	assert.Error(t, sm.Register(&recordingService{name: "relay", log: &callLog{}}))

	_, ok := sm.Get("relay")
	assert.True(t, ok)
}

func TestServiceManager_StopJoinsErrors(t *testing.T) {
	calls := &callLog{}
	sm := NewServiceManager(testLogger())
	require.NoError(t, sm.Register(&recordingService{name: "a", log: calls, stopErr: errors.New("a stuck")}))
	require.NoError(t, sm.Register(&recordingService{name: "b", log: calls, stopErr: errors.New("b stuck")}))
	require.NoError(t, sm.Start(context.Background()))

	err := sm.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a stuck")
	assert.Contains(t, err.Error(), "b stuck")
}
