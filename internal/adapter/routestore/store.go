// Package routestore is the virtual model configuration collaborator of the relay:
// settings snapshots, the last-good-entry cache and observable route state.
package routestore

import (
	"context"
	"sync/atomic"

	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/core/ports"
	"github.com/thushan/switchback/internal/logger"
)

type Store struct {
	snapshot atomic.Pointer[domain.FallbackSnapshot]
	cache    *EntryCache
	routes   *RouteTracker
	logger   logger.StyledLogger
	path     string
}

var _ ports.RouteStore = (*Store)(nil)

// New loads the settings at path. An unreadable or invalid file is an error at
// startup; later reload failures keep the previous snapshot.
func New(path string, cache *EntryCache, logger logger.StyledLogger) (*Store, error) {
	if cache == nil {
		cache = NewMemoryCache(logger)
	}
	s := &Store{
		cache:  cache,
		routes: NewRouteTracker(),
		logger: logger,
		path:   path,
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewStatic serves a fixed snapshot, for callers without a settings file
func NewStatic(snapshot domain.FallbackSnapshot, cache *EntryCache, logger logger.StyledLogger) *Store {
	if cache == nil {
		cache = NewMemoryCache(logger)
	}
	s := &Store{cache: cache, routes: NewRouteTracker(), logger: logger}
	s.snapshot.Store(&snapshot)
	return s
}

// Reload rereads the settings file and swaps the snapshot when it is valid
func (s *Store) Reload() error {
	snapshot, err := LoadSettings(s.path)
	if err != nil {
		return err
	}
	s.snapshot.Store(&snapshot)

	enabled := 0
	for _, vm := range snapshot.VirtualModels {
		if vm.Enabled {
			enabled++
		}
	}
	s.logger.InfoWithCount("Virtual model settings loaded", enabled,
		"path", s.path, "fallback_enabled", snapshot.Enabled)
	return nil
}

// Watch reloads on file changes until ctx is done
func (s *Store) Watch(ctx context.Context, watcher *FileWatcher) error {
	defer func() {
		if err := watcher.Stop(); err != nil {
			s.logger.Debug("Settings watcher close failed", "error", err)
		}
	}()
	return watcher.Watch(ctx, s.Reload)
}

func (s *Store) Snapshot() domain.FallbackSnapshot {
	if snap := s.snapshot.Load(); snap != nil {
		return *snap
	}
	return domain.FallbackSnapshot{}
}

func (s *Store) GetCachedEntryID(virtualModel string) (string, bool) {
	return s.cache.Get(virtualModel)
}

func (s *Store) SetCachedEntryID(virtualModel, entryID string) {
	s.cache.Set(virtualModel, entryID)
}

func (s *Store) UpdateRouteState(virtualModel string, index int, entry domain.FallbackEntry, total int) {
	s.routes.Update(virtualModel, index, entry, total)
}

func (s *Store) RouteStates() []domain.RouteState {
	return s.routes.All()
}

func (s *Store) CachedEntries() map[string]string {
	return s.cache.All()
}

func (s *Store) Close() error {
	return s.cache.Close()
}
