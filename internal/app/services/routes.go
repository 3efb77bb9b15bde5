package services

import (
	"context"
	"errors"
	"sync"

	"github.com/thushan/switchback/internal/adapter/routestore"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/logger"
)

// RoutesService loads the virtual model settings, restores the fallback cache
// and, when enabled, reloads settings as the file changes
type RoutesService struct {
	config  *config.FallbackConfig
	storage *StorageService
	logger  logger.StyledLogger
	store   *routestore.Store
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewRoutesService(config *config.FallbackConfig, storage *StorageService, logger logger.StyledLogger) *RoutesService {
	return &RoutesService{config: config, storage: storage, logger: logger}
}

func (s *RoutesService) Name() string { return "routes" }

func (s *RoutesService) Dependencies() []string { return []string{"storage"} }

func (s *RoutesService) Start(ctx context.Context) error {
	cache := routestore.NewMemoryCache(s.logger)
	if db := s.storage.DB(); db != nil {
		persistent, err := routestore.NewSQLiteCache(ctx, db, s.logger)
		if err != nil {
			return err
		}
		cache = persistent
	}

	store, err := routestore.New(s.config.SettingsFile, cache, s.logger)
	if err != nil {
		_ = cache.Close()
		return err
	}
	s.store = store

	if !s.config.WatchSettings {
		return nil
	}
	watcher, err := routestore.NewFileWatcher(s.config.SettingsFile, s.config.WatchDebounce, s.logger)
	if err != nil {
		s.logger.Warn("Settings watcher unavailable, reloads disabled", "error", err)
		return nil
	}

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := store.Watch(watchCtx, watcher); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("Settings watcher stopped", "error", err)
		}
	}()
	return nil
}

func (s *RoutesService) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

func (s *RoutesService) Store() *routestore.Store {
	return s.store
}
