package services

import (
	"context"
	"database/sql"

	"github.com/thushan/switchback/internal/adapter/storage"
	"github.com/thushan/switchback/internal/config"
	"github.com/thushan/switchback/internal/logger"
)

// StorageService owns the sqlite handle. With no path configured DB returns nil
// and dependants fall back to memory.
type StorageService struct {
	config *config.StorageConfig
	logger logger.StyledLogger
	db     *sql.DB
}

func NewStorageService(config *config.StorageConfig, logger logger.StyledLogger) *StorageService {
	return &StorageService{config: config, logger: logger}
}

func (s *StorageService) Name() string { return "storage" }

func (s *StorageService) Dependencies() []string { return nil }

func (s *StorageService) Start(ctx context.Context) error {
	if s.config.Path == "" {
		s.logger.Info("Storage disabled, fallback cache and history stay in memory")
		return nil
	}
	db, err := storage.Open(ctx, s.config.Path, s.config.BusyTimeout)
	if err != nil {
		return err
	}
	s.db = db
	s.logger.Info("Storage opened", "path", s.config.Path)
	return nil
}

func (s *StorageService) Stop(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *StorageService) DB() *sql.DB {
	return s.db
}
