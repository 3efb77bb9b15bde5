package routestore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/switchback/internal/adapter/storage"
	"github.com/thushan/switchback/internal/logger"
)

const cacheWriteTimeout = 2 * time.Second

var cacheSchema = []string{
	`CREATE TABLE IF NOT EXISTS fallback_cache (
		virtual_model TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`,
}

// EntryCache remembers the last entry that served each virtual model. Reads come
// from memory; writes also go through to sqlite when a database is attached.
type EntryCache struct {
	entries *xsync.Map[string, string]
	db      *sql.DB
	upsert  *sql.Stmt
	logger  logger.StyledLogger
}

func NewMemoryCache(logger logger.StyledLogger) *EntryCache {
	return &EntryCache{
		entries: xsync.NewMap[string, string](),
		logger:  logger,
	}
}

// NewSQLiteCache creates the table if needed and loads every persisted entry
func NewSQLiteCache(ctx context.Context, db *sql.DB, logger logger.StyledLogger) (*EntryCache, error) {
	if err := storage.Migrate(ctx, db, cacheSchema...); err != nil {
		return nil, fmt.Errorf("fallback cache schema: %w", err)
	}

	upsert, err := db.PrepareContext(ctx, `
		INSERT INTO fallback_cache (virtual_model, entry_id, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (virtual_model) DO UPDATE SET
			entry_id = excluded.entry_id,
			updated_at = excluded.updated_at`)
	if err != nil {
		return nil, fmt.Errorf("prepare fallback cache upsert: %w", err)
	}

	c := NewMemoryCache(logger)
	c.db = db
	c.upsert = upsert

	if err := c.load(ctx); err != nil {
		_ = upsert.Close()
		return nil, err
	}
	return c, nil
}

func (c *EntryCache) load(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, `SELECT virtual_model, entry_id FROM fallback_cache`)
	if err != nil {
		return fmt.Errorf("load fallback cache: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var vm, id string
		if err := rows.Scan(&vm, &id); err != nil {
			return fmt.Errorf("scan fallback cache: %w", err)
		}
		c.entries.Store(vm, id)
	}
	return rows.Err()
}

func (c *EntryCache) Get(virtualModel string) (string, bool) {
	return c.entries.Load(virtualModel)
}

// Set updates memory first; a failed sqlite write is logged and only costs the
// entry on the next restart
func (c *EntryCache) Set(virtualModel, entryID string) {
	c.entries.Store(virtualModel, entryID)
	if c.upsert == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if _, err := c.upsert.ExecContext(ctx, virtualModel, entryID, time.Now().Unix()); err != nil {
		c.logger.Warn("Failed to persist fallback cache entry",
			"virtual_model", virtualModel, "entry_id", entryID, "error", err)
	}
}

// All copies the cache for display
func (c *EntryCache) All() map[string]string {
	out := make(map[string]string, c.entries.Size())
	c.entries.Range(func(vm, id string) bool {
		out[vm] = id
		return true
	})
	return out
}

func (c *EntryCache) Close() error {
	if c.upsert != nil {
		return c.upsert.Close()
	}
	return nil
}
