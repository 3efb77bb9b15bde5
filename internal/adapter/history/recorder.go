// Package history keeps recent request metadata in memory and, optionally, in sqlite
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/thushan/switchback/internal/adapter/storage"
	"github.com/thushan/switchback/internal/core/domain"
	"github.com/thushan/switchback/internal/logger"
	"github.com/thushan/switchback/internal/util"
)

const (
	DefaultCapacity     = 200
	DefaultSnippetBytes = 1024
	pruneEvery          = 100
	writeTimeout        = 2 * time.Second
)

var historySchema = []string{
	`CREATE TABLE IF NOT EXISTS request_history (
		id TEXT PRIMARY KEY,
		ts_unix_ms INTEGER NOT NULL,
		method TEXT NOT NULL,
		path TEXT NOT NULL,
		virtual_model TEXT,
		requested_model TEXT,
		resolved_provider TEXT,
		resolved_model TEXT,
		status_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		payload_json TEXT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_request_history_ts ON request_history(ts_unix_ms);`,
}

type Config struct {
	Capacity     int
	MaxRows      int
	SnippetBytes int
}

// Recorder collects RequestMetadata published by the relay
type Recorder struct {
	ring     *Ring[domain.RequestMetadata]
	db       *sql.DB
	insert   *sql.Stmt
	logger   logger.StyledLogger
	config   Config
	inserted int
}

// New creates a recorder; db may be nil for memory only history
func New(ctx context.Context, config Config, db *sql.DB, logger logger.StyledLogger) (*Recorder, error) {
	if config.Capacity <= 0 {
		config.Capacity = DefaultCapacity
	}
	if config.SnippetBytes <= 0 {
		config.SnippetBytes = DefaultSnippetBytes
	}

	r := &Recorder{
		ring:   NewRing[domain.RequestMetadata](config.Capacity),
		logger: logger,
		config: config,
	}
	if db == nil {
		return r, nil
	}

	if err := storage.Migrate(ctx, db, historySchema...); err != nil {
		return nil, fmt.Errorf("request history schema: %w", err)
	}
	insert, err := db.PrepareContext(ctx, `
		INSERT OR REPLACE INTO request_history
			(id, ts_unix_ms, method, path, virtual_model, requested_model,
			 resolved_provider, resolved_model, status_code, duration_ms, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("prepare request history insert: %w", err)
	}
	r.db = db
	r.insert = insert
	return r, nil
}

// Run consumes events until the channel closes or ctx is done
func (r *Recorder) Run(ctx context.Context, events <-chan domain.RequestMetadata) {
	for {
		select {
		case <-ctx.Done():
			return
		case md, ok := <-events:
			if !ok {
				return
			}
			r.Record(ctx, md)
		}
	}
}

// Record stores one exchange. Only Run calls it in production, so persistence
// is sequential.
func (r *Recorder) Record(ctx context.Context, md domain.RequestMetadata) {
	md.ErrorSnippet = util.TruncateLog(md.ErrorSnippet, r.config.SnippetBytes)
	r.ring.Push(md)

	if r.insert == nil {
		return
	}
	if err := r.persist(ctx, md); err != nil {
		r.logger.Warn("Failed to persist request history", "id", md.ID, "error", err)
		return
	}

	r.inserted++
	if r.config.MaxRows > 0 && r.inserted%pruneEvery == 0 {
		if err := r.prune(ctx); err != nil {
			r.logger.Warn("Failed to prune request history", "error", err)
		}
	}
}

func (r *Recorder) persist(ctx context.Context, md domain.RequestMetadata) error {
	payload, err := json.Marshal(md)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	_, err = r.insert.ExecContext(ctx,
		md.ID, md.Timestamp.UnixMilli(), md.Method, md.Path, md.VirtualModel, md.RequestedModel,
		string(md.ResolvedProvider), md.ResolvedModel, md.StatusCode, md.Duration.Milliseconds(), string(payload))
	return err
}

func (r *Recorder) prune(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM request_history WHERE id NOT IN (
			SELECT id FROM request_history ORDER BY ts_unix_ms DESC LIMIT ?
		)`, r.config.MaxRows)
	return err
}

// Recent returns the newest records first. With a database attached, requests
// beyond the in-memory window are read from it.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]domain.RequestMetadata, error) {
	if r.db == nil || (limit > 0 && limit <= r.ring.Len()) {
		return r.ring.Recent(limit), nil
	}
	if limit <= 0 {
		limit = r.config.Capacity
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT payload_json FROM request_history ORDER BY ts_unix_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query request history: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RequestMetadata, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan request history: %w", err)
		}
		var md domain.RequestMetadata
		if err := json.Unmarshal([]byte(payload), &md); err != nil {
			return nil, fmt.Errorf("decode request history: %w", err)
		}
		out = append(out, md)
	}
	return out, rows.Err()
}

func (r *Recorder) Close() error {
	if r.insert != nil {
		return r.insert.Close()
	}
	return nil
}
