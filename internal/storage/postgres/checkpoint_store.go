// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelterscout/petharvester/internal/harvest"
)

// The checkpoint is a single row; the fixed id enforces the singleton.
const checkpointID = 1

type pgPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// CheckpointStore implements harvest.CheckpointStore on a Postgres table.
//
// Expected schema:
//
//	CREATE TABLE harvest_checkpoint (
//	    id         INT PRIMARY KEY,
//	    phase      TEXT NOT NULL,
//	    page       INT NOT NULL DEFAULT 0,
//	    category   TEXT NOT NULL DEFAULT '',
//	    resume_key TEXT NOT NULL DEFAULT '',
//	    saved_at   TIMESTAMPTZ NOT NULL
//	);
type CheckpointStore struct {
	pool pgPool
}

// NewCheckpointStore connects a pool for the given DSN.
func NewCheckpointStore(ctx context.Context, dsn string) (*CheckpointStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	return &CheckpointStore{pool: pool}, nil
}

// NewCheckpointStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewCheckpointStoreWithPool(pool pgPool) (*CheckpointStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CheckpointStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *CheckpointStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Save overwrites the singleton checkpoint row.
func (s *CheckpointStore) Save(ctx context.Context, cp harvest.Checkpoint) error {
	query := `
		INSERT INTO harvest_checkpoint (id, phase, page, category, resume_key, saved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET phase = EXCLUDED.phase,
		    page = EXCLUDED.page,
		    category = EXCLUDED.category,
		    resume_key = EXCLUDED.resume_key,
		    saved_at = EXCLUDED.saved_at;
	`
	savedAt := cp.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, query, checkpointID, string(cp.Phase), cp.Page, string(cp.Category), cp.ResumeKey, savedAt)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Load returns the stored checkpoint, or harvest.ErrNotFound when the
// singleton row does not exist.
func (s *CheckpointStore) Load(ctx context.Context) (harvest.Checkpoint, error) {
	query := `
		SELECT phase, page, category, resume_key, saved_at
		FROM harvest_checkpoint
		WHERE id = $1;
	`
	var (
		phase, category, resumeKey string
		page                       int
		savedAt                    time.Time
	)
	err := s.pool.QueryRow(ctx, query, checkpointID).Scan(&phase, &page, &category, &resumeKey, &savedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return harvest.Checkpoint{}, harvest.ErrNotFound
		}
		return harvest.Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	return harvest.Checkpoint{
		Phase:     harvest.Phase(phase),
		Page:      page,
		Category:  harvest.Category(category),
		ResumeKey: resumeKey,
		SavedAt:   savedAt,
	}, nil
}

// Clear removes the singleton row. Missing is not an error.
func (s *CheckpointStore) Clear(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM harvest_checkpoint WHERE id = $1;`, checkpointID); err != nil {
		return fmt.Errorf("clear checkpoint: %w", err)
	}
	return nil
}
