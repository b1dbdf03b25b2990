package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/truonghoc/studio/internal/model"

	_ "modernc.org/sqlite"
)

// Store is the operational database: the generation log, settings and admin
// sessions. Media and prompts are never stored.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id TEXT PRIMARY KEY,
		capability TEXT NOT NULL,
		model TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'running',
		error TEXT NOT NULL DEFAULT '',
		output_mime TEXT NOT NULL DEFAULT '',
		output_bytes INTEGER NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_generations_started ON generations(started_at);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		subject TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// StartGeneration inserts a running generation row.
func (s *Store) StartGeneration(ctx context.Context, g *model.Generation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO generations (id, capability, model, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Capability, g.Model, g.Status, g.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert generation %s: %w", g.ID, err)
	}
	return nil
}

// FinishGeneration records the outcome of a generation.
func (s *Store) FinishGeneration(ctx context.Context, g *model.Generation) error {
	finished := time.Now().UTC()
	if g.FinishedAt != nil {
		finished = *g.FinishedAt
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE generations SET status = ?, error = ?, output_mime = ?, output_bytes = ?, finished_at = ?
		 WHERE id = ?`,
		g.Status, g.Error, g.OutputMIME, g.OutputBytes, finished, g.ID,
	)
	if err != nil {
		return fmt.Errorf("update generation %s: %w", g.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		slog.Warn("finished generation was never started", "id", g.ID)
	}
	return nil
}

// GetGeneration returns a generation by ID, or nil if not found.
func (s *Store) GetGeneration(ctx context.Context, id string) (*model.Generation, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, capability, model, status, error, output_mime, output_bytes, started_at, finished_at
		 FROM generations WHERE id = ?`, id)
	g, err := scanGeneration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

// GenerationFilter narrows ListGenerations. Zero fields mean no filtering.
type GenerationFilter struct {
	Capability model.Capability
	Status     model.GenerationStatus
	Since      time.Time
	Limit      int
}

// ListGenerations returns generations, newest first.
func (s *Store) ListGenerations(ctx context.Context, f GenerationFilter) ([]model.Generation, error) {
	query := `SELECT id, capability, model, status, error, output_mime, output_bytes, started_at, finished_at
		FROM generations WHERE 1=1`
	var args []any
	if f.Capability != "" {
		query += ` AND capability = ?`
		args = append(args, f.Capability)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if !f.Since.IsZero() {
		query += ` AND started_at >= ?`
		args = append(args, f.Since)
	}
	query += ` ORDER BY started_at DESC, id`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Generation
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *g)
	}
	return out, rows.Err()
}

// PruneGenerations deletes finished generations started before cutoff.
func (s *Store) PruneGenerations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM generations WHERE started_at < ? AND status != ?`, cutoff, model.GenerationRunning)
	if err != nil {
		return 0, fmt.Errorf("prune generations: %w", err)
	}
	return res.RowsAffected()
}

// FailStaleGenerations marks rows still running since before cutoff as
// failed. Rows are left running when the process dies mid-request.
func (s *Store) FailStaleGenerations(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE generations SET status = ?, error = 'abandoned', finished_at = ?
		 WHERE status = ? AND started_at < ?`,
		model.GenerationFailed, time.Now().UTC(), model.GenerationRunning, cutoff)
	if err != nil {
		return 0, fmt.Errorf("fail stale generations: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGeneration(r rowScanner) (*model.Generation, error) {
	var g model.Generation
	var finished sql.NullTime
	if err := r.Scan(&g.ID, &g.Capability, &g.Model, &g.Status, &g.Error,
		&g.OutputMIME, &g.OutputBytes, &g.StartedAt, &finished); err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		g.FinishedAt = &t
	}
	return &g, nil
}
