// Package history provides SQLite-backed persistence for plans that
// leave the active slot. Plans are stored as they were archived; vault
// handles never appear in a plan, so nothing secret reaches disk.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/stewardhq/steward/internal/orchestrate"
)

// Store is the plan archive.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the archive database and runs migrations.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// WAL mode for concurrent readers; SQLite allows one writer.
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		source_intent TEXT NOT NULL,
		status TEXT NOT NULL,
		steps TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		completed_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_plans_completed_at ON plans(completed_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Archive stores one plan. Archiving the same plan ID twice keeps the
// latest version.
func (s *Store) Archive(plan orchestrate.Plan) error {
	steps, err := json.Marshal(plan.Steps)
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO plans (id, source_intent, status, steps, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			steps = excluded.steps,
			completed_at = excluded.completed_at`,
		plan.ID, plan.SourceIntent, string(plan.Status), string(steps),
		plan.CreatedAt.UTC(), plan.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}
	return nil
}

// List returns the most recently finished plans, newest first. limit <= 0
// means a default page of 20.
func (s *Store) List(ctx context.Context, limit int) ([]orchestrate.Plan, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_intent, status, steps, created_at, completed_at
		FROM plans
		ORDER BY completed_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query plans: %w", err)
	}
	defer rows.Close()

	var plans []orchestrate.Plan
	for rows.Next() {
		var (
			p         orchestrate.Plan
			status    string
			steps     string
			created   time.Time
			completed time.Time
		)
		if err := rows.Scan(&p.ID, &p.SourceIntent, &status, &steps, &created, &completed); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if err := json.Unmarshal([]byte(steps), &p.Steps); err != nil {
			return nil, fmt.Errorf("unmarshal steps for %s: %w", p.ID, err)
		}
		p.Status = orchestrate.Status(status)
		p.CreatedAt = created
		p.CompletedAt = completed
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// Get fetches one archived plan by ID.
func (s *Store) Get(ctx context.Context, id string) (orchestrate.Plan, error) {
	var (
		p         orchestrate.Plan
		status    string
		steps     string
		created   time.Time
		completed time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source_intent, status, steps, created_at, completed_at
		FROM plans WHERE id = ?`, id).
		Scan(&p.ID, &p.SourceIntent, &status, &steps, &created, &completed)
	if err == sql.ErrNoRows {
		return orchestrate.Plan{}, fmt.Errorf("plan %s: not found", id)
	}
	if err != nil {
		return orchestrate.Plan{}, fmt.Errorf("query plan: %w", err)
	}
	if err := json.Unmarshal([]byte(steps), &p.Steps); err != nil {
		return orchestrate.Plan{}, fmt.Errorf("unmarshal steps: %w", err)
	}
	p.Status = orchestrate.Status(status)
	p.CreatedAt = created
	p.CompletedAt = completed
	return p, nil
}
