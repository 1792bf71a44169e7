// Package store keeps task plans in SQLite. Each plan is one batch stored
// wholesale under a key, the server-side counterpart of the browser cache.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/breadoorr/SmartPlan/pkg/model"
)

var (
	ErrNotFound     = errors.New("plan not found")
	ErrTaskNotFound = errors.New("task not found")
)

const migrationV1Plans = `
CREATE TABLE IF NOT EXISTS plans (
	key        TEXT PRIMARY KEY,
	tasks      TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

// Store wraps the SQLite connection.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and applies migrations.
// Use ":memory:" for a throwaway store.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	s := &Store{conn: conn, path: path, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var current int
	if err := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&current); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Plans},
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}
	return nil
}

// SavePlan replaces the batch stored under key.
func (s *Store) SavePlan(ctx context.Context, key string, tasks []model.Task) (*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.savePlan(ctx, key, tasks)
}

func (s *Store) savePlan(ctx context.Context, key string, tasks []model.Task) (*model.Plan, error) {
	if tasks == nil {
		tasks = []model.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return nil, fmt.Errorf("encode tasks: %w", err)
	}
	updated := s.now().UTC()

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO plans (key, tasks, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET tasks = excluded.tasks, updated_at = excluded.updated_at
	`, key, string(data), updated.Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("save plan %q: %w", key, err)
	}
	return &model.Plan{Key: key, Tasks: tasks, UpdatedAt: updated}, nil
}

// LoadPlan returns the batch stored under key or ErrNotFound.
func (s *Store) LoadPlan(ctx context.Context, key string) (*model.Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadPlan(ctx, key)
}

func (s *Store) loadPlan(ctx context.Context, key string) (*model.Plan, error) {
	var data, updated string
	err := s.conn.QueryRowContext(ctx, "SELECT tasks, updated_at FROM plans WHERE key = ?", key).Scan(&data, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("load plan %q: %w", key, err)
	}

	updatedAt, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return nil, fmt.Errorf("decode plan %q timestamp: %w", key, err)
	}
	plan := &model.Plan{Key: key, UpdatedAt: updatedAt}
	if err := json.Unmarshal([]byte(data), &plan.Tasks); err != nil {
		return nil, fmt.Errorf("decode plan %q: %w", key, err)
	}
	return plan, nil
}

// SetCompleted flips the completion flag of one task.
func (s *Store) SetCompleted(ctx context.Context, key, taskID string, completed bool) (*model.Plan, error) {
	return s.update(ctx, key, taskID, func(t *model.Task) {
		t.Completed = completed
	})
}

// ReplaceTask swaps the task with the same id for task, as the edit form does.
func (s *Store) ReplaceTask(ctx context.Context, key string, task model.Task) (*model.Plan, error) {
	return s.update(ctx, key, task.ID, func(t *model.Task) {
		*t = task
	})
}

func (s *Store) update(ctx context.Context, key, taskID string, mutate func(*model.Task)) (*model.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := s.loadPlan(ctx, key)
	if err != nil {
		return nil, err
	}
	i := plan.Find(taskID)
	if i < 0 {
		return nil, fmt.Errorf("%w: %q in plan %q", ErrTaskNotFound, taskID, key)
	}
	mutate(&plan.Tasks[i])
	return s.savePlan(ctx, key, plan.Tasks)
}

// Keys lists stored plan keys, most recently updated first.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.QueryContext(ctx, "SELECT key FROM plans ORDER BY updated_at DESC, key")
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan plan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
