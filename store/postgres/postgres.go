// Package postgres implements taskflow.TaskStore using PostgreSQL.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	taskflow "github.com/taskflow-ai/taskflow"
)

// Store implements taskflow.TaskStore backed by PostgreSQL. The task document
// is stored as JSONB alongside indexed columns for lookups and ordering.
type Store struct {
	pool *pgxpool.Pool
}

var _ taskflow.TaskStore = (*Store)(nil)

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Init creates the tasks table and its indexes.
// Safe to call multiple times (all statements are idempotent).
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			status TEXT NOT NULL,
			priority TEXT NOT NULL,
			document JSONB NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks (status)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_created ON tasks (created_at, id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return nil
}

// Close is a no-op; the pool is owned by the caller.
func (s *Store) Close() error { return nil }

// SaveTask inserts or replaces one task.
func (s *Store) SaveTask(ctx context.Context, task taskflow.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	_, err = s.pool.Exec(ctx, `INSERT INTO tasks (id, name, status, priority, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		task.ID, task.Name, string(task.Status), string(task.Priority), doc, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	return nil
}

// GetTask returns the task with the given ID, or taskflow.ErrTaskNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (taskflow.Task, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx, `SELECT document FROM tasks WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return taskflow.Task{}, taskflow.ErrTaskNotFound
	}
	if err != nil {
		return taskflow.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	var task taskflow.Task
	if err := json.Unmarshal(doc, &task); err != nil {
		return taskflow.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks returns all tasks in creation order, ID as the tie-break.
func (s *Store) ListTasks(ctx context.Context) ([]taskflow.Task, error) {
	rows, err := s.pool.Query(ctx, `SELECT document FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []taskflow.Task
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var task taskflow.Task
		if err := json.Unmarshal(doc, &task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// SaveAll atomically replaces the full task set in one transaction.
func (s *Store) SaveAll(ctx context.Context, tasks []taskflow.Task) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	for _, task := range tasks {
		doc, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("marshal task %s: %w", task.ID, err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO tasks (id, name, status, priority, document, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			task.ID, task.Name, string(task.Status), string(task.Priority), doc, task.CreatedAt, task.UpdatedAt); err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}

	return tx.Commit(ctx)
}
