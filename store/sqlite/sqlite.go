// Package sqlite implements taskflow.TaskStore using pure-Go SQLite.
// Zero CGO required.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	taskflow "github.com/taskflow-ai/taskflow"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. When set, the store
// emits debug logs for every operation. If not set, no logs are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements taskflow.TaskStore backed by a local SQLite file. The full
// task document is stored as JSON alongside indexed columns for ID lookups
// and stable ordering.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ taskflow.TaskStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the tasks table.
func (s *Store) Init(ctx context.Context) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	s.logger.Debug("sqlite: init done", "took", time.Since(start))
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// SaveTask inserts or replaces one task.
func (s *Store) SaveTask(ctx context.Context, task taskflow.Task) error {
	doc, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO tasks (id, name, status, priority, document, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			status = excluded.status,
			priority = excluded.priority,
			document = excluded.document,
			updated_at = excluded.updated_at`,
		task.ID, task.Name, string(task.Status), string(task.Priority), string(doc), task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save task %s: %w", task.ID, err)
	}
	s.logger.Debug("sqlite: task saved", "id", task.ID)
	return nil
}

// GetTask returns the task with the given ID, or taskflow.ErrTaskNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (taskflow.Task, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM tasks WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return taskflow.Task{}, taskflow.ErrTaskNotFound
	}
	if err != nil {
		return taskflow.Task{}, fmt.Errorf("get task %s: %w", id, err)
	}
	var task taskflow.Task
	if err := json.Unmarshal([]byte(doc), &task); err != nil {
		return taskflow.Task{}, fmt.Errorf("unmarshal task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks returns all tasks in creation order, ID as the tie-break.
func (s *Store) ListTasks(ctx context.Context) ([]taskflow.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT document FROM tasks ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []taskflow.Task
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		var task taskflow.Task
		if err := json.Unmarshal([]byte(doc), &task); err != nil {
			return nil, fmt.Errorf("unmarshal task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// SaveAll atomically replaces the full task set in one transaction.
func (s *Store) SaveAll(ctx context.Context, tasks []taskflow.Task) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tasks`); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	for _, task := range tasks {
		doc, err := json.Marshal(task)
		if err != nil {
			return fmt.Errorf("marshal task %s: %w", task.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO tasks (id, name, status, priority, document, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.Name, string(task.Status), string(task.Priority), string(doc), task.CreatedAt, task.UpdatedAt); err != nil {
			return fmt.Errorf("insert task %s: %w", task.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.logger.Debug("sqlite: save all", "count", len(tasks))
	return nil
}
