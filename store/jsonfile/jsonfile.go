// Package jsonfile implements taskflow.TaskStore as a single pretty-printed
// JSON file. Writes go through a temp file plus rename so a crash mid-write
// never corrupts the plan on disk.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	taskflow "github.com/taskflow-ai/taskflow"
)

// DefaultPath is where the store writes when no path is given.
const DefaultPath = "tasks/tasks.json"

// Store implements taskflow.TaskStore backed by one JSON document. All tasks
// live in memory; every mutation rewrites the file.
type Store struct {
	path string

	mu    sync.RWMutex
	tasks []taskflow.Task
}

var _ taskflow.TaskStore = (*Store)(nil)

// document is the on-disk shape.
type document struct {
	Tasks []taskflow.Task `json:"tasks"`
}

// New creates a Store at path; empty path uses DefaultPath.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Init loads the file if it exists and creates the parent directory.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.tasks = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", s.path, err)
	}
	s.tasks = doc.Tasks
	return nil
}

// Close is a no-op; every mutation already flushed to disk.
func (s *Store) Close() error { return nil }

// SaveTask inserts or replaces one task and rewrites the file.
func (s *Store) SaveTask(ctx context.Context, task taskflow.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.tasks {
		if s.tasks[i].ID == task.ID {
			s.tasks[i] = task
			replaced = true
			break
		}
	}
	if !replaced {
		s.tasks = append(s.tasks, task)
	}
	return s.flush()
}

// GetTask returns the task with the given ID, or taskflow.ErrTaskNotFound.
func (s *Store) GetTask(ctx context.Context, id string) (taskflow.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tasks {
		if t.ID == id {
			return t, nil
		}
	}
	return taskflow.Task{}, taskflow.ErrTaskNotFound
}

// ListTasks returns all tasks in insertion order.
func (s *Store) ListTasks(ctx context.Context) ([]taskflow.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]taskflow.Task, len(s.tasks))
	copy(out, s.tasks)
	return out, nil
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
			return s.flush()
		}
	}
	return nil
}

// SaveAll atomically replaces the full task set.
func (s *Store) SaveAll(ctx context.Context, tasks []taskflow.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make([]taskflow.Task, len(tasks))
	copy(s.tasks, tasks)
	return s.flush()
}

// flush writes the document to a temp file in the same directory and renames
// it over the target. Callers hold the write lock.
func (s *Store) flush() error {
	data, err := json.MarshalIndent(document{Tasks: s.tasks}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal tasks: %w", err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".tasks-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
