package taskflow

import (
	"context"
	"errors"
)

// ErrTaskNotFound is returned by stores when a task ID does not exist.
var ErrTaskNotFound = errors.New("task not found")

// TaskStore abstracts task persistence. Implementations live under store/
// (jsonfile, sqlite, postgres). Saves must be atomic: a crashed write never
// leaves a partially written plan behind.
type TaskStore interface {
	// SaveTask inserts or replaces one task.
	SaveTask(ctx context.Context, task Task) error
	// GetTask returns the task with the given ID, or ErrTaskNotFound.
	GetTask(ctx context.Context, id string) (Task, error)
	// ListTasks returns all tasks in stable (creation) order.
	ListTasks(ctx context.Context) ([]Task, error)
	// DeleteTask removes a task. Deleting a missing task is not an error.
	DeleteTask(ctx context.Context, id string) error
	// SaveAll atomically replaces the full task set.
	SaveAll(ctx context.Context, tasks []Task) error

	// Lifecycle.
	Init(ctx context.Context) error
	Close() error
}
