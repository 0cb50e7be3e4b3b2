package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	taskflow "github.com/taskflow-ai/taskflow"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.json")
	s := New(path)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, path
}

func TestStore_RoundTripAcrossReopen(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	task := taskflow.NewTask("write docs")
	task.Priority = taskflow.PriorityLow
	if err := s.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	// A fresh store over the same file sees the task.
	reopened := New(path)
	if err := reopened.Init(ctx); err != nil {
		t.Fatalf("Init reopened: %v", err)
	}
	got, err := reopened.GetTask(ctx, task.ID)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if got.Name != "write docs" || got.Priority != taskflow.PriorityLow {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestStore_FileIsPrettyPrintedJSON(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveTask(ctx, taskflow.NewTask("x")); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("file is not valid JSON: %v", err)
	}
	if !strings.Contains(string(data), "\n  ") {
		t.Error("expected indented output")
	}
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	s, path := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.SaveTask(ctx, taskflow.NewTask("t")); err != nil {
			t.Fatalf("SaveTask: %v", err)
		}
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tasks-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestStore_DeleteAndMissing(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	task := taskflow.NewTask("gone")
	if err := s.SaveTask(ctx, task); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	if _, err := s.GetTask(ctx, task.ID); !errors.Is(err, taskflow.ErrTaskNotFound) {
		t.Errorf("expected ErrTaskNotFound, got %v", err)
	}
	// Idempotent delete.
	if err := s.DeleteTask(ctx, task.ID); err != nil {
		t.Errorf("DeleteTask missing: %v", err)
	}
}

func TestStore_SaveAllReplaces(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveTask(ctx, taskflow.NewTask("old")); err != nil {
		t.Fatalf("SaveTask: %v", err)
	}
	if err := s.SaveAll(ctx, []taskflow.Task{taskflow.NewTask("a"), taskflow.NewTask("b")}); err != nil {
		t.Fatalf("SaveAll: %v", err)
	}
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(tasks))
	}
}
