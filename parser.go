package taskflow

import "context"

// Feature is one product requirement extracted from a PRD. Features are the
// only part of a parsed PRD the orchestration core reads; each converts to
// a Task.
type Feature struct {
	Name           string       `json:"name"`
	Description    string       `json:"description,omitempty"`
	Priority       TaskPriority `json:"priority,omitempty"`
	Type           TaskType     `json:"type,omitempty"`
	EstimatedHours float64      `json:"estimated_hours,omitempty"`
	Tags           []string     `json:"tags,omitempty"`
	// DependsOn lists other feature names this feature requires; the
	// conversion resolves them to task IDs as finish-to-start edges.
	DependsOn []string `json:"depends_on,omitempty"`
}

// PRDMetadata carries everything a parser learned beyond title and body.
type PRDMetadata struct {
	Features []Feature `json:"features"`
	Source   string    `json:"source,omitempty"`
	ParsedAt int64     `json:"parsed_at,omitempty"`
}

// ParsedPRD is the parser contract's output shape.
type ParsedPRD struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Metadata    PRDMetadata `json:"metadata"`
}

// ParseOptions tune PRD extraction.
type ParseOptions struct {
	// DefaultPriority applies to features with no detectable priority.
	DefaultPriority TaskPriority
	// MaxFeatures caps extraction; 0 means unlimited.
	MaxFeatures int
}

// PRDParser converts raw document content into a ParsedPRD. The ingest
// package provides implementations for markdown, JSON, HTML, and PDF.
type PRDParser interface {
	ParsePRD(ctx context.Context, content []byte, fileType string, opts ParseOptions) (ParsedPRD, error)
}

// TasksFromPRD converts a parsed PRD's features into tasks, resolving
// feature-name dependencies to finish-to-start edges.
func TasksFromPRD(prd ParsedPRD) []Task {
	idByName := make(map[string]string, len(prd.Metadata.Features))
	tasks := make([]Task, 0, len(prd.Metadata.Features))

	for _, f := range prd.Metadata.Features {
		t := NewTask(f.Name)
		t.Description = f.Description
		if f.Priority != "" {
			t.Priority = f.Priority
		}
		if f.Type != "" {
			t.Type = f.Type
		}
		t.EstimatedHours = f.EstimatedHours
		t.Tags = f.Tags
		idByName[f.Name] = t.ID
		tasks = append(tasks, t)
	}

	// Second pass: resolve dependencies now that every feature has an ID.
	for i, f := range prd.Metadata.Features {
		for _, depName := range f.DependsOn {
			if depID, ok := idByName[depName]; ok && depID != tasks[i].ID {
				tasks[i].Dependencies = append(tasks[i].Dependencies, depID)
			}
		}
	}
	return tasks
}
