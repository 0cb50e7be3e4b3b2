package taskflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// estimatorPrompt constrains the model to a JSON array the estimator can
// parse directly.
const estimatorPrompt = `You are a project estimation assistant. For each task
you are given, estimate the effort in hours, rate the technical complexity
from 0 to 10, decide whether the task can run in parallel with others, and
list the required skills. Respond with ONLY a JSON array, no prose:
[{"id":"...","estimated_hours":8,"complexity":5,"parallelizable":true,"required_skills":["go"]}]`

// typeBaselineHours is the heuristic effort table used when no AI estimate
// is available.
var typeBaselineHours = map[TaskType]float64{
	TypeFeature:    16,
	TypeBugFix:     4,
	TypeRefactor:   8,
	TypeTest:       6,
	TypeDocument:   4,
	TypeAnalysis:   8,
	TypeDesign:     12,
	TypeDeployment: 6,
	TypeResearch:   20,
}

// EstimatorOption configures an Estimator.
type EstimatorOption func(*Estimator)

// WithEstimatorLogger sets a structured logger.
func WithEstimatorLogger(l *slog.Logger) EstimatorOption {
	return func(e *Estimator) { e.logger = l }
}

// WithEstimatorStrategy sets the routing strategy for estimation requests
// (default cost: estimation is high-volume, low-stakes work).
func WithEstimatorStrategy(s RoutingStrategy) EstimatorOption {
	return func(e *Estimator) { e.strategy = s }
}

// Estimator derives task attributes (effort, complexity, parallelizability,
// skills) from task descriptions via the gateway. Heuristic defaults are
// applied first, so a failed AI call still leaves usable values behind.
type Estimator struct {
	gateway  *Gateway
	strategy RoutingStrategy
	logger   *slog.Logger
}

// NewEstimator creates an Estimator on top of a gateway.
func NewEstimator(gw *Gateway, opts ...EstimatorOption) *Estimator {
	e := &Estimator{gateway: gw, strategy: RouteCost, logger: nopLogger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// taskEstimate is the wire shape the model returns per task.
type taskEstimate struct {
	ID             string   `json:"id"`
	EstimatedHours float64  `json:"estimated_hours"`
	Complexity     float64  `json:"complexity"`
	Parallelizable *bool    `json:"parallelizable"`
	RequiredSkills []string `json:"required_skills"`
}

// EnrichTasks fills in missing estimates and orchestration metadata in place.
// Heuristics run first; the AI pass then overwrites them for the tasks it
// covers. The returned error reports an AI failure, but tasks are always
// left with at least heuristic values, so callers may proceed regardless.
func (e *Estimator) EnrichTasks(ctx context.Context, tasks []Task) error {
	var needs []*Task
	for i := range tasks {
		t := &tasks[i]
		if t.EstimatedHours <= 0 || t.Metadata == nil || t.Metadata.Complexity == 0 {
			applyHeuristics(t)
			needs = append(needs, t)
		}
	}
	if len(needs) == 0 || e.gateway == nil {
		return nil
	}

	estimates, err := e.requestEstimates(ctx, needs)
	if err != nil {
		return fmt.Errorf("estimate tasks: %w", err)
	}

	byID := make(map[string]taskEstimate, len(estimates))
	for _, est := range estimates {
		byID[est.ID] = est
	}
	for _, t := range needs {
		est, ok := byID[t.ID]
		if !ok {
			continue
		}
		if est.EstimatedHours > 0 {
			t.EstimatedHours = est.EstimatedHours
		}
		if t.Metadata == nil {
			t.Metadata = &OrchestrationMetadata{}
		}
		if est.Complexity >= 0 && est.Complexity <= 10 {
			t.Metadata.Complexity = est.Complexity
		}
		if est.Parallelizable != nil {
			t.Metadata.Parallelizable = est.Parallelizable
		}
		if len(est.RequiredSkills) > 0 {
			t.Metadata.RequiredSkills = est.RequiredSkills
		}
	}
	return nil
}

// requestEstimates sends one batched request for all tasks needing values.
func (e *Estimator) requestEstimates(ctx context.Context, tasks []*Task) ([]taskEstimate, error) {
	var sb strings.Builder
	sb.WriteString("Tasks:\n")
	for _, t := range tasks {
		fmt.Fprintf(&sb, "- id=%s type=%s name=%q description=%q\n", t.ID, t.Type, t.Name, t.Description)
	}

	result, err := e.gateway.Complete(ctx, CompletionRequest{
		Messages:     []ChatMessage{UserMessage(sb.String())},
		SystemPrompt: estimatorPrompt,
		Strategy:     e.strategy,
	})
	if err != nil {
		return nil, err
	}

	var estimates []taskEstimate
	if err := json.Unmarshal([]byte(extractJSONArray(result.Response.Content())), &estimates); err != nil {
		return nil, &ErrLLM{Provider: result.Model.Provider, Message: fmt.Sprintf("parse estimates: %v", err)}
	}
	e.logger.Debug("task estimates received",
		"tasks", len(tasks), "estimates", len(estimates),
		"model", result.Model.ID, "cost_usd", result.CostUSD)
	return estimates, nil
}

// applyHeuristics fills a task with defaults derived from its type and
// description so a failed AI call never leaves the task unschedulable.
func applyHeuristics(t *Task) {
	if t.EstimatedHours <= 0 {
		if h, ok := typeBaselineHours[t.Type]; ok {
			t.EstimatedHours = h
		} else {
			t.EstimatedHours = 8
		}
	}
	if t.Metadata == nil {
		t.Metadata = &OrchestrationMetadata{}
	}
	if t.Metadata.Complexity == 0 {
		// Longer descriptions usually hide more moving parts.
		switch n := len(t.Description); {
		case n > 1000:
			t.Metadata.Complexity = 8
		case n > 300:
			t.Metadata.Complexity = 5
		default:
			t.Metadata.Complexity = 3
		}
	}
}

// extractJSONArray strips any non-JSON wrapping (markdown fences, prose)
// around the first top-level JSON array in s.
func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
