package taskflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// version is stamped into OrchestrationResult metadata.
const version = "1.0.0"

// OrchestrationConfig controls which pipeline stages run and how.
type OrchestrationConfig struct {
	EnableCriticalPath         bool               `json:"enable_critical_path" toml:"enable_critical_path"`
	EnableParallelOptimization bool               `json:"enable_parallel_optimization" toml:"enable_parallel_optimization"`
	EnableResourceLeveling     bool               `json:"enable_resource_leveling" toml:"enable_resource_leveling"`
	EnableRiskAnalysis         bool               `json:"enable_risk_analysis" toml:"enable_risk_analysis"`
	SchedulingStrategy         SchedulingStrategy `json:"scheduling_strategy" toml:"scheduling_strategy"`
	OptimizationGoal           OptimizationGoal   `json:"optimization_goal" toml:"optimization_goal"`
	MaxParallelTasks           int                `json:"max_parallel_tasks" toml:"max_parallel_tasks"`
	WorkingHoursPerDay         float64            `json:"working_hours_per_day" toml:"working_hours_per_day"`
	WorkingDaysPerWeek         int                `json:"working_days_per_week" toml:"working_days_per_week"`
	BufferPercentage           float64            `json:"buffer_percentage" toml:"buffer_percentage"` // [0,1]

	// StrictMode turns a negative-float (infeasible) schedule into an error
	// instead of a flag on the result.
	StrictMode bool `json:"strict_mode" toml:"strict_mode"`

	// PruneTransitiveDependencies removes redundant FS/zero-lag edges before
	// scheduling. Typed or lagged edges are never pruned.
	PruneTransitiveDependencies bool `json:"prune_transitive_dependencies" toml:"prune_transitive_dependencies"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() OrchestrationConfig {
	return OrchestrationConfig{
		EnableCriticalPath:         true,
		EnableParallelOptimization: true,
		EnableResourceLeveling:     true,
		EnableRiskAnalysis:         true,
		SchedulingStrategy:         StrategyCriticalPath,
		OptimizationGoal:           GoalMinimizeDuration,
		MaxParallelTasks:           5,
		WorkingHoursPerDay:         8,
		WorkingDaysPerWeek:         5,
		BufferPercentage:           0.15,
	}
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets a structured logger. Defaults to a no-op logger.
func WithLogger(l *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = l }
}

// WithTracer sets a tracer for orchestration spans.
func WithTracer(t Tracer) OrchestratorOption {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithEstimator enables AI-assisted attribute estimation before scheduling.
// Tasks lacking estimates or complexity scores are enriched via the gateway.
func WithEstimator(e *Estimator) OrchestratorOption {
	return func(o *Orchestrator) { o.estimator = e }
}

// Orchestrator runs the planning pipeline: graph build, cycle validation,
// CPM, ordering, parallel grouping, resource leveling, risk analysis, and
// recommendations. One call is single-threaded and deterministic; separate
// calls may run concurrently because each owns its own graph.
type Orchestrator struct {
	cfg       OrchestrationConfig
	logger    *slog.Logger
	tracer    Tracer
	estimator *Estimator
}

// NewOrchestrator creates an Orchestrator with the given configuration.
func NewOrchestrator(cfg OrchestrationConfig, opts ...OrchestratorOption) *Orchestrator {
	if cfg.MaxParallelTasks < 1 {
		cfg.MaxParallelTasks = 1
	}
	if cfg.BufferPercentage < 0 {
		cfg.BufferPercentage = 0
	}
	if cfg.BufferPercentage > 1 {
		cfg.BufferPercentage = 1
	}
	o := &Orchestrator{cfg: cfg, logger: nopLogger}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Orchestrate produces an execution plan for tasks. The input slice is not
// mutated; the returned tasks are reordered copies without TimeInfo patched
// (use UpdateTaskTimeInfo for that).
func (o *Orchestrator) Orchestrate(ctx context.Context, tasks []Task) (*OrchestrationResult, error) {
	start := time.Now()

	var span Span
	if o.tracer != nil {
		ctx, span = o.tracer.Start(ctx, "orchestrate",
			IntAttr("task_count", len(tasks)),
			StringAttr("strategy", string(o.cfg.SchedulingStrategy)))
		defer span.End()
	}

	// Work on a private copy so the caller's tasks stay read-only.
	working := make([]Task, len(tasks))
	copy(working, tasks)

	// Optional AI enrichment of estimates/complexity.
	if o.estimator != nil {
		if err := o.estimator.EnrichTasks(ctx, working); err != nil {
			// Lenient mode: proceed with heuristic defaults already applied.
			o.logger.Warn("estimation failed, using heuristic defaults", "error", err)
		}
	}

	graph, err := NewTaskGraph(working, o.logger)
	if err != nil {
		return nil, err
	}

	if err := graph.DetectCycle(); err != nil {
		if span != nil {
			span.Error(err)
		}
		return nil, err
	}

	if o.cfg.PruneTransitiveDependencies {
		if n := graph.PruneTransitiveEdges(); n > 0 {
			o.logger.Debug("pruned transitive dependencies", "count", n)
		}
	}

	result := &OrchestrationResult{
		Metadata: ResultMetadata{
			OrchestrationTime: start,
			Strategy:          o.cfg.SchedulingStrategy,
			Goal:              o.cfg.OptimizationGoal,
			Version:           version,
		},
	}

	var feasible bool = true
	if o.cfg.EnableCriticalPath {
		result.TotalDuration, feasible = graph.RunCPM()
		result.CriticalPath = graph.CriticalPath()
		if !feasible {
			if o.cfg.StrictMode {
				for _, id := range graph.order {
					if n := graph.nodes[id]; n.totalFloat < -floatEpsilon {
						err := &ErrScheduling{TaskID: id, TotalFloat: n.totalFloat}
						if span != nil {
							span.Error(err)
						}
						return nil, err
					}
				}
			}
			result.Infeasible = true
			o.logger.Warn("schedule is infeasible (negative total float)")
		}
	}

	// Order tasks per strategy; the graph itself is never altered here.
	orderedIDs := graph.OrderTasks(o.cfg.SchedulingStrategy)
	byID := make(map[string]Task, len(working))
	for _, t := range working {
		byID[t.ID] = t
	}
	result.Tasks = make([]Task, 0, len(orderedIDs))
	for _, id := range orderedIDs {
		result.Tasks = append(result.Tasks, byID[id])
	}

	if o.cfg.EnableParallelOptimization {
		result.ParallelGroups = graph.FindParallelGroups(o.cfg.MaxParallelTasks)
	}

	if o.cfg.EnableResourceLeveling {
		result.ResourceUtilization = ComputeResourceUtilization(working)
	}

	if o.cfg.EnableRiskAnalysis {
		// Risk analysis reads schedule attributes, so run it over a private
		// TimeInfo-patched copy; the returned tasks stay unpatched.
		scheduled := make([]Task, len(result.Tasks))
		copy(scheduled, result.Tasks)
		for i := range scheduled {
			scheduled[i].TimeInfo = graph.TimeInfoFor(scheduled[i].ID)
		}
		util := result.ResourceUtilization
		if util == nil {
			util = ComputeResourceUtilization(working)
		}
		result.RiskAssessment = AnalyzeRisks(scheduled, util)
	}

	result.Recommendations = o.recommendations(graph, result)

	o.logger.Info("orchestration complete",
		"tasks", len(result.Tasks),
		"critical", len(result.CriticalPath),
		"groups", len(result.ParallelGroups),
		"duration_hours", result.TotalDuration,
		"elapsed", time.Since(start))
	return result, nil
}

// recommendations derives advisory text from the computed numbers.
func (o *Orchestrator) recommendations(g *TaskGraph, r *OrchestrationResult) []string {
	var recs []string

	if n := len(r.Tasks); n > 0 && len(r.CriticalPath) > 0 {
		ratio := float64(len(r.CriticalPath)) / float64(n)
		if ratio > 0.5 {
			recs = append(recs, fmt.Sprintf(
				"%.0f%% of tasks are critical; the plan has almost no slack. Consider adding buffer or cutting scope.", ratio*100))
		} else if ratio > 0.3 {
			recs = append(recs, fmt.Sprintf(
				"%.0f%% of tasks are on the critical path; watch them closely.", ratio*100))
		}
	}

	if len(r.ParallelGroups) > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d parallel group(s) identified; running them concurrently can shorten the schedule.", len(r.ParallelGroups)))
	} else if o.cfg.EnableParallelOptimization {
		recs = append(recs, "No parallelizable work found; the plan is fully sequential.")
	}

	var over, idle int
	for _, u := range r.ResourceUtilization {
		if u.OverAllocated {
			over++
		} else if u.TotalCapacity > 0 && u.UtilizationRate < 0.5 {
			idle++
		}
	}
	if over > 0 {
		recs = append(recs, fmt.Sprintf("%d resource(s) are over-allocated; rebalance before execution.", over))
	}
	if idle > 0 {
		recs = append(recs, fmt.Sprintf("%d resource(s) are under 50%% utilized; consider reassigning work.", idle))
	}

	long := 0
	for _, id := range g.order {
		if g.nodes[id].duration > 40 {
			long++
		}
	}
	if long > 0 {
		recs = append(recs, fmt.Sprintf("%d task(s) exceed 40 hours; split them for better tracking.", long))
	}

	if r.Infeasible {
		recs = append(recs, "The schedule has negative float and cannot be met as constrained; relax deadlines or dependencies.")
	}
	return recs
}

// UpdateTaskTimeInfo returns copies of tasks with TimeInfo patched from a
// fresh CPM run. Calendar fields project hour offsets onto wall-clock time
// (now + hours × 3600s). The input is not mutated.
func (o *Orchestrator) UpdateTaskTimeInfo(tasks []Task) ([]Task, error) {
	graph, err := NewTaskGraph(tasks, o.logger)
	if err != nil {
		return nil, err
	}
	if err := graph.DetectCycle(); err != nil {
		return nil, err
	}
	graph.RunCPM()

	origin := time.Now()
	out := make([]Task, len(tasks))
	copy(out, tasks)
	for i := range out {
		ti := graph.TimeInfoFor(out[i].ID)
		if ti == nil {
			continue
		}
		ti.PlannedStart = origin.Add(time.Duration(ti.EarliestStart * float64(time.Hour)))
		ti.PlannedFinish = origin.Add(time.Duration(ti.EarliestFinish * float64(time.Hour)))
		out[i].TimeInfo = ti
	}
	return out, nil
}
