// Command taskflow reads a PRD, derives a task graph, schedules it, and
// prints (and optionally persists) the resulting plan.
//
// Usage:
//
//	taskflow plan prd.md
//	taskflow test
//
// Configuration is read from taskflow.toml (or TASKFLOW_CONFIG) with
// TASKFLOW_* env overrides.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	taskflow "github.com/taskflow-ai/taskflow"
	"github.com/taskflow-ai/taskflow/ingest"
	"github.com/taskflow-ai/taskflow/internal/config"
	"github.com/taskflow-ai/taskflow/observer"
	"github.com/taskflow-ai/taskflow/provider/resolve"
	"github.com/taskflow-ai/taskflow/store/jsonfile"
	"github.com/taskflow-ai/taskflow/store/postgres"
	"github.com/taskflow-ai/taskflow/store/sqlite"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	cfg := config.Load(os.Getenv("TASKFLOW_CONFIG"))
	ctx := context.Background()

	var err error
	switch os.Args[1] {
	case "plan":
		if len(os.Args) < 3 {
			usage()
			os.Exit(2)
		}
		err = runPlan(ctx, cfg, logger, os.Args[2])
	case "test":
		err = runTest(ctx, cfg, logger)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("taskflow failed", "err", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: taskflow plan <prd-file> | taskflow test")
}

// buildGateway registers every configured model with its resolved adapter.
func buildGateway(cfg config.Config, logger *slog.Logger, inst *observer.Instruments) (*taskflow.Gateway, error) {
	opts := []taskflow.GatewayOption{
		taskflow.WithGatewayLogger(logger),
		taskflow.WithMaxRetries(cfg.Gateway.MaxRetries),
		taskflow.WithDefaultStrategy(taskflow.RoutingStrategy(cfg.Gateway.Strategy)),
	}
	if cfg.Gateway.RetryDelay != "" {
		if d, err := time.ParseDuration(cfg.Gateway.RetryDelay); err == nil {
			opts = append(opts, taskflow.WithRetryDelay(d))
		}
	}
	if cfg.Gateway.Fallback != nil {
		opts = append(opts, taskflow.WithFallback(*cfg.Gateway.Fallback))
	}
	gw := taskflow.NewGateway(opts...)

	for _, mc := range cfg.ModelConfigs() {
		adapter, err := resolve.Adapter(mc)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", mc.ID, err)
		}
		if cfg.Gateway.RPMLimit > 0 || cfg.Gateway.TPMLimit > 0 {
			adapter = taskflow.WithRateLimit(adapter,
				taskflow.RPM(cfg.Gateway.RPMLimit),
				taskflow.TPM(cfg.Gateway.TPMLimit))
		}
		if inst != nil {
			adapter = observer.WrapAdapter(adapter, mc.ModelName, inst)
		}
		if err := gw.RegisterModel(mc, adapter); err != nil {
			return nil, fmt.Errorf("register %s: %w", mc.ID, err)
		}
	}
	return gw, nil
}

func buildStore(cfg config.Config) (taskflow.TaskStore, error) {
	switch cfg.Store.Backend {
	case "jsonfile", "":
		return jsonfile.New(cfg.Store.Path), nil
	case "sqlite":
		return sqlite.New(cfg.Store.Path), nil
	case "postgres":
		pool, err := pgxpool.New(context.Background(), cfg.Store.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.New(pool), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func runPlan(ctx context.Context, cfg config.Config, logger *slog.Logger, prdPath string) error {
	var inst *observer.Instruments
	if cfg.Observer.Enabled {
		pricing := make(map[string]observer.ModelPricing, len(cfg.Observer.Pricing))
		for model, p := range cfg.Observer.Pricing {
			pricing[model] = observer.ModelPricing{InputPerMillion: p.Input, OutputPerMillion: p.Output}
		}
		var shutdown func(context.Context) error
		var err error
		inst, shutdown, err = observer.Init(ctx, pricing)
		if err != nil {
			return fmt.Errorf("init observer: %w", err)
		}
		defer shutdown(ctx)
	}

	gw, err := buildGateway(cfg, logger, inst)
	if err != nil {
		return err
	}

	// Parse the PRD into tasks.
	content, err := os.ReadFile(prdPath)
	if err != nil {
		return fmt.Errorf("read prd: %w", err)
	}
	prd, err := ingest.New().ParsePRD(ctx, content, strings.TrimPrefix(filepath.Ext(prdPath), "."), taskflow.ParseOptions{
		DefaultPriority: taskflow.TaskPriority(cfg.Ingest.DefaultPriority),
		MaxFeatures:     cfg.Ingest.MaxFeatures,
	})
	if err != nil {
		return fmt.Errorf("parse prd: %w", err)
	}
	tasks := taskflow.TasksFromPRD(prd)
	logger.Info("prd parsed", "title", prd.Title, "tasks", len(tasks))

	// Orchestrate.
	orchCfg := taskflow.DefaultConfig()
	if cfg.Orchestration.Preset != "" {
		orchCfg = taskflow.PresetConfig(taskflow.Preset(cfg.Orchestration.Preset))
	}
	if cfg.Orchestration.Strategy != "" {
		orchCfg.SchedulingStrategy = taskflow.SchedulingStrategy(cfg.Orchestration.Strategy)
	}
	if cfg.Orchestration.MaxParallelTasks > 0 {
		orchCfg.MaxParallelTasks = cfg.Orchestration.MaxParallelTasks
	}
	orchCfg.StrictMode = cfg.Orchestration.StrictMode
	orchCfg.PruneTransitiveDependencies = cfg.Orchestration.PruneTransitiveDeps

	orchOpts := []taskflow.OrchestratorOption{taskflow.WithLogger(logger)}
	if cfg.Orchestration.EnableAIEstimation {
		orchOpts = append(orchOpts, taskflow.WithEstimator(taskflow.NewEstimator(gw)))
	}
	if inst != nil {
		orchOpts = append(orchOpts, taskflow.WithTracer(observer.NewTracer()))
	}
	orch := taskflow.NewOrchestrator(orchCfg, orchOpts...)

	result, err := orch.Orchestrate(ctx, tasks)
	if err != nil {
		return fmt.Errorf("orchestrate: %w", err)
	}
	result.Tasks, err = orch.UpdateTaskTimeInfo(result.Tasks)
	if err != nil {
		return fmt.Errorf("update time info: %w", err)
	}

	// Persist.
	store, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	if err := store.SaveAll(ctx, result.Tasks); err != nil {
		return fmt.Errorf("save plan: %w", err)
	}

	printPlan(prd.Title, result)
	return nil
}

func runTest(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	gw, err := buildGateway(cfg, logger, nil)
	if err != nil {
		return err
	}

	results := gw.TestAll(ctx)
	if len(results) == 0 {
		fmt.Println("no models configured")
		return nil
	}
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("%-20s FAIL  %v\n", r.ModelID, r.Err)
			continue
		}
		fmt.Printf("%-20s OK    %dms\n", r.ModelID, r.Latency.Milliseconds())
	}
	return nil
}

func printPlan(title string, result *taskflow.OrchestrationResult) {
	fmt.Printf("Plan: %s\n", title)
	fmt.Printf("  tasks: %d  total duration: %.1fh  critical path: %d tasks\n",
		len(result.Tasks), result.TotalDuration, len(result.CriticalPath))
	if result.Infeasible {
		fmt.Println("  WARNING: schedule is infeasible (negative float)")
	}

	for _, task := range result.Tasks {
		marker := " "
		if task.TimeInfo != nil && task.TimeInfo.IsCritical {
			marker = "*"
		}
		fmt.Printf("  %s %-36s %-8s %6.1fh", marker, task.Name, task.Priority, task.Duration())
		if task.TimeInfo != nil {
			fmt.Printf("  ES=%.1f LS=%.1f float=%.1f", task.TimeInfo.EarliestStart, task.TimeInfo.LatestStart, task.TimeInfo.TotalFloat)
		}
		fmt.Println()
	}

	if len(result.ParallelGroups) > 0 {
		fmt.Printf("  parallel groups: %d\n", len(result.ParallelGroups))
	}
	if len(result.RiskAssessment.RiskFactors) > 0 {
		fmt.Printf("  overall risk: %.1f/10 (%d factors)\n",
			result.RiskAssessment.OverallRiskLevel, len(result.RiskAssessment.RiskFactors))
	}
	for _, rec := range result.Recommendations {
		fmt.Printf("  - %s\n", rec)
	}
}
