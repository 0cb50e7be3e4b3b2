// Package taskflow is the core of an AI-assisted project-planning system.
//
// It contains two subsystems. The task orchestration engine takes a set of
// tasks with typed dependencies (finish-to-start, start-to-start,
// finish-to-finish, start-to-finish, each with optional lag) and produces a
// critical-path-method schedule, a parallel-execution grouping, a resource
// utilization profile, and a risk assessment. The model gateway routes chat
// completion requests across multiple LLM providers with pluggable selection
// strategies, per-provider retry, cascading fallback, streaming, and cost
// attribution.
//
// The two meet in the Estimator, which uses the gateway to derive task
// attributes (effort, complexity, skills) that the orchestrator schedules.
//
// Provider adapters live under provider/, persistence under store/, PRD
// extraction under ingest/, and OTEL instrumentation under observer/.
package taskflow
