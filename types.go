package taskflow

import "time"

// --- Task model ---

// TaskStatus is the lifecycle state of a task. The set is deliberately wide:
// tasks arrive from PRD parsers, user edits, and external trackers that use
// different vocabularies for the same states.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "not_started"
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusRunning    TaskStatus = "running"
	StatusCompleted  TaskStatus = "completed"
	StatusDone       TaskStatus = "done"
	StatusCancelled  TaskStatus = "cancelled"
	StatusFailed     TaskStatus = "failed"
	StatusBlocked    TaskStatus = "blocked"
	StatusOnHold     TaskStatus = "on_hold"
	StatusReview     TaskStatus = "review"
	StatusTodo       TaskStatus = "todo"
)

// statusTransitions enumerates the allowed status moves. A task may always
// move to cancelled. Statuses missing from the map are terminal.
var statusTransitions = map[TaskStatus][]TaskStatus{
	StatusNotStarted: {StatusPending, StatusTodo, StatusInProgress, StatusBlocked, StatusOnHold},
	StatusTodo:       {StatusPending, StatusInProgress, StatusBlocked, StatusOnHold},
	StatusPending:    {StatusInProgress, StatusRunning, StatusBlocked, StatusOnHold},
	StatusInProgress: {StatusRunning, StatusReview, StatusBlocked, StatusOnHold, StatusCompleted, StatusDone, StatusFailed},
	StatusRunning:    {StatusReview, StatusBlocked, StatusCompleted, StatusDone, StatusFailed},
	StatusReview:     {StatusInProgress, StatusCompleted, StatusDone, StatusFailed},
	StatusBlocked:    {StatusPending, StatusInProgress, StatusOnHold},
	StatusOnHold:     {StatusPending, StatusInProgress},
	StatusFailed:     {StatusPending, StatusInProgress},
}

// CanTransition reports whether a task may move from one status to another.
// Every status may transition to itself or to cancelled.
func CanTransition(from, to TaskStatus) bool {
	if from == to || to == StatusCancelled {
		return true
	}
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminalStatus reports whether a status ends the task lifecycle.
func IsTerminalStatus(s TaskStatus) bool {
	return s == StatusCompleted || s == StatusDone || s == StatusCancelled
}

// TaskPriority orders tasks by importance.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Ordinal returns the numeric rank of a priority (critical=4 .. low=1).
// Unknown priorities rank as medium.
func (p TaskPriority) Ordinal() int {
	switch p {
	case PriorityCritical:
		return 4
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// TaskType classifies the kind of work a task represents.
type TaskType string

const (
	TypeFeature    TaskType = "feature"
	TypeBugFix     TaskType = "bug_fix"
	TypeRefactor   TaskType = "refactor"
	TypeTest       TaskType = "test"
	TypeDocument   TaskType = "document"
	TypeAnalysis   TaskType = "analysis"
	TypeDesign     TaskType = "design"
	TypeDeployment TaskType = "deployment"
	TypeResearch   TaskType = "research"
)

// Task is the unit of work the orchestrator schedules.
//
// Dependencies (legacy) holds plain predecessor IDs and is equivalent to
// finish-to-start edges with zero lag. DependencyRelations carries typed
// edges and overrides a legacy entry for the same predecessor.
type Task struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	Type        TaskType     `json:"type"`

	Dependencies        []string     `json:"dependencies,omitempty"`
	DependencyRelations []Dependency `json:"dependency_relations,omitempty"`

	EstimatedHours float64  `json:"estimated_hours,omitempty"`
	ActualHours    float64  `json:"actual_hours,omitempty"`
	Progress       int      `json:"progress,omitempty"` // 0..100
	Assignee       string   `json:"assignee,omitempty"`
	Tags           []string `json:"tags,omitempty"`

	CreatedAt   int64 `json:"created_at,omitempty"`
	UpdatedAt   int64 `json:"updated_at,omitempty"`
	StartedAt   int64 `json:"started_at,omitempty"`
	CompletedAt int64 `json:"completed_at,omitempty"`
	DueDate     int64 `json:"due_date,omitempty"`

	ResourceRequirements []ResourceRequirement `json:"resource_requirements,omitempty"`

	Metadata *OrchestrationMetadata `json:"orchestration_metadata,omitempty"`

	// TimeInfo is computed by the orchestrator; never set by callers.
	TimeInfo *TimeInfo `json:"time_info,omitempty"`
}

// Duration returns the task's planning duration in hours, preferring the
// computed TimeInfo estimate, then EstimatedHours, then a default of 8.
func (t *Task) Duration() float64 {
	if t.TimeInfo != nil && t.TimeInfo.EstimatedDuration > 0 {
		return t.TimeInfo.EstimatedDuration
	}
	if t.EstimatedHours > 0 {
		return t.EstimatedHours
	}
	return 8
}

// OrchestrationMetadata carries AI-derived scheduling attributes.
type OrchestrationMetadata struct {
	// Parallelizable is nil when unknown; only an explicit false excludes
	// the task from parallel groups.
	Parallelizable *bool    `json:"parallelizable,omitempty"`
	Complexity     float64  `json:"complexity,omitempty"` // 0..10
	RequiresReview *bool    `json:"requires_review,omitempty"`
	RequiredSkills []string `json:"required_skills,omitempty"`
}

// --- Dependencies ---

// DependencyType is one of the four CPM precedence relations.
type DependencyType string

const (
	FinishToStart  DependencyType = "finish_to_start"
	StartToStart   DependencyType = "start_to_start"
	FinishToFinish DependencyType = "finish_to_finish"
	StartToFinish  DependencyType = "start_to_finish"
)

// Dependency is a typed edge between two tasks. Lag is in hours and may be
// negative (a lead).
type Dependency struct {
	ID            string         `json:"id,omitempty"`
	PredecessorID string         `json:"predecessor_id"`
	SuccessorID   string         `json:"successor_id"`
	Type          DependencyType `json:"type"`
	Lag           float64        `json:"lag,omitempty"`
	CreatedAt     int64          `json:"created_at,omitempty"`
	UpdatedAt     int64          `json:"updated_at,omitempty"`
}

// --- CPM output ---

// TimeInfo holds the CPM schedule for one task, in hours from project origin.
type TimeInfo struct {
	EarliestStart     float64 `json:"earliest_start"`
	LatestStart       float64 `json:"latest_start"`
	EarliestFinish    float64 `json:"earliest_finish"`
	LatestFinish      float64 `json:"latest_finish"`
	TotalFloat        float64 `json:"total_float"`
	FreeFloat         float64 `json:"free_float"`
	IsCritical        bool    `json:"is_critical"`
	EstimatedDuration float64 `json:"estimated_duration,omitempty"`

	// Calendar projections derived from the hour offsets (now + hours).
	PlannedStart  time.Time `json:"planned_start,omitzero"`
	PlannedFinish time.Time `json:"planned_finish,omitzero"`
}

// --- Resources ---

// ResourceType classifies a resource requirement.
type ResourceType string

const (
	ResourceHuman     ResourceType = "human"
	ResourceEquipment ResourceType = "equipment"
	ResourceMaterial  ResourceType = "material"
	ResourceSoftware  ResourceType = "software"
	ResourceBudget    ResourceType = "budget"
)

// ResourceRequirement names a resource a task needs while it runs.
type ResourceRequirement struct {
	ID           string       `json:"id,omitempty"`
	Name         string       `json:"name"`
	Type         ResourceType `json:"type"`
	Quantity     float64      `json:"quantity"`
	Availability float64      `json:"availability,omitempty"`
}

// ResourceUtilization summarizes one resource's load across the plan.
type ResourceUtilization struct {
	ResourceName      string       `json:"resource_name"`
	ResourceType      ResourceType `json:"resource_type"`
	TotalCapacity     float64      `json:"total_capacity"`
	AllocatedCapacity float64      `json:"allocated_capacity"`
	UtilizationRate   float64      `json:"utilization_rate"` // allocated/total, 0 if total is 0
	OverAllocated     bool         `json:"over_allocated"`
	TaskIDs           []string     `json:"task_ids"`
}

// --- Parallel groups ---

// ParallelGroup is a set of tasks that can execute concurrently.
type ParallelGroup struct {
	TaskIDs           []string `json:"task_ids"`
	EarliestStart     float64  `json:"earliest_start"`
	EstimatedDuration float64  `json:"estimated_duration"` // max duration in the group
	RequiredResources []string `json:"required_resources"`
	ConflictRisk      float64  `json:"conflict_risk"` // 0..1
}

// --- Risk ---

// RiskCategory classifies a risk factor.
type RiskCategory string

const (
	RiskTechnical     RiskCategory = "technical"
	RiskResource      RiskCategory = "resource"
	RiskSchedule      RiskCategory = "schedule"
	RiskQuality       RiskCategory = "quality"
	RiskExternal      RiskCategory = "external"
	RiskCommunication RiskCategory = "communication"
)

// RiskFactor is one identified risk. Score is Probability × Impact,
// clipped to [0,10].
type RiskFactor struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Probability     float64      `json:"probability"` // [0,1]
	Impact          float64      `json:"impact"`      // [1,10]
	Score           float64      `json:"risk_score"`
	AffectedTaskIDs []string     `json:"affected_task_ids,omitempty"`
	Category        RiskCategory `json:"category"`
}

// RiskAssessment aggregates risk factors for a plan.
type RiskAssessment struct {
	OverallRiskLevel      float64      `json:"overall_risk_level"`
	RiskFactors           []RiskFactor `json:"risk_factors"`
	MitigationSuggestions []string     `json:"mitigation_suggestions"`
	ContingencyPlans      []string     `json:"contingency_plans"`
}

// --- Orchestration result ---

// ResultMetadata describes how an OrchestrationResult was produced.
type ResultMetadata struct {
	OrchestrationTime time.Time          `json:"orchestration_time"`
	Strategy          SchedulingStrategy `json:"strategy"`
	Goal              OptimizationGoal   `json:"goal"`
	Version           string             `json:"version"`
}

// OrchestrationResult is the full output of one Orchestrate call.
type OrchestrationResult struct {
	Tasks               []Task                `json:"tasks"`
	CriticalPath        []string              `json:"critical_path"`
	TotalDuration       float64               `json:"total_duration"`
	ParallelGroups      []ParallelGroup       `json:"parallel_groups"`
	ResourceUtilization []ResourceUtilization `json:"resource_utilization"`
	RiskAssessment      RiskAssessment        `json:"risk_assessment"`
	Recommendations     []string              `json:"recommendations"`
	Infeasible          bool                  `json:"infeasible,omitempty"`
	Metadata            ResultMetadata        `json:"metadata"`
}

// --- Constructors ---

// NewTask creates a task with a generated ID, default status, and timestamps.
func NewTask(name string) Task {
	now := NowUnix()
	return Task{
		ID:        NewID(),
		Name:      name,
		Status:    StatusNotStarted,
		Priority:  PriorityMedium,
		Type:      TypeFeature,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewDependency creates a typed edge with a generated ID and timestamps.
func NewDependency(predecessorID, successorID string, depType DependencyType, lag float64) Dependency {
	now := NowUnix()
	return Dependency{
		ID:            NewID(),
		PredecessorID: predecessorID,
		SuccessorID:   successorID,
		Type:          depType,
		Lag:           lag,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}
