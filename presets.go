package taskflow

// Preset names a bundled orchestration configuration.
type Preset string

const (
	PresetAgileSprint    Preset = "agile_sprint"
	PresetWaterfall      Preset = "waterfall"
	PresetCriticalChain  Preset = "critical_chain"
	PresetLeanStartup    Preset = "lean_startup"
	PresetRapidPrototype Preset = "rapid_prototype"
	PresetEnterprise     Preset = "enterprise"
	PresetResearch       Preset = "research"
	PresetMaintenance    Preset = "maintenance"
)

// PresetConfig returns the full configuration for a preset: the defaults with
// the preset's fixed overrides applied. Callers merge their own overrides on
// top of the returned value. Unknown presets return the plain defaults.
func PresetConfig(p Preset) OrchestrationConfig {
	cfg := DefaultConfig()
	switch p {
	case PresetAgileSprint:
		cfg.SchedulingStrategy = StrategyPriorityFirst
		cfg.OptimizationGoal = GoalMinimizeDuration
		cfg.MaxParallelTasks = 3
		cfg.BufferPercentage = 0.1
	case PresetWaterfall:
		cfg.SchedulingStrategy = StrategyCriticalPath
		cfg.OptimizationGoal = GoalMaximizeQuality
		cfg.EnableParallelOptimization = false
		cfg.MaxParallelTasks = 1
		cfg.BufferPercentage = 0.2
	case PresetCriticalChain:
		cfg.SchedulingStrategy = StrategyCriticalPath
		cfg.OptimizationGoal = GoalMinimizeDuration
		cfg.EnableResourceLeveling = true
		cfg.BufferPercentage = 0.3
	case PresetLeanStartup:
		cfg.SchedulingStrategy = StrategyShortestFirst
		cfg.OptimizationGoal = GoalMinimizeCost
		cfg.EnableRiskAnalysis = false
		cfg.MaxParallelTasks = 2
		cfg.BufferPercentage = 0.05
	case PresetRapidPrototype:
		cfg.SchedulingStrategy = StrategyShortestFirst
		cfg.OptimizationGoal = GoalMinimizeDuration
		cfg.EnableResourceLeveling = false
		cfg.EnableRiskAnalysis = false
		cfg.MaxParallelTasks = 5
		cfg.BufferPercentage = 0
	case PresetEnterprise:
		cfg.SchedulingStrategy = StrategyCriticalPath
		cfg.OptimizationGoal = GoalBalanceResources
		cfg.EnableResourceLeveling = true
		cfg.MaxParallelTasks = 10
		cfg.BufferPercentage = 0.25
		cfg.StrictMode = true
	case PresetResearch:
		cfg.SchedulingStrategy = StrategyEarlyStart
		cfg.OptimizationGoal = GoalMaximizeQuality
		cfg.EnableParallelOptimization = false
		cfg.BufferPercentage = 0.4
	case PresetMaintenance:
		cfg.SchedulingStrategy = StrategyPriorityFirst
		cfg.OptimizationGoal = GoalMinimizeCost
		cfg.EnableRiskAnalysis = false
		cfg.EnableResourceLeveling = false
		cfg.MaxParallelTasks = 2
	}
	return cfg
}

// UncertaintyLevel describes how well the project scope is understood.
type UncertaintyLevel string

const (
	UncertaintyLow    UncertaintyLevel = "low"
	UncertaintyMedium UncertaintyLevel = "medium"
	UncertaintyHigh   UncertaintyLevel = "high"
)

// ProjectCharacteristics feed RecommendPreset.
type ProjectCharacteristics struct {
	TeamSize          int
	DurationWeeks     float64
	Uncertainty       UncertaintyLevel
	QualityCritical   bool
	TimeConstrained   bool
	BudgetConstrained bool
	ResearchOriented  bool
	MaintenanceMode   bool
}

// RecommendPreset maps project characteristics to a preset. The rules apply
// top to bottom; the first match wins:
//
//  1. maintenance mode          -> maintenance
//  2. research oriented         -> research
//  3. high uncertainty + time   -> rapid_prototype
//  4. high uncertainty          -> lean_startup
//  5. team >= 20, or quality-critical team >= 10 -> enterprise
//  6. time + budget constrained -> critical_chain
//  7. time constrained, or a small team on a short project -> agile_sprint
//  8. otherwise                 -> waterfall
func RecommendPreset(c ProjectCharacteristics) Preset {
	switch {
	case c.MaintenanceMode:
		return PresetMaintenance
	case c.ResearchOriented:
		return PresetResearch
	case c.Uncertainty == UncertaintyHigh && c.TimeConstrained:
		return PresetRapidPrototype
	case c.Uncertainty == UncertaintyHigh:
		return PresetLeanStartup
	case c.TeamSize >= 20 || (c.QualityCritical && c.TeamSize >= 10):
		return PresetEnterprise
	case c.TimeConstrained && c.BudgetConstrained:
		return PresetCriticalChain
	case c.TimeConstrained || (c.TeamSize > 0 && c.TeamSize <= 8 && c.DurationWeeks > 0 && c.DurationWeeks <= 12):
		return PresetAgileSprint
	default:
		return PresetWaterfall
	}
}
