package taskflow

// SchedulingStrategy selects how the CPM output is flattened into an ordered
// task sequence. The ordering is advisory: the dependency graph still governs
// what may actually run.
type SchedulingStrategy string

const (
	StrategyCriticalPath     SchedulingStrategy = "critical_path"
	StrategyPriorityFirst    SchedulingStrategy = "priority_first"
	StrategyShortestFirst    SchedulingStrategy = "shortest_first"
	StrategyLongestFirst     SchedulingStrategy = "longest_first"
	StrategyEarlyStart       SchedulingStrategy = "early_start"
	StrategyResourceLeveling SchedulingStrategy = "resource_leveling"
	StrategyLateStart        SchedulingStrategy = "late_start"
)

// OptimizationGoal names what the plan is tuned for. It is carried through to
// the result metadata and recommendations.
type OptimizationGoal string

const (
	GoalMinimizeDuration  OptimizationGoal = "minimize_duration"
	GoalMinimizeCost      OptimizationGoal = "minimize_cost"
	GoalBalanceResources  OptimizationGoal = "balance_resources"
	GoalMaximizeQuality   OptimizationGoal = "maximize_quality"
)

// OrderTasks returns all task IDs ordered per the strategy. Requires RunCPM.
// Unknown strategies, resource_leveling, and late_start fall back to
// critical_path until they grow dedicated logic.
func (g *TaskGraph) OrderTasks(strategy SchedulingStrategy) []string {
	ids := make([]string, len(g.order))
	copy(ids, g.order)

	switch strategy {
	case StrategyPriorityFirst:
		sortStable(ids, func(a, b string) bool {
			na, nb := g.nodes[a], g.nodes[b]
			pa, pb := na.task.Priority.Ordinal(), nb.task.Priority.Ordinal()
			if pa != pb {
				return pa > pb // critical first
			}
			if na.es != nb.es {
				return na.es < nb.es
			}
			return a < b
		})
	case StrategyShortestFirst:
		g.sortByDuration(ids, true)
	case StrategyLongestFirst:
		g.sortByDuration(ids, false)
	case StrategyEarlyStart:
		g.sortByES(ids)
	default: // critical_path, resource_leveling, late_start
		sortStable(ids, func(a, b string) bool {
			na, nb := g.nodes[a], g.nodes[b]
			if na.critical != nb.critical {
				return na.critical
			}
			if na.es != nb.es {
				return na.es < nb.es
			}
			if na.totalFloat != nb.totalFloat {
				return na.totalFloat < nb.totalFloat
			}
			pa, pb := na.task.Priority.Ordinal(), nb.task.Priority.Ordinal()
			if pa != pb {
				return pa < pb
			}
			return a < b
		})
	}
	return ids
}

// sortByDuration orders ids by duration, with ES then ID as tie-breaks.
func (g *TaskGraph) sortByDuration(ids []string, ascending bool) {
	sortStable(ids, func(a, b string) bool {
		na, nb := g.nodes[a], g.nodes[b]
		if na.duration != nb.duration {
			if ascending {
				return na.duration < nb.duration
			}
			return na.duration > nb.duration
		}
		if na.es != nb.es {
			return na.es < nb.es
		}
		return a < b
	})
}
