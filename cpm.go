package taskflow

import (
	"math"
	"sort"
)

// sortStable is a small helper over sort.SliceStable for ID slices.
func sortStable(ids []string, less func(a, b string) bool) {
	sort.SliceStable(ids, func(i, j int) bool { return less(ids[i], ids[j]) })
}

// floatEpsilon bounds the float comparison used for criticality: a task is
// critical when |totalFloat| <= floatEpsilon hours.
const floatEpsilon = 1e-6

// RunCPM computes earliest/latest times and float for every node.
// The graph must already be acyclic (run DetectCycle first).
//
// Forward pass formulas per dependency type (predecessor p, successor s):
//
//	FS: ES_s >= EF_p + lag
//	SS: ES_s >= ES_p + lag
//	FF: ES_s >= EF_p - dur_s + lag
//	SF: ES_s >= ES_p - dur_s + lag
//
// The backward pass mirrors them. Returns the project finish (max EF over
// sink nodes) and whether the schedule is feasible (no negative total float).
func (g *TaskGraph) RunCPM() (projectFinish float64, feasible bool) {
	if len(g.nodes) == 0 {
		return 0, true
	}
	order := g.TopologicalOrder()

	// Forward pass.
	for _, id := range order {
		n := g.nodes[id]
		if n.inDegree() == 0 {
			n.es = 0
		}
		n.ef = n.es + n.duration
		for _, succID := range g.sortedSuccessors(id) {
			s := g.nodes[succID]
			d := n.successors[succID]
			var candidate float64
			switch d.Type {
			case StartToStart:
				candidate = n.es + d.Lag
			case FinishToFinish:
				candidate = n.ef - s.duration + d.Lag
			case StartToFinish:
				candidate = n.es - s.duration + d.Lag
			default: // finish-to-start
				candidate = n.ef + d.Lag
			}
			if candidate > s.es {
				s.es = candidate
			}
		}
	}

	// Project finish is the latest EF across sinks.
	for _, id := range order {
		n := g.nodes[id]
		if n.outDegree() == 0 && n.ef > projectFinish {
			projectFinish = n.ef
		}
	}

	// Backward pass over the reverse topological order.
	for _, id := range order {
		n := g.nodes[id]
		if n.outDegree() == 0 {
			n.lf = projectFinish
		} else {
			n.lf = math.Inf(1)
		}
	}
	for i := len(order) - 1; i >= 0; i-- {
		n := g.nodes[order[i]]
		n.ls = n.lf - n.duration
		for _, predID := range g.sortedPredecessors(order[i]) {
			p := g.nodes[predID]
			d := n.predecessors[predID]
			var candidate float64
			switch d.Type {
			case StartToStart:
				candidate = n.ls + p.duration - d.Lag
			case FinishToFinish:
				candidate = n.lf - d.Lag
			case StartToFinish:
				candidate = n.lf + p.duration - d.Lag
			default: // finish-to-start
				candidate = n.ls - d.Lag
			}
			if candidate < p.lf {
				p.lf = candidate
				p.ls = p.lf - p.duration
			}
		}
	}

	// Float and criticality.
	feasible = true
	for _, id := range order {
		n := g.nodes[id]
		n.totalFloat = n.ls - n.es
		if n.totalFloat < -floatEpsilon {
			feasible = false
		}
		n.critical = math.Abs(n.totalFloat) <= floatEpsilon

		if n.outDegree() == 0 {
			n.freeFloat = n.totalFloat
		} else {
			minSuccES := math.Inf(1)
			for succID := range n.successors {
				if es := g.nodes[succID].es; es < minSuccES {
					minSuccES = es
				}
			}
			n.freeFloat = minSuccES - n.ef
		}
	}

	return projectFinish, feasible
}

// CriticalPath returns the IDs of critical tasks ordered by earliest start,
// with ties broken by total float, then priority ordinal, then ID.
func (g *TaskGraph) CriticalPath() []string {
	var ids []string
	for _, id := range g.order {
		if g.nodes[id].critical {
			ids = append(ids, id)
		}
	}
	g.sortByES(ids)
	return ids
}

// sortByES orders ids ascending by ES, breaking ties by total float, then
// priority ordinal, then ID lexicographically.
func (g *TaskGraph) sortByES(ids []string) {
	sortStable(ids, func(a, b string) bool {
		na, nb := g.nodes[a], g.nodes[b]
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

// TimeInfoFor returns the computed schedule for one task, or nil when the
// task is unknown. The returned value is a fresh copy; graph state stays
// private to the orchestration call.
func (g *TaskGraph) TimeInfoFor(id string) *TimeInfo {
	n := g.nodes[id]
	if n == nil {
		return nil
	}
	return &TimeInfo{
		EarliestStart:     n.es,
		LatestStart:       n.ls,
		EarliestFinish:    n.ef,
		LatestFinish:      n.lf,
		TotalFloat:        n.totalFloat,
		FreeFloat:         n.freeFloat,
		IsCritical:        n.critical,
		EstimatedDuration: n.duration,
	}
}
