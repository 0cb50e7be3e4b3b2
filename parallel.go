package taskflow

import "sort"

// FindParallelGroups buckets tasks by identical earliest start and greedily
// fills each bucket into groups of concurrently executable tasks. Requires
// RunCPM to have been called.
//
// A task joins a group unless it is explicitly marked non-parallelizable or
// shares a human resource (matched by name) with a task already in the group.
// Non-human resource overlap is allowed. Groups of fewer than two tasks are
// discarded; groups never exceed maxParallelTasks.
func (g *TaskGraph) FindParallelGroups(maxParallelTasks int) []ParallelGroup {
	if maxParallelTasks < 1 {
		maxParallelTasks = 1
	}

	// Bucket by ES, keeping bucket keys sorted for deterministic output.
	buckets := make(map[float64][]string)
	for _, id := range g.order {
		n := g.nodes[id]
		buckets[n.es] = append(buckets[n.es], id)
	}
	starts := make([]float64, 0, len(buckets))
	for es := range buckets {
		starts = append(starts, es)
	}
	sort.Float64s(starts)

	var groups []ParallelGroup
	for _, es := range starts {
		ids := buckets[es]
		sort.Strings(ids)

		used := make(map[string]bool, len(ids))
		for len(ids) > 0 {
			var member []string
			humanNames := make(map[string]bool)

			for _, id := range ids {
				if used[id] || len(member) >= maxParallelTasks {
					continue
				}
				t := g.nodes[id].task
				if t.Metadata != nil && t.Metadata.Parallelizable != nil && !*t.Metadata.Parallelizable {
					used[id] = true
					continue
				}
				if conflictsWithGroup(t, humanNames) {
					continue
				}
				member = append(member, id)
				used[id] = true
				for _, r := range t.ResourceRequirements {
					if r.Type == ResourceHuman {
						humanNames[r.Name] = true
					}
				}
			}

			if member == nil {
				break
			}
			if len(member) >= 2 {
				groups = append(groups, g.buildGroup(member, es))
			}
			// Remove consumed IDs and try to form another group in the
			// same bucket from whatever remains.
			var rest []string
			for _, id := range ids {
				if !used[id] {
					rest = append(rest, id)
				}
			}
			if len(rest) == len(ids) {
				break
			}
			ids = rest
		}
	}
	return groups
}

// conflictsWithGroup reports whether t names a human resource already claimed
// by the group. Only human resources conflict; equipment, material, software,
// and budget may overlap.
func conflictsWithGroup(t *Task, humanNames map[string]bool) bool {
	for _, r := range t.ResourceRequirements {
		if r.Type == ResourceHuman && humanNames[r.Name] {
			return true
		}
	}
	return false
}

// buildGroup assembles a ParallelGroup value for the member IDs.
func (g *TaskGraph) buildGroup(member []string, es float64) ParallelGroup {
	var maxDur float64
	resourceSet := make(map[string]bool)
	for _, id := range member {
		n := g.nodes[id]
		if n.duration > maxDur {
			maxDur = n.duration
		}
		for _, r := range n.task.ResourceRequirements {
			resourceSet[r.Name] = true
		}
	}
	resources := make([]string, 0, len(resourceSet))
	for name := range resourceSet {
		resources = append(resources, name)
	}
	sort.Strings(resources)

	return ParallelGroup{
		TaskIDs:           member,
		EarliestStart:     es,
		EstimatedDuration: maxDur,
		RequiredResources: resources,
		ConflictRisk:      g.groupConflictRisk(member),
	}
}

// groupConflictRisk scores contention within a group on [0,1]. Risk rises
// with skills shared across members and with type homogeneity: a group of
// same-type tasks tends to compete for the same people and tooling.
func (g *TaskGraph) groupConflictRisk(member []string) float64 {
	skillCounts := make(map[string]int)
	typeCounts := make(map[TaskType]int)
	for _, id := range member {
		t := g.nodes[id].task
		typeCounts[t.Type]++
		if t.Metadata == nil {
			continue
		}
		seen := make(map[string]bool)
		for _, skill := range t.Metadata.RequiredSkills {
			if !seen[skill] {
				skillCounts[skill]++
				seen[skill] = true
			}
		}
	}

	var risk float64
	// Each skill required by more than one member adds contention.
	for _, count := range skillCounts {
		if count > 1 {
			risk += 0.15 * float64(count-1)
		}
	}
	// Homogeneous groups add up to 0.3.
	maxType := 0
	for _, count := range typeCounts {
		if count > maxType {
			maxType = count
		}
	}
	if len(member) > 1 {
		risk += 0.3 * float64(maxType-1) / float64(len(member)-1)
	}

	if risk > 1 {
		risk = 1
	}
	return risk
}
