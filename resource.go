package taskflow

import "sort"

// ComputeResourceUtilization aggregates per-resource load across all tasks.
// Allocated capacity sums the quantity each task requests; total capacity is
// the largest availability any task declares for that resource. Resources
// whose allocation exceeds capacity are flagged over-allocated, which is a
// warning, never fatal.
func ComputeResourceUtilization(tasks []Task) []ResourceUtilization {
	type acc struct {
		resType   ResourceType
		allocated float64
		total     float64
		taskIDs   []string
	}
	byName := make(map[string]*acc)
	var names []string

	for i := range tasks {
		t := &tasks[i]
		for _, r := range t.ResourceRequirements {
			a, ok := byName[r.Name]
			if !ok {
				a = &acc{resType: r.Type}
				byName[r.Name] = a
				names = append(names, r.Name)
			}
			a.allocated += r.Quantity
			if r.Availability > a.total {
				a.total = r.Availability
			}
			a.taskIDs = append(a.taskIDs, t.ID)
		}
	}
	sort.Strings(names)

	out := make([]ResourceUtilization, 0, len(names))
	for _, name := range names {
		a := byName[name]
		u := ResourceUtilization{
			ResourceName:      name,
			ResourceType:      a.resType,
			TotalCapacity:     a.total,
			AllocatedCapacity: a.allocated,
			OverAllocated:     a.total > 0 && a.allocated > a.total,
			TaskIDs:           a.taskIDs,
		}
		if a.total > 0 {
			u.UtilizationRate = a.allocated / a.total
		}
		out = append(out, u)
	}
	return out
}
