package taskflow

import "testing"

func TestTasksFromPRD(t *testing.T) {
	prd := ParsedPRD{
		ID:    "prd-1",
		Title: "Payments",
		Metadata: PRDMetadata{Features: []Feature{
			{Name: "Schema", Priority: PriorityHigh, Type: TypeDesign, EstimatedHours: 8},
			{Name: "API", DependsOn: []string{"Schema"}, Tags: []string{"backend"}},
			{Name: "UI", DependsOn: []string{"API", "Schema", "Nonexistent"}},
		}},
	}

	tasks := TasksFromPRD(prd)
	if len(tasks) != 3 {
		t.Fatalf("tasks = %d, want 3", len(tasks))
	}

	if tasks[0].Priority != PriorityHigh || tasks[0].Type != TypeDesign || tasks[0].EstimatedHours != 8 {
		t.Errorf("feature attributes lost: %+v", tasks[0])
	}
	// Unset feature fields keep the task constructor defaults.
	if tasks[1].Priority != PriorityMedium || tasks[1].Type != TypeFeature {
		t.Errorf("defaults not applied: %+v", tasks[1])
	}
	if len(tasks[1].Tags) != 1 || tasks[1].Tags[0] != "backend" {
		t.Errorf("tags lost: %v", tasks[1].Tags)
	}

	// Dependencies resolve by feature name to generated task IDs; unknown
	// names are dropped.
	if len(tasks[1].Dependencies) != 1 || tasks[1].Dependencies[0] != tasks[0].ID {
		t.Errorf("API deps = %v, want [%s]", tasks[1].Dependencies, tasks[0].ID)
	}
	if len(tasks[2].Dependencies) != 2 {
		t.Errorf("UI deps = %v, want two resolved edges", tasks[2].Dependencies)
	}
}

func TestTasksFromPRD_SelfDependencyDropped(t *testing.T) {
	prd := ParsedPRD{Metadata: PRDMetadata{Features: []Feature{
		{Name: "Loop", DependsOn: []string{"Loop"}},
	}}}
	tasks := TasksFromPRD(prd)
	if len(tasks[0].Dependencies) != 0 {
		t.Errorf("self-dependency must be dropped: %v", tasks[0].Dependencies)
	}
}

func TestTasksFromPRD_Empty(t *testing.T) {
	if tasks := TasksFromPRD(ParsedPRD{}); len(tasks) != 0 {
		t.Errorf("empty PRD produced %d tasks", len(tasks))
	}
}
