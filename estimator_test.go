package taskflow

import (
	"context"
	"testing"
)

func TestEnrichTasks_HeuristicsOnly(t *testing.T) {
	// With no gateway, heuristic defaults must still leave tasks schedulable.
	e := NewEstimator(nil)
	tasks := []Task{
		{ID: "1", Name: "fix login bug", Type: TypeBugFix},
		{ID: "2", Name: "research caching", Type: TypeResearch},
		{ID: "3", Name: "already sized", Type: TypeFeature, EstimatedHours: 12,
			Metadata: &OrchestrationMetadata{Complexity: 6}},
	}

	if err := e.EnrichTasks(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if tasks[0].EstimatedHours != 4 {
		t.Errorf("bug fix baseline = %v, want 4", tasks[0].EstimatedHours)
	}
	if tasks[1].EstimatedHours != 20 {
		t.Errorf("research baseline = %v, want 20", tasks[1].EstimatedHours)
	}
	if tasks[2].EstimatedHours != 12 {
		t.Errorf("sized task overwritten: %v", tasks[2].EstimatedHours)
	}
	if tasks[0].Metadata == nil || tasks[0].Metadata.Complexity == 0 {
		t.Error("heuristic complexity not applied")
	}
}

func TestEnrichTasks_ComplexityFromDescriptionLength(t *testing.T) {
	long := make([]byte, 1500)
	for i := range long {
		long[i] = 'd'
	}
	tasks := []Task{
		{ID: "1", Name: "short", Type: TypeFeature, Description: "small"},
		{ID: "2", Name: "long", Type: TypeFeature, Description: string(long)},
	}
	if err := NewEstimator(nil).EnrichTasks(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}
	if c := tasks[0].Metadata.Complexity; c != 3 {
		t.Errorf("short description complexity = %v, want 3", c)
	}
	if c := tasks[1].Metadata.Complexity; c != 8 {
		t.Errorf("long description complexity = %v, want 8", c)
	}
}

func TestEnrichTasks_AIOverridesHeuristics(t *testing.T) {
	reply := `Here are the estimates:
` + "```json" + `
[{"id":"1","estimated_hours":24,"complexity":9,"parallelizable":false,"required_skills":["go","sql"]}]
` + "```"
	adapter := &stubAdapter{name: "openai", reply: reply}
	gw := NewGateway()
	register(t, gw, "est", 1, adapter)

	tasks := []Task{{ID: "1", Name: "build storage layer", Type: TypeFeature}}
	if err := NewEstimator(gw).EnrichTasks(context.Background(), tasks); err != nil {
		t.Fatal(err)
	}

	if tasks[0].EstimatedHours != 24 {
		t.Errorf("hours = %v, want AI value 24", tasks[0].EstimatedHours)
	}
	if tasks[0].Metadata.Complexity != 9 {
		t.Errorf("complexity = %v, want 9", tasks[0].Metadata.Complexity)
	}
	if tasks[0].Metadata.Parallelizable == nil || *tasks[0].Metadata.Parallelizable {
		t.Error("parallelizable = false not applied")
	}
	if len(tasks[0].Metadata.RequiredSkills) != 2 {
		t.Errorf("skills = %v", tasks[0].Metadata.RequiredSkills)
	}
}

func TestEnrichTasks_MalformedAIResponseKeepsHeuristics(t *testing.T) {
	adapter := &stubAdapter{name: "openai", reply: "I cannot answer that."}
	gw := NewGateway()
	register(t, gw, "est", 1, adapter)

	tasks := []Task{{ID: "1", Name: "something", Type: TypeBugFix}}
	err := NewEstimator(gw).EnrichTasks(context.Background(), tasks)
	if err == nil {
		t.Fatal("expected parse error for non-JSON reply")
	}
	// The heuristic pass already ran, so the task stays schedulable.
	if tasks[0].EstimatedHours != 4 {
		t.Errorf("heuristic hours lost: %v", tasks[0].EstimatedHours)
	}
}

func TestExtractJSONArray(t *testing.T) {
	cases := []struct{ in, want string }{
		{`[{"id":"1"}]`, `[{"id":"1"}]`},
		{"```json\n[1,2]\n```", "[1,2]"},
		{"Sure! Here you go: [1] Done.", "[1]"},
		{"no array here", "no array here"},
	}
	for _, tc := range cases {
		if got := extractJSONArray(tc.in); got != tc.want {
			t.Errorf("extractJSONArray(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
