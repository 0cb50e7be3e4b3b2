package taskflow

import "testing"

func f64(v float64) *float64 { return &v }

func modelSet() []ModelConfig {
	return []ModelConfig{
		{ID: "gpt-4o", Provider: "openai", ModelName: "gpt-4o", Enabled: true, Priority: 1,
			Capabilities: []Capability{CapChat, CapCode, CapVision}, CostPer1MInput: f64(2.50)},
		{ID: "deepseek-chat", Provider: "deepseek", ModelName: "deepseek-chat", Enabled: true, Priority: 2,
			Capabilities: []Capability{CapChat}, CostPer1MInput: f64(0.27)},
		{ID: "glm-4", Provider: "zhipu", ModelName: "glm-4", Enabled: true, Priority: 3,
			Capabilities: []Capability{CapChat, CapFunction}},
	}
}

func TestRouterSelect_PreferredShortCircuits(t *testing.T) {
	r := NewRouter()
	d, err := r.Select([]ChatMessage{UserMessage("hi")}, modelSet(), "glm-4", RouteCost)
	if err != nil {
		t.Fatal(err)
	}
	if d.Model.ID != "glm-4" {
		t.Errorf("model = %q, want preferred glm-4", d.Model.ID)
	}
	if d.Reason != "user preferred" {
		t.Errorf("reason = %q", d.Reason)
	}
	// All models remain as fallback candidates, preferred first.
	if len(d.Candidates) != 3 || d.Candidates[0].ID != "glm-4" {
		t.Errorf("candidates = %v", candidateIDs(d))
	}
}

func TestRouterSelect_NoEnabledModels(t *testing.T) {
	r := NewRouter()
	if _, err := r.Select(nil, nil, "", RouteSmart); err == nil {
		t.Fatal("expected error with no enabled models")
	}
}

func TestRouterSelect_CostOrder(t *testing.T) {
	r := NewRouter()
	d, err := r.Select(nil, modelSet(), "", RouteCost)
	if err != nil {
		t.Fatal(err)
	}
	// deepseek is cheapest; glm-4 has no cost and sorts last.
	want := []string{"deepseek-chat", "gpt-4o", "glm-4"}
	got := candidateIDs(d)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("cost order = %v, want %v", got, want)
		}
	}
}

func TestRouterSelect_SpeedOrder(t *testing.T) {
	r := NewRouter()
	d, err := r.Select(nil, modelSet(), "", RouteSpeed)
	if err != nil {
		t.Fatal(err)
	}
	// Static latency table: openai 800 < zhipu 1000 < deepseek 1200.
	want := []string{"gpt-4o", "glm-4", "deepseek-chat"}
	got := candidateIDs(d)
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("speed order = %v, want %v", got, want)
		}
	}
}

func TestRouterSelect_PriorityOrder(t *testing.T) {
	r := NewRouter()
	d, err := r.Select(nil, modelSet(), "", RoutePriority)
	if err != nil {
		t.Fatal(err)
	}
	if d.Model.ID != "gpt-4o" {
		t.Errorf("priority pick = %q, want gpt-4o", d.Model.ID)
	}
}

func TestRouterSelect_RandomKeepsAllCandidates(t *testing.T) {
	r := NewRouter()
	d, err := r.Select(nil, modelSet(), "", RouteRandom)
	if err != nil {
		t.Fatal(err)
	}
	if len(d.Candidates) != 3 {
		t.Errorf("candidates = %d, want 3", len(d.Candidates))
	}
	seen := map[string]bool{}
	for _, c := range d.Candidates {
		seen[c.ID] = true
	}
	if len(seen) != 3 {
		t.Errorf("random shuffle lost candidates: %v", candidateIDs(d))
	}
}

func TestRouterSelect_SmartPrefersCodeModels(t *testing.T) {
	r := NewRouter()
	msgs := []ChatMessage{UserMessage("please implement this function and debug the parser")}
	d, err := r.Select(msgs, modelSet(), "", RouteSmart)
	if err != nil {
		t.Fatal(err)
	}
	// The code rule scores gpt-4o; deepseek-chat gets nothing from it (the
	// rule names deepseek-coder) and glm-4 lacks the code capability.
	if d.Model.ID != "gpt-4o" {
		t.Errorf("smart pick = %q, want gpt-4o for code work", d.Model.ID)
	}
}

func TestRouterSelect_DoesNotMutateEnabled(t *testing.T) {
	enabled := modelSet()
	r := NewRouter()
	if _, err := r.Select(nil, enabled, "", RouteCost); err != nil {
		t.Fatal(err)
	}
	if enabled[0].ID != "gpt-4o" || enabled[1].ID != "deepseek-chat" {
		t.Errorf("enabled slice mutated: %v", enabled)
	}
}

func TestDeriveRoutingContext(t *testing.T) {
	cases := []struct {
		text       string
		taskType   Capability
		complexity string
	}{
		{"implement a function to sort", CapCode, "low"},
		{"why does the moon orbit the earth, reason it out", CapReasoning, "high"},
		{"describe this screenshot", CapVision, "low"},
		{"hello", CapChat, "low"},
	}
	for _, tc := range cases {
		rc := DeriveRoutingContext([]ChatMessage{UserMessage(tc.text)})
		if rc.TaskType != tc.taskType {
			t.Errorf("%q: task type = %q, want %q", tc.text, rc.TaskType, tc.taskType)
		}
		if rc.Complexity != tc.complexity {
			t.Errorf("%q: complexity = %q, want %q", tc.text, rc.Complexity, tc.complexity)
		}
	}
}

func TestDeriveRoutingContext_LongConversationIsComplex(t *testing.T) {
	long := make([]byte, 3000)
	for i := range long {
		long[i] = 'x'
	}
	rc := DeriveRoutingContext([]ChatMessage{UserMessage(string(long))})
	if rc.Complexity != "high" {
		t.Errorf("complexity = %q, want high for long input", rc.Complexity)
	}
}

func candidateIDs(d RoutingDecision) []string {
	ids := make([]string, len(d.Candidates))
	for i, c := range d.Candidates {
		ids[i] = c.ID
	}
	return ids
}
