package taskflow

import (
	"math"
	"testing"
)

func findFactor(fs []RiskFactor, name string) *RiskFactor {
	for i := range fs {
		if fs[i].Name == name {
			return &fs[i]
		}
	}
	return nil
}

func TestAnalyzeRisks_RollUp(t *testing.T) {
	// Ten tasks, four on the critical path, one at 50 hours. Expected
	// factors: critical-path-risk (0.7 x 8 = 5.6) and long-duration-risk
	// (0.5 x 6 = 3.0); the overall level is their mean, 4.3.
	tasks := make([]Task, 10)
	for i := range tasks {
		tasks[i] = task(string(rune('A'+i)), 8)
		tasks[i].TimeInfo = &TimeInfo{IsCritical: i < 4}
	}
	tasks[9].EstimatedHours = 50

	a := AnalyzeRisks(tasks, nil)

	if len(a.RiskFactors) != 2 {
		t.Fatalf("factors = %d, want 2: %+v", len(a.RiskFactors), a.RiskFactors)
	}

	cp := findFactor(a.RiskFactors, "critical-path-risk")
	if cp == nil {
		t.Fatal("critical-path-risk missing")
	}
	if math.Abs(cp.Score-5.6) > 1e-9 {
		t.Errorf("critical-path score = %v, want 5.6", cp.Score)
	}
	if len(cp.AffectedTaskIDs) != 4 {
		t.Errorf("critical-path affected = %d, want 4", len(cp.AffectedTaskIDs))
	}

	long := findFactor(a.RiskFactors, "long-duration-risk")
	if long == nil {
		t.Fatal("long-duration-risk missing")
	}
	if math.Abs(long.Score-3.0) > 1e-9 {
		t.Errorf("long-duration score = %v, want 3.0", long.Score)
	}

	if math.Abs(a.OverallRiskLevel-4.3) > 1e-9 {
		t.Errorf("overall = %v, want 4.3", a.OverallRiskLevel)
	}

	// Contingency plans only for scores above 4.0: one factor qualifies.
	if len(a.ContingencyPlans) != 1 {
		t.Errorf("contingency plans = %d, want 1", len(a.ContingencyPlans))
	}
	if len(a.MitigationSuggestions) != 2 {
		t.Errorf("mitigations = %d, want 2 (one per factor)", len(a.MitigationSuggestions))
	}
}

func TestAnalyzeRisks_NoFactors(t *testing.T) {
	tasks := []Task{task("A", 8), task("B", 8), task("C", 8)}
	for i := range tasks {
		tasks[i].TimeInfo = &TimeInfo{}
	}
	a := AnalyzeRisks(tasks, nil)
	if len(a.RiskFactors) != 0 {
		t.Errorf("unexpected factors: %+v", a.RiskFactors)
	}
	if a.OverallRiskLevel != 0 {
		t.Errorf("overall = %v, want 0 when nothing fires", a.OverallRiskLevel)
	}
}

func TestAnalyzeRisks_Overallocation(t *testing.T) {
	util := []ResourceUtilization{
		{ResourceName: "alice", ResourceType: ResourceHuman, TotalCapacity: 40,
			AllocatedCapacity: 60, OverAllocated: true, TaskIDs: []string{"B", "A", "B"}},
	}
	a := AnalyzeRisks([]Task{task("A", 8), task("B", 8)}, util)

	f := findFactor(a.RiskFactors, "resource-overallocation-risk")
	if f == nil {
		t.Fatal("resource-overallocation-risk missing")
	}
	if f.Category != RiskResource {
		t.Errorf("category = %q, want resource", f.Category)
	}
	// Affected IDs are deduplicated.
	if len(f.AffectedTaskIDs) != 2 {
		t.Errorf("affected = %v, want [A B]", f.AffectedTaskIDs)
	}
}

func TestAnalyzeRisks_ComplexityAndReview(t *testing.T) {
	no := false
	tasks := []Task{task("A", 8), task("B", 8)}
	tasks[0].Metadata = &OrchestrationMetadata{Complexity: 9, RequiresReview: &no}
	tasks[1].Metadata = &OrchestrationMetadata{RequiresReview: &no}

	a := AnalyzeRisks(tasks, nil)

	if findFactor(a.RiskFactors, "technical-complexity-risk") == nil {
		t.Error("complexity above 7 must raise technical-complexity-risk")
	}
	// Both of two tasks skip review (>50%).
	if findFactor(a.RiskFactors, "quality-review-risk") == nil {
		t.Error("majority skipping review must raise quality-review-risk")
	}
}

func TestRiskScoreClipping(t *testing.T) {
	if s := riskScore(2, 10); s != 10 {
		t.Errorf("riskScore(2,10) = %v, want clipped 10", s)
	}
	if s := riskScore(-1, 5); s != 0 {
		t.Errorf("riskScore(-1,5) = %v, want 0", s)
	}
	if s := riskScore(0.5, 6); s != 3 {
		t.Errorf("riskScore(0.5,6) = %v, want 3", s)
	}
}

func TestComputeResourceUtilization(t *testing.T) {
	a := task("A", 8)
	a.ResourceRequirements = []ResourceRequirement{
		{Name: "alice", Type: ResourceHuman, Quantity: 30, Availability: 40},
	}
	b := task("B", 8)
	b.ResourceRequirements = []ResourceRequirement{
		{Name: "alice", Type: ResourceHuman, Quantity: 20},
		{Name: "ci", Type: ResourceSoftware, Quantity: 5},
	}

	util := ComputeResourceUtilization([]Task{a, b})
	if len(util) != 2 {
		t.Fatalf("resources = %d, want 2", len(util))
	}

	// Sorted by name: alice first.
	alice := util[0]
	if alice.ResourceName != "alice" {
		t.Fatalf("first resource = %q, want alice", alice.ResourceName)
	}
	if alice.AllocatedCapacity != 50 || alice.TotalCapacity != 40 {
		t.Errorf("alice allocated/total = %v/%v, want 50/40", alice.AllocatedCapacity, alice.TotalCapacity)
	}
	if !alice.OverAllocated {
		t.Error("alice must be over-allocated")
	}
	if alice.UtilizationRate != 1.25 {
		t.Errorf("alice utilization = %v, want 1.25", alice.UtilizationRate)
	}

	ci := util[1]
	if ci.OverAllocated {
		t.Error("ci has no declared capacity and must not be flagged")
	}
	if ci.UtilizationRate != 0 {
		t.Errorf("ci utilization = %v, want 0 with zero capacity", ci.UtilizationRate)
	}
}
