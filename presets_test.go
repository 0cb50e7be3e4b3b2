package taskflow

import "testing"

func TestPresetConfig_Overrides(t *testing.T) {
	agile := PresetConfig(PresetAgileSprint)
	if agile.SchedulingStrategy != StrategyPriorityFirst {
		t.Errorf("agile strategy = %q, want priority_first", agile.SchedulingStrategy)
	}
	if agile.MaxParallelTasks != 3 || agile.BufferPercentage != 0.1 {
		t.Errorf("agile overrides not applied: %+v", agile)
	}
	// Untouched fields keep the defaults.
	if !agile.EnableRiskAnalysis || agile.WorkingHoursPerDay != 8 {
		t.Errorf("agile must inherit defaults: %+v", agile)
	}

	waterfall := PresetConfig(PresetWaterfall)
	if waterfall.EnableParallelOptimization {
		t.Error("waterfall must disable parallel optimization")
	}
	if waterfall.OptimizationGoal != GoalMaximizeQuality {
		t.Errorf("waterfall goal = %q", waterfall.OptimizationGoal)
	}

	enterprise := PresetConfig(PresetEnterprise)
	if !enterprise.StrictMode {
		t.Error("enterprise must enable strict mode")
	}
	if enterprise.MaxParallelTasks != 10 {
		t.Errorf("enterprise max parallel = %d, want 10", enterprise.MaxParallelTasks)
	}

	proto := PresetConfig(PresetRapidPrototype)
	if proto.EnableRiskAnalysis || proto.EnableResourceLeveling {
		t.Error("rapid_prototype must disable risk analysis and leveling")
	}
	if proto.BufferPercentage != 0 {
		t.Errorf("rapid_prototype buffer = %v, want 0", proto.BufferPercentage)
	}
}

func TestPresetConfig_UnknownIsDefault(t *testing.T) {
	got := PresetConfig("no_such_preset")
	want := DefaultConfig()
	if got != want {
		t.Errorf("unknown preset = %+v, want defaults %+v", got, want)
	}
}

func TestRecommendPreset(t *testing.T) {
	cases := []struct {
		name string
		in   ProjectCharacteristics
		want Preset
	}{
		{"maintenance wins over everything", ProjectCharacteristics{MaintenanceMode: true, ResearchOriented: true, TeamSize: 50}, PresetMaintenance},
		{"research", ProjectCharacteristics{ResearchOriented: true, Uncertainty: UncertaintyHigh}, PresetResearch},
		{"high uncertainty under time pressure", ProjectCharacteristics{Uncertainty: UncertaintyHigh, TimeConstrained: true}, PresetRapidPrototype},
		{"high uncertainty", ProjectCharacteristics{Uncertainty: UncertaintyHigh}, PresetLeanStartup},
		{"large team", ProjectCharacteristics{TeamSize: 25}, PresetEnterprise},
		{"quality-critical mid team", ProjectCharacteristics{TeamSize: 12, QualityCritical: true}, PresetEnterprise},
		{"time and budget constrained", ProjectCharacteristics{TeamSize: 5, TimeConstrained: true, BudgetConstrained: true}, PresetCriticalChain},
		{"time constrained", ProjectCharacteristics{TeamSize: 15, TimeConstrained: true}, PresetAgileSprint},
		{"small short project", ProjectCharacteristics{TeamSize: 4, DurationWeeks: 6}, PresetAgileSprint},
		{"default", ProjectCharacteristics{TeamSize: 10, DurationWeeks: 40}, PresetWaterfall},
	}
	for _, tc := range cases {
		if got := RecommendPreset(tc.in); got != tc.want {
			t.Errorf("%s: got %q, want %q", tc.name, got, tc.want)
		}
	}
}
