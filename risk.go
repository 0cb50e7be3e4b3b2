package taskflow

import (
	"fmt"
	"sort"
)

// riskScore clips probability × impact to [0,10].
func riskScore(probability, impact float64) float64 {
	s := probability * impact
	if s < 0 {
		return 0
	}
	if s > 10 {
		return 10
	}
	return s
}

// AnalyzeRisks evaluates the fixed set of risk factor producers against the
// scheduled tasks and the resource profile. Each producer fires only when its
// condition holds. OverallRiskLevel is the mean factor score (0 when no
// factor fires); contingency plans are emitted only for scores above 4.0.
func AnalyzeRisks(tasks []Task, utilization []ResourceUtilization) RiskAssessment {
	var factors []RiskFactor

	// Schedule risk: more than 30% of tasks on the critical path.
	var criticalIDs []string
	for i := range tasks {
		if tasks[i].TimeInfo != nil && tasks[i].TimeInfo.IsCritical {
			criticalIDs = append(criticalIDs, tasks[i].ID)
		}
	}
	if len(tasks) > 0 && float64(len(criticalIDs)) > 0.3*float64(len(tasks)) {
		factors = append(factors, RiskFactor{
			ID:   NewID(),
			Name: "critical-path-risk",
			Description: fmt.Sprintf("%d of %d tasks are on the critical path; any slip delays the project",
				len(criticalIDs), len(tasks)),
			Probability:     0.7,
			Impact:          8,
			Score:           riskScore(0.7, 8),
			AffectedTaskIDs: criticalIDs,
			Category:        RiskSchedule,
		})
	}

	// Schedule risk: unusually long tasks.
	var longIDs []string
	for i := range tasks {
		if tasks[i].Duration() > 40 {
			longIDs = append(longIDs, tasks[i].ID)
		}
	}
	if len(longIDs) > 0 {
		factors = append(factors, RiskFactor{
			ID:              NewID(),
			Name:            "long-duration-risk",
			Description:     fmt.Sprintf("%d task(s) exceed 40 hours; estimates at this size are unreliable", len(longIDs)),
			Probability:     0.5,
			Impact:          6,
			Score:           riskScore(0.5, 6),
			AffectedTaskIDs: longIDs,
			Category:        RiskSchedule,
		})
	}

	// Resource risk: allocation above capacity.
	var overNames []string
	var overTaskIDs []string
	for _, u := range utilization {
		if u.OverAllocated {
			overNames = append(overNames, u.ResourceName)
			overTaskIDs = append(overTaskIDs, u.TaskIDs...)
		}
	}
	if len(overNames) > 0 {
		factors = append(factors, RiskFactor{
			ID:              NewID(),
			Name:            "resource-overallocation-risk",
			Description:     fmt.Sprintf("resources over capacity: %v", overNames),
			Probability:     0.8,
			Impact:          7,
			Score:           riskScore(0.8, 7),
			AffectedTaskIDs: dedupeIDs(overTaskIDs),
			Category:        RiskResource,
		})
	}

	// Technical risk: high-complexity tasks.
	var complexIDs []string
	for i := range tasks {
		if tasks[i].Metadata != nil && tasks[i].Metadata.Complexity > 7 {
			complexIDs = append(complexIDs, tasks[i].ID)
		}
	}
	if len(complexIDs) > 0 {
		factors = append(factors, RiskFactor{
			ID:              NewID(),
			Name:            "technical-complexity-risk",
			Description:     fmt.Sprintf("%d task(s) rated complexity above 7", len(complexIDs)),
			Probability:     0.6,
			Impact:          7,
			Score:           riskScore(0.6, 7),
			AffectedTaskIDs: complexIDs,
			Category:        RiskTechnical,
		})
	}

	// Quality risk: most tasks opted out of review.
	var noReviewIDs []string
	for i := range tasks {
		if tasks[i].Metadata != nil && tasks[i].Metadata.RequiresReview != nil && !*tasks[i].Metadata.RequiresReview {
			noReviewIDs = append(noReviewIDs, tasks[i].ID)
		}
	}
	if len(tasks) > 0 && float64(len(noReviewIDs)) > 0.5*float64(len(tasks)) {
		factors = append(factors, RiskFactor{
			ID:              NewID(),
			Name:            "quality-review-risk",
			Description:     fmt.Sprintf("%d of %d tasks skip review", len(noReviewIDs), len(tasks)),
			Probability:     0.4,
			Impact:          6,
			Score:           riskScore(0.4, 6),
			AffectedTaskIDs: noReviewIDs,
			Category:        RiskQuality,
		})
	}

	assessment := RiskAssessment{RiskFactors: factors}
	if len(factors) > 0 {
		var sum float64
		for _, f := range factors {
			sum += f.Score
		}
		assessment.OverallRiskLevel = sum / float64(len(factors))
	}
	for _, f := range factors {
		assessment.MitigationSuggestions = append(assessment.MitigationSuggestions, mitigationFor(f.Category))
		if f.Score > 4.0 {
			assessment.ContingencyPlans = append(assessment.ContingencyPlans, contingencyFor(f.Category))
		}
	}
	return assessment
}

// mitigationFor returns the fixed mitigation text for a risk category.
func mitigationFor(c RiskCategory) string {
	switch c {
	case RiskSchedule:
		return "Add schedule buffer to critical tasks and re-estimate long tasks by splitting them below 40 hours."
	case RiskResource:
		return "Rebalance assignments or raise capacity for over-allocated resources before execution starts."
	case RiskTechnical:
		return "Schedule a design spike for high-complexity tasks and pair senior engineers on them."
	case RiskQuality:
		return "Reinstate review on skipped tasks or add an end-of-phase quality gate."
	case RiskExternal:
		return "Identify external dependencies early and agree on fallback vendors or interfaces."
	default:
		return "Hold a short daily sync while the risk condition persists."
	}
}

// contingencyFor returns the fixed contingency text for a risk category.
func contingencyFor(c RiskCategory) string {
	switch c {
	case RiskSchedule:
		return "If the critical path slips by more than one day, cut scope from low-priority tasks to protect the finish date."
	case RiskResource:
		return "If over-allocation materializes, bring in a floating resource or serialize the conflicting tasks."
	case RiskTechnical:
		return "If a complex task stalls, fall back to the simplest design that satisfies its acceptance criteria."
	case RiskQuality:
		return "If defect rates rise, freeze new work and run a stabilization pass."
	default:
		return "Escalate to the project owner and re-plan the affected tasks."
	}
}

// dedupeIDs removes duplicates, preserving sorted order.
func dedupeIDs(ids []string) []string {
	sort.Strings(ids)
	out := ids[:0]
	var prev string
	for i, id := range ids {
		if i == 0 || id != prev {
			out = append(out, id)
		}
		prev = id
	}
	return out
}
