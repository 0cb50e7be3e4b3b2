package ingest

import (
	"regexp"
	"strconv"
	"strings"

	taskflow "github.com/taskflow-ai/taskflow"
)

// featureFromName seeds a feature from its heading, picking up any priority
// or type keywords the heading itself carries.
func featureFromName(name string) taskflow.Feature {
	return taskflow.Feature{
		Name:     name,
		Priority: priorityFromKeywords(name),
		Type:     typeFromKeywords(name),
	}
}

// priorityFromKeywords maps requirement language onto a priority, or "".
func priorityFromKeywords(s string) taskflow.TaskPriority {
	s = strings.ToLower(s)
	switch {
	case containsAny(s, "critical", "blocker", "p0", "must have", "must-have"):
		return taskflow.PriorityCritical
	case containsAny(s, "high", "important", "p1", "should have", "should-have"):
		return taskflow.PriorityHigh
	case containsAny(s, "low", "p3", "nice to have", "nice-to-have", "optional", "could have"):
		return taskflow.PriorityLow
	case containsAny(s, "medium", "p2", "normal"):
		return taskflow.PriorityMedium
	}
	return ""
}

// typeFromKeywords maps work descriptions onto a task type, or "".
func typeFromKeywords(s string) taskflow.TaskType {
	s = strings.ToLower(s)
	switch {
	case containsAny(s, "bug", "fix", "hotfix"):
		return taskflow.TypeBugFix
	case containsAny(s, "refactor", "cleanup", "rework"):
		return taskflow.TypeRefactor
	case containsAny(s, "test", "qa", "verification"):
		return taskflow.TypeTest
	case containsAny(s, "doc", "documentation", "readme"):
		return taskflow.TypeDocument
	case containsAny(s, "research", "investigate", "spike", "explore"):
		return taskflow.TypeResearch
	case containsAny(s, "design", "mockup", "wireframe", "ux"):
		return taskflow.TypeDesign
	case containsAny(s, "deploy", "release", "rollout", "infra"):
		return taskflow.TypeDeployment
	case containsAny(s, "analysis", "analyze", "metrics"):
		return taskflow.TypeAnalysis
	}
	return ""
}

var hoursPattern = regexp.MustCompile(`(?i)(?:~\s*)?(\d+(?:\.\d+)?)\s*(?:h\b|hr\b|hrs\b|hours?\b)`)
var daysPattern = regexp.MustCompile(`(?i)(?:~\s*)?(\d+(?:\.\d+)?)\s*(?:d\b|days?\b)`)

// hoursFromText extracts an effort estimate in hours from free text, such as
// "~16h", "3 hours", or "2 days" (one day is eight hours). Returns 0 when no
// estimate is present.
func hoursFromText(s string) float64 {
	if m := hoursPattern.FindStringSubmatch(s); m != nil {
		if h, err := strconv.ParseFloat(m[1], 64); err == nil {
			return h
		}
	}
	if m := daysPattern.FindStringSubmatch(s); m != nil {
		if d, err := strconv.ParseFloat(m[1], 64); err == nil {
			return d * 8
		}
	}
	return 0
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
