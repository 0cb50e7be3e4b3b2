package taskflow

import (
	"math/rand"
	"sort"
	"strings"
)

// RoutingStrategy names a model selection policy.
type RoutingStrategy string

const (
	RouteSmart    RoutingStrategy = "smart"
	RouteCost     RoutingStrategy = "cost"
	RouteSpeed    RoutingStrategy = "speed"
	RoutePriority RoutingStrategy = "priority"
	RouteRandom   RoutingStrategy = "random"
)

// RoutingDecision is the router's output: the chosen model plus the full
// candidate list in preference order, which the gateway walks on fallback.
type RoutingDecision struct {
	Model      ModelConfig     `json:"model"`
	Reason     string          `json:"reason"`
	Candidates []ModelConfig   `json:"candidates"`
	Strategy   RoutingStrategy `json:"strategy"`
}

// RoutingContext is derived from the request under the smart strategy.
type RoutingContext struct {
	TaskType   Capability // chat, code, reasoning, vision
	Complexity string     // low, medium, high
}

// RoutingRule awards weight to preferred model IDs when its context
// predicate matches. Earlier entries in PreferredIDs receive more weight.
type RoutingRule struct {
	Name         string
	Matches      func(RoutingContext) bool
	PreferredIDs []string
	Weight       float64
}

// DefaultRoutingRules is the built-in smart routing rule table.
var DefaultRoutingRules = []RoutingRule{
	{
		Name:         "code",
		Matches:      func(rc RoutingContext) bool { return rc.TaskType == CapCode },
		PreferredIDs: []string{"deepseek-coder", "gpt-4o", "claude-3-5-sonnet"},
		Weight:       10,
	},
	{
		Name:         "reasoning",
		Matches:      func(rc RoutingContext) bool { return rc.TaskType == CapReasoning },
		PreferredIDs: []string{"o1", "claude-3-opus", "qwen-plus"},
		Weight:       10,
	},
	{
		Name:         "vision",
		Matches:      func(rc RoutingContext) bool { return rc.TaskType == CapVision },
		PreferredIDs: []string{"gpt-4o", "claude-3-5-sonnet", "glm-4v"},
		Weight:       10,
	},
	{
		Name:         "function-calling",
		Matches:      func(rc RoutingContext) bool { return rc.TaskType == CapFunction },
		PreferredIDs: []string{"gpt-4o", "glm-4", "qwen-max"},
		Weight:       8,
	},
	{
		Name:         "cheap-for-simple",
		Matches:      func(rc RoutingContext) bool { return rc.Complexity == "low" },
		PreferredIDs: []string{"gpt-4o-mini", "deepseek-chat", "glm-4-flash", "ernie-speed"},
		Weight:       5,
	},
	{
		Name:         "strong-for-complex",
		Matches:      func(rc RoutingContext) bool { return rc.Complexity == "high" },
		PreferredIDs: []string{"o1", "claude-3-opus", "gpt-4o"},
		Weight:       6,
	},
}

// providerLatency is the static latency table (milliseconds) for the speed
// strategy. Unknown providers sort last.
var providerLatency = map[string]int{
	"openai":    800,
	"anthropic": 900,
	"spark":     950,
	"zhipu":     1000,
	"moonshot":  1100,
	"qwen":      1100,
	"deepseek":  1200,
	"baidu":     1300,
}

// Router picks one model from the enabled set per request.
type Router struct {
	rules []RoutingRule
}

// NewRouter creates a Router. With no rules given, DefaultRoutingRules apply.
func NewRouter(rules ...RoutingRule) *Router {
	if len(rules) == 0 {
		rules = DefaultRoutingRules
	}
	return &Router{rules: rules}
}

// Select orders the enabled models per the strategy and returns the decision.
// A preferredID naming an enabled model short-circuits every strategy. The
// enabled slice is never mutated.
func (r *Router) Select(messages []ChatMessage, enabled []ModelConfig, preferredID string, strategy RoutingStrategy) (RoutingDecision, error) {
	if len(enabled) == 0 {
		return RoutingDecision{}, &ErrValidation{Field: "models", Message: "no enabled models"}
	}

	candidates := make([]ModelConfig, len(enabled))
	copy(candidates, enabled)

	if preferredID != "" {
		for i, m := range candidates {
			if m.ID == preferredID {
				// Move the preferred model to the front; the rest keep
				// their priority order for fallback.
				c := append([]ModelConfig{m}, append(append([]ModelConfig{}, candidates[:i]...), candidates[i+1:]...)...)
				return RoutingDecision{
					Model:      m,
					Reason:     "user preferred",
					Candidates: c,
					Strategy:   strategy,
				}, nil
			}
		}
	}

	var reason string
	switch strategy {
	case RouteCost:
		reason = "lowest input cost"
		sort.SliceStable(candidates, func(i, j int) bool {
			ci, cj := costOf(candidates[i]), costOf(candidates[j])
			if ci != cj {
				return ci < cj
			}
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].ID < candidates[j].ID
		})
	case RouteSpeed:
		reason = "lowest estimated latency"
		sort.SliceStable(candidates, func(i, j int) bool {
			li, lj := latencyOf(candidates[i]), latencyOf(candidates[j])
			if li != lj {
				return li < lj
			}
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].ID < candidates[j].ID
		})
	case RoutePriority:
		reason = "configured priority"
		sort.SliceStable(candidates, func(i, j int) bool {
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].ID < candidates[j].ID
		})
	case RouteRandom:
		reason = "random selection"
		rand.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
	default: // smart
		rc := DeriveRoutingContext(messages)
		reason = "smart: " + string(rc.TaskType) + "/" + rc.Complexity
		scores := r.scoreModels(rc, candidates)
		sort.SliceStable(candidates, func(i, j int) bool {
			si, sj := scores[candidates[i].ID], scores[candidates[j].ID]
			if si != sj {
				return si > sj
			}
			if candidates[i].Priority != candidates[j].Priority {
				return candidates[i].Priority < candidates[j].Priority
			}
			return candidates[i].ID < candidates[j].ID
		})
	}

	return RoutingDecision{
		Model:      candidates[0],
		Reason:     reason,
		Candidates: candidates,
		Strategy:   strategy,
	}, nil
}

// scoreModels applies the rule table plus a capability-match bonus.
func (r *Router) scoreModels(rc RoutingContext, models []ModelConfig) map[string]float64 {
	scores := make(map[string]float64, len(models))
	for _, rule := range r.rules {
		if !rule.Matches(rc) {
			continue
		}
		for pos, id := range rule.PreferredIDs {
			// Earlier preferences earn more: full weight for the first ID,
			// decaying linearly across the list.
			scores[id] += rule.Weight * float64(len(rule.PreferredIDs)-pos) / float64(len(rule.PreferredIDs))
		}
	}
	for _, m := range models {
		if rc.TaskType != "" && m.HasCapability(rc.TaskType) {
			scores[m.ID] += 2
		}
	}
	return scores
}

// DeriveRoutingContext inspects the last message for task-type keywords and
// the total conversation length for complexity.
func DeriveRoutingContext(messages []ChatMessage) RoutingContext {
	rc := RoutingContext{TaskType: CapChat, Complexity: "medium"}

	var last string
	if len(messages) > 0 {
		last = strings.ToLower(messages[len(messages)-1].Content)
	}
	switch {
	case containsAny(last, "code", "function", "implement", "debug", "refactor"):
		rc.TaskType = CapCode
	case containsAny(last, "analyze", "think", "reason", "why", "prove"):
		rc.TaskType = CapReasoning
		rc.Complexity = "high"
	case containsAny(last, "image", "picture", "photo", "screenshot"):
		rc.TaskType = CapVision
	}

	var total int
	for _, m := range messages {
		total += len(m.Content)
	}
	if rc.Complexity == "medium" {
		if total < 200 {
			rc.Complexity = "low"
		} else if total > 2000 {
			rc.Complexity = "high"
		}
	}
	return rc
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// costOf returns the input cost for sorting; unknown cost sorts last.
func costOf(m ModelConfig) float64 {
	if m.CostPer1MInput == nil {
		return 1e18
	}
	return *m.CostPer1MInput
}

// latencyOf returns the static latency estimate; unknown providers sort last.
func latencyOf(m ModelConfig) int {
	if ms, ok := providerLatency[m.Provider]; ok {
		return ms
	}
	return 1 << 30
}
