package observer

// ModelPricing holds per-million-token pricing for a model.
type ModelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// DefaultPricing contains sensible defaults for common models.
// Users can override or extend via [observer.pricing] in taskflow.toml.
var DefaultPricing = map[string]ModelPricing{
	// OpenAI
	"gpt-4o":      {2.50, 10.00},
	"gpt-4o-mini": {0.15, 0.60},
	"gpt-4.1":     {2.00, 8.00},
	"o1":          {15.00, 60.00},
	"o3-mini":     {1.10, 4.40},

	// Anthropic
	"claude-3-5-sonnet-20241022": {3.00, 15.00},
	"claude-3-5-haiku-20241022":  {0.80, 4.00},
	"claude-3-opus-20240229":     {15.00, 75.00},

	// DeepSeek
	"deepseek-chat":  {0.27, 1.10},
	"deepseek-coder": {0.27, 1.10},

	// Qwen
	"qwen-plus":  {0.40, 1.20},
	"qwen-turbo": {0.05, 0.20},
	"qwen-max":   {1.60, 6.40},

	// Zhipu
	"glm-4":     {1.40, 1.40},
	"glm-4-air": {0.14, 0.14},

	// Baidu
	"ernie-4.0-8k":   {1.70, 1.70},
	"ernie-speed-8k": {0.0, 0.0},

	// Moonshot
	"moonshot-v1-8k":  {1.70, 1.70},
	"moonshot-v1-32k": {3.40, 3.40},
}

// CostCalculator computes USD cost from token counts.
type CostCalculator struct {
	pricing map[string]ModelPricing
}

// NewCostCalculator creates a calculator with default pricing, optionally merged with overrides.
func NewCostCalculator(overrides map[string]ModelPricing) *CostCalculator {
	merged := make(map[string]ModelPricing, len(DefaultPricing)+len(overrides))
	for k, v := range DefaultPricing {
		merged[k] = v
	}
	for k, v := range overrides {
		merged[k] = v
	}
	return &CostCalculator{pricing: merged}
}

// Calculate returns the cost in USD for the given model and token counts.
// Returns 0.0 for unknown models.
func (c *CostCalculator) Calculate(model string, promptTokens, completionTokens int) float64 {
	p, ok := c.pricing[model]
	if !ok {
		return 0.0
	}
	return float64(promptTokens)/1_000_000*p.InputPerMillion +
		float64(completionTokens)/1_000_000*p.OutputPerMillion
}
