package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for LLM and orchestration spans and metrics.
var (
	AttrLLMModel    = attribute.Key("llm.model")
	AttrLLMProvider = attribute.Key("llm.provider")
	AttrLLMMethod   = attribute.Key("llm.method")

	AttrTokensInput  = attribute.Key("llm.tokens.input")
	AttrTokensOutput = attribute.Key("llm.tokens.output")
	AttrCostUSD      = attribute.Key("llm.cost_usd")

	AttrStreamChunks = attribute.Key("llm.stream_chunks")

	AttrPlanTasks    = attribute.Key("plan.tasks")
	AttrPlanCritical = attribute.Key("plan.critical_path_length")
	AttrPlanStrategy = attribute.Key("plan.strategy")
)
