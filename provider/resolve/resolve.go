// Package resolve maps a model config's provider name onto the adapter
// implementation that speaks its protocol.
package resolve

import (
	"fmt"

	taskflow "github.com/taskflow-ai/taskflow"
	"github.com/taskflow-ai/taskflow/provider/anthropic"
	"github.com/taskflow-ai/taskflow/provider/baidu"
	"github.com/taskflow-ai/taskflow/provider/openaicompat"
	"github.com/taskflow-ai/taskflow/provider/qwen"
	"github.com/taskflow-ai/taskflow/provider/zhipu"
)

// Adapter creates a taskflow.Adapter from a model config based on its
// Provider field. Providers not listed here but reachable over the OpenAI
// wire shape (openrouter, groq, ollama, vllm) resolve via "openai" with an
// explicit BaseURL.
func Adapter(cfg taskflow.ModelConfig) (taskflow.Adapter, error) {
	switch cfg.Provider {
	case "openai":
		return openaicompat.New(cfg), nil
	case "deepseek":
		return openaicompat.NewDeepSeek(cfg), nil
	case "moonshot":
		return openaicompat.NewMoonshot(cfg), nil
	case "spark":
		return openaicompat.NewSpark(cfg), nil
	case "anthropic":
		return anthropic.New(cfg), nil
	case "qwen":
		return qwen.New(cfg), nil
	case "baidu":
		return baidu.New(cfg), nil
	case "zhipu":
		return zhipu.New(cfg), nil
	default:
		return nil, fmt.Errorf("resolve: unknown provider %q", cfg.Provider)
	}
}

// MustAdapter is Adapter that panics on unknown providers; for static
// registrations where the provider name is a literal.
func MustAdapter(cfg taskflow.ModelConfig) taskflow.Adapter {
	a, err := Adapter(cfg)
	if err != nil {
		panic(err)
	}
	return a
}
