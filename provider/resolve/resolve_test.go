package resolve

import (
	"testing"

	taskflow "github.com/taskflow-ai/taskflow"
)

func TestAdapter_KnownProviders(t *testing.T) {
	tests := []struct {
		provider string
		wantName string
	}{
		{"openai", "openai"},
		{"deepseek", "deepseek"},
		{"moonshot", "moonshot"},
		{"spark", "spark"},
		{"anthropic", "anthropic"},
		{"qwen", "qwen"},
		{"baidu", "baidu"},
		{"zhipu", "zhipu"},
	}
	for _, tt := range tests {
		a, err := Adapter(taskflow.ModelConfig{
			Provider:  tt.provider,
			ModelName: "some-model",
			APIKey:    "k",
		})
		if err != nil {
			t.Fatalf("Adapter(%q) returned error: %v", tt.provider, err)
		}
		if a.Name() != tt.wantName {
			t.Errorf("Adapter(%q).Name() = %q, want %q", tt.provider, a.Name(), tt.wantName)
		}
	}
}

func TestAdapter_UnknownProvider(t *testing.T) {
	if _, err := Adapter(taskflow.ModelConfig{Provider: "nope"}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestMustAdapter_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown provider")
		}
	}()
	MustAdapter(taskflow.ModelConfig{Provider: "nope"})
}
