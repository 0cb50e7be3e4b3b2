package config

import (
	"os"
	"path/filepath"
	"testing"

	taskflow "github.com/taskflow-ai/taskflow"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Gateway.Strategy != "smart" {
		t.Errorf("expected default gateway strategy smart, got %q", cfg.Gateway.Strategy)
	}
	if cfg.Gateway.MaxRetries != 2 {
		t.Errorf("expected default max retries 2, got %d", cfg.Gateway.MaxRetries)
	}
	if cfg.Orchestration.MaxParallelTasks != 5 {
		t.Errorf("expected default max parallel 5, got %d", cfg.Orchestration.MaxParallelTasks)
	}
	if cfg.Store.Backend != "jsonfile" {
		t.Errorf("expected default store jsonfile, got %q", cfg.Store.Backend)
	}
}

func TestLoad_TOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskflow.toml")
	data := `
[orchestration]
strategy = "priority_first"
max_parallel_tasks = 3
strict_mode = true

[gateway]
strategy = "cost"
max_retries = 5

[store]
backend = "sqlite"
path = "plans.db"

[[models]]
id = "gpt"
provider = "openai"
model = "gpt-4o"
priority = 1
capabilities = ["chat", "code"]
cost_per_1m_input = 2.5

[[models]]
id = "ds"
provider = "deepseek"
model = "deepseek-chat"
enabled = false
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Load(path)
	if cfg.Orchestration.Strategy != "priority_first" || !cfg.Orchestration.StrictMode {
		t.Errorf("orchestration section not applied: %+v", cfg.Orchestration)
	}
	if cfg.Gateway.Strategy != "cost" || cfg.Gateway.MaxRetries != 5 {
		t.Errorf("gateway section not applied: %+v", cfg.Gateway)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "plans.db" {
		t.Errorf("store section not applied: %+v", cfg.Store)
	}

	models := cfg.ModelConfigs()
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(models))
	}
	if !models[0].Enabled {
		t.Error("enabled must default to true when omitted")
	}
	if models[1].Enabled {
		t.Error("explicit enabled = false must be honored")
	}
	if !models[0].HasCapability(taskflow.CapCode) {
		t.Errorf("capabilities not converted: %+v", models[0].Capabilities)
	}
	if models[0].CostPer1MInput == nil || *models[0].CostPer1MInput != 2.5 {
		t.Errorf("pricing not applied: %+v", models[0].CostPer1MInput)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskflow.toml")
	data := `
[gateway]
max_retries = 1

[[models]]
id = "gpt"
provider = "openai"
model = "gpt-4o"

[[models]]
id = "glm"
provider = "zhipu"
model = "glm-4"
api_key = "from-file"
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TASKFLOW_GATEWAY_MAX_RETRIES", "7")
	t.Setenv("TASKFLOW_GATEWAY_STRATEGY", "speed")
	t.Setenv("TASKFLOW_API_KEY", "fallback-key")
	t.Setenv("TASKFLOW_ZHIPU_API_KEY", "zhipu-key")

	cfg := Load(path)
	if cfg.Gateway.MaxRetries != 7 {
		t.Errorf("env must win over file: got %d", cfg.Gateway.MaxRetries)
	}
	if cfg.Gateway.Strategy != "speed" {
		t.Errorf("env strategy not applied: %q", cfg.Gateway.Strategy)
	}
	if cfg.Models[0].APIKey != "fallback-key" {
		t.Errorf("generic key fallback not applied: %q", cfg.Models[0].APIKey)
	}
	if cfg.Models[1].APIKey != "zhipu-key" {
		t.Errorf("provider-specific key must win: %q", cfg.Models[1].APIKey)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if cfg.Gateway.MaxRetries != 2 {
		t.Errorf("expected defaults when file missing, got %+v", cfg.Gateway)
	}
}

func TestKV_DottedKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskflow.toml")
	data := `
[gateway]
strategy = "cost"
max_retries = 4
fallback = true

[orchestration]
buffer_percentage = 0.25
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	kv := LoadKV(path)
	if got := kv.GetString("gateway.strategy"); got != "cost" {
		t.Errorf("GetString = %q, want cost", got)
	}
	if got := kv.GetInt("gateway.max_retries"); got != 4 {
		t.Errorf("GetInt = %d, want 4", got)
	}
	if !kv.GetBool("gateway.fallback") {
		t.Error("GetBool = false, want true")
	}
	if got := kv.GetFloat("orchestration.buffer_percentage"); got != 0.25 {
		t.Errorf("GetFloat = %v, want 0.25", got)
	}

	// Unknown keys fall back to zero values.
	if kv.GetString("no.such.key") != "" || kv.GetInt("no.such.key") != 0 {
		t.Error("missing key must yield zero values")
	}

	// Env var wins over the document: dots become underscores, upper-cased.
	t.Setenv("TASKFLOW_GATEWAY_STRATEGY", "speed")
	if got := kv.GetString("gateway.strategy"); got != "speed" {
		t.Errorf("env override: GetString = %q, want speed", got)
	}
	t.Setenv("TASKFLOW_GATEWAY_MAX_RETRIES", "9")
	if got := kv.GetInt("gateway.max_retries"); got != 9 {
		t.Errorf("env override: GetInt = %d, want 9", got)
	}
}

func TestScreaming(t *testing.T) {
	if got := screaming("open-ai.v2"); got != "OPEN_AI_V2" {
		t.Errorf("screaming() = %q", got)
	}
}
