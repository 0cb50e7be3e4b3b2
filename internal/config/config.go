// Package config loads taskflow configuration: defaults, then taskflow.toml,
// then TASKFLOW_* environment variables (env wins).
package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	taskflow "github.com/taskflow-ai/taskflow"
)

type Config struct {
	Orchestration OrchestrationConfig `toml:"orchestration"`
	Gateway       GatewayConfig       `toml:"gateway"`
	Models        []ModelConfig       `toml:"models"`
	Store         StoreConfig         `toml:"store"`
	Ingest        IngestConfig        `toml:"ingest"`
	Observer      ObserverConfig      `toml:"observer"`
}

type OrchestrationConfig struct {
	Preset              string  `toml:"preset"`
	Strategy            string  `toml:"strategy"`
	MaxParallelTasks    int     `toml:"max_parallel_tasks"`
	WorkingHoursPerDay  float64 `toml:"working_hours_per_day"`
	WorkingDaysPerWeek  int     `toml:"working_days_per_week"`
	BufferPercentage    float64 `toml:"buffer_percentage"`
	StrictMode          bool    `toml:"strict_mode"`
	EnableAIEstimation  bool    `toml:"enable_ai_estimation"`
	PruneTransitiveDeps bool    `toml:"prune_transitive_deps"`
}

type GatewayConfig struct {
	Strategy   string  `toml:"strategy"`
	MaxRetries int     `toml:"max_retries"`
	RetryDelay string  `toml:"retry_delay"`
	Fallback   *bool   `toml:"fallback"`
	RPMLimit   int     `toml:"rpm_limit"`
	TPMLimit   int     `toml:"tpm_limit"`
}

type ModelConfig struct {
	ID              string   `toml:"id"`
	Provider        string   `toml:"provider"`
	Model           string   `toml:"model"`
	BaseURL         string   `toml:"base_url"`
	APIKey          string   `toml:"api_key"`
	Enabled         *bool    `toml:"enabled"`
	Priority        int      `toml:"priority"`
	Capabilities    []string `toml:"capabilities"`
	CostPer1MInput  *float64 `toml:"cost_per_1m_input"`
	CostPer1MOutput *float64 `toml:"cost_per_1m_output"`
}

type StoreConfig struct {
	Backend     string `toml:"backend"` // jsonfile, sqlite, postgres
	Path        string `toml:"path"`
	PostgresURL string `toml:"postgres_url"`
}

type IngestConfig struct {
	DefaultPriority string `toml:"default_priority"`
	MaxFeatures     int    `toml:"max_features"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Orchestration: OrchestrationConfig{
			Strategy:           string(taskflow.StrategyCriticalPath),
			MaxParallelTasks:   5,
			WorkingHoursPerDay: 8,
			WorkingDaysPerWeek: 5,
		},
		Gateway: GatewayConfig{
			Strategy:   string(taskflow.RouteSmart),
			MaxRetries: 2,
			RetryDelay: "1s",
		},
		Store:  StoreConfig{Backend: "jsonfile", Path: "tasks/tasks.json"},
		Ingest: IngestConfig{DefaultPriority: string(taskflow.PriorityMedium)},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "taskflow.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("TASKFLOW_GATEWAY_STRATEGY"); v != "" {
		cfg.Gateway.Strategy = v
	}
	if v := os.Getenv("TASKFLOW_GATEWAY_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.MaxRetries = n
		}
	}
	if v := os.Getenv("TASKFLOW_GATEWAY_RETRY_DELAY"); v != "" {
		cfg.Gateway.RetryDelay = v
	}
	if v := os.Getenv("TASKFLOW_ORCHESTRATION_STRATEGY"); v != "" {
		cfg.Orchestration.Strategy = v
	}
	if v := os.Getenv("TASKFLOW_ORCHESTRATION_PRESET"); v != "" {
		cfg.Orchestration.Preset = v
	}
	if v := os.Getenv("TASKFLOW_STORE_BACKEND"); v != "" {
		cfg.Store.Backend = v
	}
	if v := os.Getenv("TASKFLOW_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TASKFLOW_STORE_POSTGRES_URL"); v != "" {
		cfg.Store.PostgresURL = v
	}
	if v := os.Getenv("TASKFLOW_OBSERVER_ENABLED"); v == "true" || v == "1" {
		cfg.Observer.Enabled = true
	}
	// Per-model API keys: TASKFLOW_API_KEY applies to every model without
	// one; TASKFLOW_<PROVIDER>_API_KEY wins for that provider.
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if v := os.Getenv("TASKFLOW_" + screaming(m.Provider) + "_API_KEY"); v != "" {
			m.APIKey = v
		} else if m.APIKey == "" {
			m.APIKey = os.Getenv("TASKFLOW_API_KEY")
		}
	}

	return cfg
}

// ModelConfigs converts the TOML model entries to taskflow.ModelConfig.
func (c Config) ModelConfigs() []taskflow.ModelConfig {
	out := make([]taskflow.ModelConfig, 0, len(c.Models))
	for _, m := range c.Models {
		enabled := true
		if m.Enabled != nil {
			enabled = *m.Enabled
		}
		caps := make([]taskflow.Capability, 0, len(m.Capabilities))
		for _, cap := range m.Capabilities {
			caps = append(caps, taskflow.Capability(cap))
		}
		out = append(out, taskflow.ModelConfig{
			ID:              m.ID,
			Provider:        m.Provider,
			ModelName:       m.Model,
			BaseURL:         m.BaseURL,
			APIKey:          m.APIKey,
			Enabled:         enabled,
			Priority:        m.Priority,
			Capabilities:    caps,
			CostPer1MInput:  m.CostPer1MInput,
			CostPer1MOutput: m.CostPer1MOutput,
		})
	}
	return out
}

// KV is a dotted-key view over the raw TOML document, for callers that want
// ad-hoc values instead of the typed Config. Lookup order per key: the
// TASKFLOW_<SCREAMING_KEY> env var, then the document, then the zero value.
type KV struct {
	raw map[string]any
}

// LoadKV reads the TOML file at path into a KV. A missing or unreadable file
// yields an empty document; env overrides still apply.
func LoadKV(path string) KV {
	if path == "" {
		path = "taskflow.toml"
	}
	raw := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &raw)
	}
	return KV{raw: raw}
}

// lookup resolves a dotted key, env var first.
func (kv KV) lookup(key string) (any, bool) {
	if v, ok := os.LookupEnv("TASKFLOW_" + screaming(key)); ok {
		return v, true
	}
	var cur any = kv.raw
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// GetString returns the string value for a dotted key, or "".
func (kv KV) GetString(key string) string {
	v, ok := kv.lookup(key)
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// GetInt returns the integer value for a dotted key, or 0.
func (kv KV) GetInt(key string) int {
	switch v, _ := kv.lookup(key); v := v.(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	default:
		return 0
	}
}

// GetBool returns the boolean value for a dotted key, or false.
func (kv KV) GetBool(key string) bool {
	switch v, _ := kv.lookup(key); v := v.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}

// GetFloat returns the float value for a dotted key, or 0.
func (kv KV) GetFloat(key string) float64 {
	switch v, _ := kv.lookup(key); v := v.(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	default:
		return 0
	}
}

// screaming converts a provider name to the env-var segment: dots and dashes
// become underscores, letters upper-case.
func screaming(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z':
			b[i] = c - 'a' + 'A'
		case c == '.' || c == '-':
			b[i] = '_'
		}
	}
	return string(b)
}
