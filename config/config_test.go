package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearCredentials(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "SERPER_API_KEY", "BRAVE_API_KEY", "THREADER_LLM_API_KEY", "THREADER_SEARCH_SERPER_API_KEY", "THREADER_SEARCH_BRAVE_API_KEY"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigFromFileWithDefaults(t *testing.T) {
	clearCredentials(t)
	path := writeConfig(t, "config.json", `{
		"llm": {"api_key": "sk-test", "model": "gpt-4o"},
		"search": {"serper_api_key": "serp-test"},
		"pipeline": {"chunk_size": 1000, "chunk_overlap": 100}
	}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.LLM.Model != "gpt-4o" {
		t.Fatalf("unexpected llm config: %+v", cfg.LLM)
	}
	if cfg.Search.Provider != "serper" || cfg.Search.APIKey() != "serp-test" {
		t.Fatalf("unexpected search config: %+v", cfg.Search)
	}
	if cfg.Pipeline.ChunkSize != 1000 || cfg.Pipeline.ChunkOverlap != 100 {
		t.Fatalf("unexpected pipeline config: %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.TopK != 5 || cfg.Pipeline.SummarizeConcurrency != 4 || cfg.Pipeline.ParseRetries != 1 {
		t.Fatalf("defaults not applied: %+v", cfg.Pipeline)
	}
	if cfg.LLM.Timeout != 60*time.Second || cfg.Fetch.Backend != "http" {
		t.Fatalf("defaults not applied: llm=%+v fetch=%+v", cfg.LLM, cfg.Fetch)
	}
}

func TestLoadConfigReadsConventionalCredentials(t *testing.T) {
	clearCredentials(t)
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("SERPER_API_KEY", "serp-env")
	path := writeConfig(t, "config.yaml", "server:\n  address: \":9000\"\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Fatalf("expected OPENAI_API_KEY to be used, got %q", cfg.LLM.APIKey)
	}
	if cfg.Search.SerperAPIKey != "serp-env" {
		t.Fatalf("expected SERPER_API_KEY to be used, got %q", cfg.Search.SerperAPIKey)
	}
	if cfg.Server.Address != ":9000" {
		t.Fatalf("expected address from file, got %q", cfg.Server.Address)
	}
}

func TestLoadConfigPrefixedEnvOverridesFile(t *testing.T) {
	clearCredentials(t)
	t.Setenv("THREADER_LLM_API_KEY", "sk-prefixed")
	t.Setenv("THREADER_PIPELINE_TOP_K", "3")
	path := writeConfig(t, "config.json", `{"llm": {"api_key": "sk-file"}, "search": {"serper_api_key": "s"}}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "sk-prefixed" {
		t.Fatalf("expected env override, got %q", cfg.LLM.APIKey)
	}
	if cfg.Pipeline.TopK != 3 {
		t.Fatalf("expected top_k override, got %d", cfg.Pipeline.TopK)
	}
}

func TestLoadConfigFailsFastOnMissingCredentials(t *testing.T) {
	clearCredentials(t)
	path := writeConfig(t, "config.json", `{"search": {"serper_api_key": "s"}}`)
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected llm.api_key error, got %v", err)
	}

	path = writeConfig(t, "config.json", `{"llm": {"api_key": "k"}}`)
	_, err = LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "search.serper_api_key") {
		t.Fatalf("expected serper key error, got %v", err)
	}
}

func TestLoadSkipsCredentialChecks(t *testing.T) {
	clearCredentials(t)
	path := writeConfig(t, "config.json", `{
		"server": {"jwt_secret": "s3cret"},
		"events": {"redis": {"enabled": true, "host": "redis.internal"}}
	}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("LoadConfig must reject a config without credentials")
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.JWTSecret != "s3cret" || cfg.Events.Redis.Host != "redis.internal" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if err := cfg.Events.Redis.Validate(); err != nil {
		t.Fatalf("redis section should validate on its own: %v", err)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	clearCredentials(t)
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestPipelineConfigValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cfg     PipelineConfig
		wantErr bool
	}{
		{"valid", PipelineConfig{TopK: 5, ChunkSize: 3000, ChunkOverlap: 200, SummarizeConcurrency: 4}, false},
		{"zero top_k", PipelineConfig{TopK: 0, ChunkSize: 3000, SummarizeConcurrency: 1}, true},
		{"overlap equals size", PipelineConfig{TopK: 5, ChunkSize: 100, ChunkOverlap: 100, SummarizeConcurrency: 1}, true},
		{"negative overlap", PipelineConfig{TopK: 5, ChunkSize: 100, ChunkOverlap: -1, SummarizeConcurrency: 1}, true},
		{"zero concurrency", PipelineConfig{TopK: 5, ChunkSize: 100, ChunkOverlap: 10}, true},
		{"negative retries", PipelineConfig{TopK: 5, ChunkSize: 100, SummarizeConcurrency: 1, ParseRetries: -1}, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSearchAndRedisValidate(t *testing.T) {
	t.Parallel()
	if err := (SearchConfig{Provider: "bing", SerperAPIKey: "x"}).Validate(); err == nil {
		t.Fatalf("expected unsupported provider error")
	}
	if err := (SearchConfig{Provider: "brave", BraveAPIKey: "b"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (RedisConfig{Enabled: true, Host: "localhost", Port: "6379"}).Validate(); err == nil {
		t.Fatalf("expected channel error")
	}
	if err := (RedisConfig{Enabled: false}).Validate(); err != nil {
		t.Fatalf("disabled redis must validate: %v", err)
	}
	if got := (RedisConfig{Host: "h", Port: "1"}).Addr(); got != "h:1" {
		t.Fatalf("Addr() = %q", got)
	}
}
