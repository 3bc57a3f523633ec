package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for threader
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	Server    ServerConfig    `mapstructure:"server"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Search    SearchConfig    `mapstructure:"search"`
	Fetch     FetchConfig     `mapstructure:"fetch"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug bool `mapstructure:"debug"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
	// JWTSecret enables bearer token auth on the /api routes when non-empty.
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LLMConfig describes the OpenAI-compatible chat completion endpoint.
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	// StructuredOutput asks the endpoint for json_schema responses. Turn it off for
	// OpenAI-compatible servers that do not implement response_format.
	StructuredOutput bool `mapstructure:"structured_output"`
}

func (l LLMConfig) Validate() error {
	if strings.TrimSpace(l.APIKey) == "" {
		return fmt.Errorf("llm.api_key required (set OPENAI_API_KEY or THREADER_LLM_API_KEY)")
	}
	if strings.TrimSpace(l.Model) == "" {
		return fmt.Errorf("llm.model required")
	}
	if l.Temperature < 0 || l.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	return nil
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	Endpoint     string        `mapstructure:"endpoint"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// APIKey returns the credential that belongs to the selected provider.
func (s SearchConfig) APIKey() string {
	switch s.Provider {
	case "brave":
		return s.BraveAPIKey
	default:
		return s.SerperAPIKey
	}
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "serper":
		if strings.TrimSpace(s.SerperAPIKey) == "" {
			return fmt.Errorf("search.serper_api_key required (set SERPER_API_KEY or THREADER_SEARCH_SERPER_API_KEY)")
		}
	case "brave":
		if strings.TrimSpace(s.BraveAPIKey) == "" {
			return fmt.Errorf("search.brave_api_key required (set BRAVE_API_KEY or THREADER_SEARCH_BRAVE_API_KEY)")
		}
	default:
		return fmt.Errorf("search.provider %q not supported (serper, brave)", s.Provider)
	}
	if s.MaxResults < 0 {
		return fmt.Errorf("search.max_results cannot be negative")
	}
	return nil
}

// FetchConfig controls article retrieval.
type FetchConfig struct {
	Backend   string        `mapstructure:"backend"`
	Timeout   time.Duration `mapstructure:"timeout"`
	MaxChars  int           `mapstructure:"max_chars"`
	UserAgent string        `mapstructure:"user_agent"`
}

func (f FetchConfig) Validate() error {
	switch f.Backend {
	case "http", "chromedp":
	default:
		return fmt.Errorf("fetch.backend %q not supported (http, chromedp)", f.Backend)
	}
	if f.MaxChars < 0 {
		return fmt.Errorf("fetch.max_chars cannot be negative")
	}
	return nil
}

// PipelineConfig tunes the stages between search and thread.
type PipelineConfig struct {
	TopK                 int           `mapstructure:"top_k"`
	ChunkSize            int           `mapstructure:"chunk_size"`
	ChunkOverlap         int           `mapstructure:"chunk_overlap"`
	SummarizeConcurrency int           `mapstructure:"summarize_concurrency"`
	ParseRetries         int           `mapstructure:"parse_retries"`
	RunTimeout           time.Duration `mapstructure:"run_timeout"`
}

func (p PipelineConfig) Validate() error {
	if p.TopK <= 0 {
		return fmt.Errorf("pipeline.top_k must be > 0")
	}
	if p.ChunkSize <= 0 {
		return fmt.Errorf("pipeline.chunk_size must be > 0")
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("pipeline.chunk_overlap must be within [0, chunk_size)")
	}
	if p.SummarizeConcurrency <= 0 {
		return fmt.Errorf("pipeline.summarize_concurrency must be > 0")
	}
	if p.ParseRetries < 0 {
		return fmt.Errorf("pipeline.parse_retries cannot be negative")
	}
	return nil
}

// EventsConfig controls where run progress events are published.
type EventsConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Channel  string        `mapstructure:"channel"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func (r RedisConfig) Addr() string { return fmt.Sprintf("%s:%s", r.Host, r.Port) }

func (r RedisConfig) Validate() error {
	if !r.Enabled {
		return nil
	}
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("events.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("events.redis.port required")
	}
	if strings.TrimSpace(r.Channel) == "" {
		return fmt.Errorf("events.redis.channel required")
	}
	return nil
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	MetricsPath string `mapstructure:"metrics_path"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && !strings.HasPrefix(t.MetricsPath, "/") {
		return fmt.Errorf("telemetry.metrics_path must start with /")
	}
	return nil
}

// Validate checks every section and returns the first problem found.
func (c *Config) Validate() error {
	validators := []func() error{
		c.LLM.Validate,
		c.Search.Validate,
		c.Fetch.Validate,
		c.Pipeline.Validate,
		c.Events.Redis.Validate,
		c.Telemetry.Validate,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("general.debug", false)
	v.SetDefault("server.address", ":10001")
	v.SetDefault("server.jwt_secret", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.timeout", 60*time.Second)
	v.SetDefault("llm.structured_output", true)
	v.SetDefault("search.provider", "serper")
	v.SetDefault("search.endpoint", "")
	v.SetDefault("search.max_results", 10)
	v.SetDefault("search.timeout", 15*time.Second)
	v.SetDefault("fetch.backend", "http")
	v.SetDefault("fetch.timeout", 15*time.Second)
	v.SetDefault("fetch.max_chars", 20000)
	v.SetDefault("fetch.user_agent", "threader/1.0 (+https://github.com/mohammad-safakhou/threader)")
	v.SetDefault("pipeline.top_k", 5)
	v.SetDefault("pipeline.chunk_size", 3000)
	v.SetDefault("pipeline.chunk_overlap", 200)
	v.SetDefault("pipeline.summarize_concurrency", 4)
	v.SetDefault("pipeline.parse_retries", 1)
	v.SetDefault("pipeline.run_timeout", 5*time.Minute)
	v.SetDefault("events.redis.enabled", false)
	v.SetDefault("events.redis.host", "localhost")
	v.SetDefault("events.redis.port", "6379")
	v.SetDefault("events.redis.password", "")
	v.SetDefault("events.redis.db", 0)
	v.SetDefault("events.redis.channel", "threader:runs")
	v.SetDefault("events.redis.timeout", 5*time.Second)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.metrics_path", "/metrics")
}

// LoadConfig is Load followed by Validate. Commands that call the model or the
// search provider use it.
func LoadConfig(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the config file (optional), THREADER_* environment variables and the
// conventional provider credentials without validating them.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		v.AddConfigPath(exeDir)
		v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("THREADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The bare provider variables are what every tutorial tells people to export.
	_ = v.BindEnv("llm.api_key", "THREADER_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("search.serper_api_key", "THREADER_SEARCH_SERPER_API_KEY", "SERPER_API_KEY")
	_ = v.BindEnv("search.brave_api_key", "THREADER_SEARCH_BRAVE_API_KEY", "BRAVE_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional when no explicit path was given.
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
