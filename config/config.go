package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the research service
type Config struct {
	General  GeneralConfig  `mapstructure:"general"`
	Server   ServerConfig   `mapstructure:"server"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Search   SearchConfig   `mapstructure:"search"`
	Fetch    FetchConfig    `mapstructure:"fetch"`
	Email    EmailConfig    `mapstructure:"email"`
	Runs     RunsConfig     `mapstructure:"runs"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug          bool          `mapstructure:"debug"`
	LogLevel       string        `mapstructure:"log_level"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address        string `mapstructure:"address"`
	StreamEnabled  bool   `mapstructure:"stream_enabled"`
	StreamInterval int    `mapstructure:"stream_interval"`
}

// LLMConfig contains LLM provider configuration
type LLMConfig struct {
	Providers map[string]LLMProvider `mapstructure:"providers"`
	Routing   LLMRoutingConfig       `mapstructure:"routing"`
}

// LLMProvider represents a single LLM provider configuration
type LLMProvider struct {
	Type    string              `mapstructure:"type"` // openai for now
	APIKey  string              `mapstructure:"api_key"`
	BaseURL string              `mapstructure:"base_url"`
	Models  map[string]LLMModel `mapstructure:"models"`
	Timeout time.Duration       `mapstructure:"timeout"`
}

// LLMModel represents a specific model configuration
type LLMModel struct {
	Name            string  `mapstructure:"name"`
	APIName         string  `mapstructure:"api_name"`
	MaxTokens       int     `mapstructure:"max_tokens"`
	Temperature     float64 `mapstructure:"temperature"`
	CostPer1K       float64 `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64 `mapstructure:"cost_per_1k_output"`
}

// LLMRoutingConfig defines which model handles each pipeline stage
type LLMRoutingConfig struct {
	Planning  string `mapstructure:"planning"`
	Research  string `mapstructure:"research"`
	Synthesis string `mapstructure:"synthesis"`
	Email     string `mapstructure:"email"`
	Fallback  string `mapstructure:"fallback"`
}

// Model returns the model routed for a stage, falling back when unset.
func (r LLMRoutingConfig) Model(stage string) string {
	var m string
	switch stage {
	case "planning":
		m = r.Planning
	case "research":
		m = r.Research
	case "synthesis":
		m = r.Synthesis
	case "email":
		m = r.Email
	}
	if m == "" {
		m = r.Fallback
	}
	return m
}

// PipelineConfig controls the research pipeline shape
type PipelineConfig struct {
	NumSearches     int           `mapstructure:"num_searches"`
	SearchDelay     time.Duration `mapstructure:"search_delay"`
	FetchTopResults int           `mapstructure:"fetch_top_results"`
	StageTimeout    time.Duration `mapstructure:"stage_timeout"`
}

func (p PipelineConfig) Validate() error {
	if p.NumSearches <= 0 {
		return fmt.Errorf("pipeline.num_searches must be > 0")
	}
	if p.SearchDelay < 0 {
		return fmt.Errorf("pipeline.search_delay cannot be negative")
	}
	if p.FetchTopResults < 0 {
		return fmt.Errorf("pipeline.fetch_top_results cannot be negative")
	}
	return nil
}

// SearchConfig contains web search settings
type SearchConfig struct {
	Provider     string        `mapstructure:"provider"` // serper or brave
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	BraveAPIKey  string        `mapstructure:"brave_api_key"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

func (s SearchConfig) Validate() error {
	switch s.Provider {
	case "serper":
		if strings.TrimSpace(s.SerperAPIKey) == "" {
			return fmt.Errorf("search.serper_api_key required for serper provider")
		}
	case "brave":
		if strings.TrimSpace(s.BraveAPIKey) == "" {
			return fmt.Errorf("search.brave_api_key required for brave provider")
		}
	default:
		return fmt.Errorf("search.provider must be serper or brave")
	}
	if s.MaxResults <= 0 {
		return fmt.Errorf("search.max_results must be > 0")
	}
	return nil
}

// FetchConfig controls page-content fetching for search enrichment
type FetchConfig struct {
	Fetcher  string        `mapstructure:"fetcher"` // readability or chromedp
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxChars int           `mapstructure:"max_chars"`
}

// EmailConfig contains transactional email settings
type EmailConfig struct {
	SendGridAPIKey string        `mapstructure:"sendgrid_api_key"`
	From           string        `mapstructure:"from"`
	FromName       string        `mapstructure:"from_name"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

func (e EmailConfig) Validate() error {
	if strings.TrimSpace(e.SendGridAPIKey) == "" {
		return fmt.Errorf("email.sendgrid_api_key required")
	}
	if strings.TrimSpace(e.From) == "" {
		return fmt.Errorf("email.from required")
	}
	return nil
}

// RunsConfig controls the run/session store
type RunsConfig struct {
	Store string        `mapstructure:"store"` // inmemory or redis
	TTL   time.Duration `mapstructure:"ttl"`
	Redis RedisConfig   `mapstructure:"redis"`
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r RedisConfig) Validate() error {
	if strings.TrimSpace(r.Host) == "" {
		return fmt.Errorf("runs.redis.host required")
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("runs.redis.port required")
	}
	return nil
}

func (r RunsConfig) Validate() error {
	switch r.Store {
	case "inmemory":
		return nil
	case "redis":
		return r.Redis.Validate()
	default:
		return fmt.Errorf("runs.store must be inmemory or redis")
	}
}

// Validate checks every section that has hard requirements. Credential
// problems are reported here, before any run starts.
func (c *Config) Validate() error {
	if err := c.Pipeline.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if err := c.Email.Validate(); err != nil {
		return err
	}
	if err := c.Runs.Validate(); err != nil {
		return err
	}
	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("llm.providers must configure at least one provider")
	}
	for name, p := range c.LLM.Providers {
		if strings.TrimSpace(p.APIKey) == "" {
			return fmt.Errorf("llm.providers.%s.api_key (or OPENAI_API_KEY) required", name)
		}
	}
	return nil
}

// LoadConfig loads config from file with RESEARCHER_* env overrides
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")
	setDefaults()

	if path == "" {
		viper.AddConfigPath("./config")
		viper.AddConfigPath(".")
		exe, _ := os.Executable()
		exeDir := filepath.Dir(exe)
		viper.AddConfigPath(exeDir)
		viper.AddConfigPath(filepath.Join(exeDir, "..", "config"))
	} else {
		viper.SetConfigFile(path)
	}

	viper.SetEnvPrefix("RESEARCHER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is tolerated: env vars plus defaults may be enough.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyEnvSecrets(&cfg)
	if len(cfg.LLM.Providers) == 0 {
		cfg.LLM = defaultLLMConfig()
	}
	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("general.log_level", "info")
	viper.SetDefault("general.default_timeout", "30s")
	viper.SetDefault("server.address", ":10010")
	viper.SetDefault("server.stream_enabled", true)
	viper.SetDefault("server.stream_interval", 1)
	viper.SetDefault("pipeline.num_searches", 5)
	viper.SetDefault("pipeline.search_delay", "1s")
	viper.SetDefault("pipeline.fetch_top_results", 0)
	viper.SetDefault("pipeline.stage_timeout", "3m")
	viper.SetDefault("search.provider", "serper")
	viper.SetDefault("search.max_results", 5)
	viper.SetDefault("search.timeout", "15s")
	viper.SetDefault("fetch.fetcher", "readability")
	viper.SetDefault("fetch.timeout", "15s")
	viper.SetDefault("fetch.max_chars", 8000)
	viper.SetDefault("email.from", "research@localhost")
	viper.SetDefault("email.from_name", "Research Assistant")
	viper.SetDefault("email.timeout", "20s")
	viper.SetDefault("runs.store", "inmemory")
	viper.SetDefault("runs.ttl", "2h")
	viper.SetDefault("runs.redis.db", 0)
}

// defaultLLMConfig wires a single OpenAI provider keyed off the
// environment when the config file has no llm section.
func defaultLLMConfig() LLMConfig {
	model := "gpt-4o-mini"
	return LLMConfig{
		Providers: map[string]LLMProvider{
			"openai": {
				Type:    "openai",
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Timeout: 60 * time.Second,
				Models: map[string]LLMModel{
					model: {
						Name:            model,
						APIName:         model,
						MaxTokens:       4096,
						Temperature:     0.3,
						CostPer1K:       0.00015,
						CostPer1KOutput: 0.0006,
					},
				},
			},
		},
		Routing: LLMRoutingConfig{
			Planning:  model,
			Research:  model,
			Synthesis: model,
			Email:     model,
			Fallback:  model,
		},
	}
}

// applyEnvSecrets fills secrets from the conventional env vars when the
// config file leaves them empty.
func applyEnvSecrets(cfg *Config) {
	if cfg.Search.SerperAPIKey == "" {
		cfg.Search.SerperAPIKey = os.Getenv("SERPER_API_KEY")
	}
	if cfg.Search.BraveAPIKey == "" {
		cfg.Search.BraveAPIKey = os.Getenv("BRAVE_API_KEY")
	}
	if cfg.Email.SendGridAPIKey == "" {
		cfg.Email.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	}
	for name, p := range cfg.LLM.Providers {
		if p.APIKey == "" {
			p.APIKey = os.Getenv("OPENAI_API_KEY")
			cfg.LLM.Providers[name] = p
		}
	}
}
