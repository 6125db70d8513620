package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config carries every runtime knob for the agent. Values come from a yaml
// file pointed at by CONFIG_PATH (optional) with environment overrides.
type Config struct {
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIModel   string `mapstructure:"openai_model"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`

	PokeAPIBaseURL string        `mapstructure:"pokeapi_base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	WebScrapingEnabled bool `mapstructure:"web_scraping_enabled"`
	MaxWebResults      int  `mapstructure:"max_web_results"`

	MaxSubagents        int `mapstructure:"max_subagents"`
	MaxRefinementCycles int `mapstructure:"max_refinement_cycles"`

	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`

	LedgerDriver string `mapstructure:"ledger_driver"`
	LedgerDSN    string `mapstructure:"ledger_dsn"`

	MetricsPort    int    `mapstructure:"metrics_port"`
	RateLimitsPath string `mapstructure:"rate_limits_path"`

	TracingEnabled bool   `mapstructure:"tracing_enabled"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4.1")
	v.SetDefault("openai_base_url", "")
	v.SetDefault("pokeapi_base_url", "https://pokeapi.co/api/v2")
	v.SetDefault("request_timeout", 15*time.Second)
	v.SetDefault("web_scraping_enabled", false)
	v.SetDefault("max_web_results", 5)
	v.SetDefault("max_subagents", 5)
	v.SetDefault("max_refinement_cycles", 2)
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("cache_ttl", time.Hour)
	v.SetDefault("ledger_driver", "sqlite3")
	v.SetDefault("ledger_dsn", "")
	v.SetDefault("metrics_port", 2112)
	v.SetDefault("rate_limits_path", "")
	v.SetDefault("tracing_enabled", false)
	v.SetDefault("otlp_endpoint", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if cfgPath := os.Getenv("CONFIG_PATH"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	// Environment values arrive as strings; decode them weakly so numeric
	// and boolean overrides work.
	if err := v.Unmarshal(&c, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the settings a run cannot start without.
func (c *Config) Validate() error {
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY must be set")
	}
	if c.MaxSubagents < 1 {
		return fmt.Errorf("max_subagents must be at least 1, got %d", c.MaxSubagents)
	}
	if c.MaxRefinementCycles < 0 {
		return fmt.Errorf("max_refinement_cycles must not be negative, got %d", c.MaxRefinementCycles)
	}
	return nil
}
