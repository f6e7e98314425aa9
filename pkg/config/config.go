// Package config provides configuration management for poly-survivor
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// Reasoning oracle
	AnthropicBaseURL string        `yaml:"anthropic_base_url"`
	AnthropicAPIKey  string        `yaml:"anthropic_api_key"`
	AnthropicModel   string        `yaml:"anthropic_model"`
	OracleTimeout    time.Duration `yaml:"oracle_timeout"`

	// Polymarket endpoints
	GammaAPIURL string `yaml:"gamma_api_url"`
	DataAPIURL  string `yaml:"data_api_url"`
	CLOBHost    string `yaml:"clob_host"`
	ChainID     int64  `yaml:"chain_id"`

	// Credentials
	CredentialsFile string `yaml:"credentials_file"`
	KeysFile        string `yaml:"keys_file"`

	// Research
	ResearchDBPath      string        `yaml:"research_db_path"`
	ResearchCacheTTL    time.Duration `yaml:"research_cache_ttl"`
	MaxResearchPerCycle int           `yaml:"max_research_per_cycle"`
	ResearchCostUSD     float64       `yaml:"research_cost_usd"`

	// Risk management
	MaxSingleBet   decimal.Decimal `yaml:"max_single_bet"`
	MaxPositionPct decimal.Decimal `yaml:"max_position_pct"`
	MaxDailyBets   decimal.Decimal `yaml:"max_daily_bets"`
	MinReservePct  decimal.Decimal `yaml:"min_reserve_pct"`

	// Market filters
	MinLiquidity float64 `yaml:"min_liquidity"`

	// Decision loop
	MaxIterations int `yaml:"max_iterations"`

	// Memory
	MemoryFile    string `yaml:"memory_file"`
	HistoryDBPath string `yaml:"history_db_path"`

	// Daemon mode
	CycleSchedule string `yaml:"cycle_schedule"`
	MetricsAddr   string `yaml:"metrics_addr"`

	// HTTP
	HTTPTimeout time.Duration `yaml:"http_timeout"`

	// Behavior
	DryRun   bool   `yaml:"dry_run"`
	Verbose  bool   `yaml:"verbose"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		AnthropicBaseURL: "https://api.anthropic.com/v1",
		AnthropicModel:   "claude-sonnet-4-20250514",
		OracleTimeout:    10 * time.Minute,

		GammaAPIURL: "https://gamma-api.polymarket.com",
		DataAPIURL:  "https://data-api.polymarket.com",
		CLOBHost:    "https://clob.polymarket.com",
		ChainID:     137, // Polygon mainnet

		CredentialsFile: "secrets/api_credentials.json",
		KeysFile:        "secrets/keys.csv",

		ResearchDBPath:      "research_cache.db",
		ResearchCacheTTL:    24 * time.Hour,
		MaxResearchPerCycle: 5,
		ResearchCostUSD:     0.05,

		MaxSingleBet:   decimal.NewFromInt(15),
		MaxPositionPct: decimal.NewFromFloat(0.25),
		MaxDailyBets:   decimal.NewFromInt(30),
		MinReservePct:  decimal.NewFromFloat(0.20),

		MinLiquidity: 5000,

		MaxIterations: 20,

		MemoryFile:    "last_summary.txt",
		HistoryDBPath: "cycle_history.db",

		CycleSchedule: "@every 1h",
		MetricsAddr:   ":9187",

		HTTPTimeout: 15 * time.Second,

		LogLevel: "info",
	}
}

// Load builds the configuration from defaults, an optional YAML file,
// and environment variables, in that order of precedence.
func Load(path string) (*Config, error) {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.resolvePaths(); err != nil {
		return nil, fmt.Errorf("resolve data paths: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.AnthropicAPIKey == "" {
		return fmt.Errorf("anthropic API key is not set (ANTHROPIC_API_KEY)")
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.MaxResearchPerCycle <= 0 {
		return fmt.Errorf("max_research_per_cycle must be positive, got %d", c.MaxResearchPerCycle)
	}
	if c.MinReservePct.IsNegative() || c.MinReservePct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("min_reserve_pct must be in [0, 1), got %s", c.MinReservePct)
	}
	return nil
}

// applyEnv overrides selected fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.AnthropicAPIKey = v
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		c.AnthropicBaseURL = v
	}
	if v := os.Getenv("ANTHROPIC_MODEL"); v != "" {
		c.AnthropicModel = v
	}
	if v := os.Getenv("POLY_CLOB_HOST"); v != "" {
		c.CLOBHost = v
	}
	if v := os.Getenv("POLY_GAMMA_URL"); v != "" {
		c.GammaAPIURL = v
	}
	if v := os.Getenv("POLY_DATA_URL"); v != "" {
		c.DataAPIURL = v
	}
	if v := os.Getenv("POLY_CREDENTIALS_FILE"); v != "" {
		c.CredentialsFile = v
	}
	if v := os.Getenv("POLY_KEYS_FILE"); v != "" {
		c.KeysFile = v
	}
	if v := os.Getenv("POLY_CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.ChainID = id
		}
	}
	if v := os.Getenv("POLY_DRY_RUN"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.DryRun = b
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}
