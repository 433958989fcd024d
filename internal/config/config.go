package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrBadWeightTable indicates a malformed trade weight configuration.
// This is a fatal configuration error; it is surfaced before any scoring
// work proceeds.
var ErrBadWeightTable = fmt.Errorf("malformed trade weight table")

// Config represents the application configuration
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Search    SearchConfig    `yaml:"search"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Trades    TradesConfig    `yaml:"trades"`
	LeadGen   LeadGenConfig   `yaml:"leadgen"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Logging   LoggingConfig   `yaml:"logging"`
	Timezone  string          `yaml:"timezone"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Type     string         `yaml:"type"` // postgres, mysql, sqlite
	MySQL    MySQLConfig    `yaml:"mysql"`
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// MySQLConfig contains MySQL connection settings
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// PostgresConfig contains PostgreSQL connection settings
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// SQLiteConfig contains SQLite settings (local development)
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// RedisConfig contains score cache settings
type RedisConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	TTLHours  int    `yaml:"ttl_hours"`
	KeyPrefix string `yaml:"key_prefix"`
}

// SearchConfig contains search engine settings
type SearchConfig struct {
	Meilisearch MeilisearchConfig `yaml:"meilisearch"`
}

// MeilisearchConfig contains Meilisearch connection settings
type MeilisearchConfig struct {
	Host   string `yaml:"host"`
	APIKey string `yaml:"api_key"`
}

// ScoringConfig contains the intent-scoring pipeline settings.
// It is passed into the core as a value; nothing in scoring mutates
// process-wide state.
type ScoringConfig struct {
	// HalfLifeDays is the default decay half-life; per-variant overrides win
	HalfLifeDays        int            `yaml:"half_life_days"`
	VariantHalfLifeDays map[string]int `yaml:"variant_half_life_days"`

	// MinStrengthFloor prevents decayed strength collapsing fully to zero
	MinStrengthFloor float64 `yaml:"min_strength_floor"`

	// SignalHorizonDays excludes signals older than this before decay runs
	SignalHorizonDays int `yaml:"signal_horizon_days"`

	// CoOccurrenceWindowDays bounds correlation pair detection
	CoOccurrenceWindowDays int `yaml:"co_occurrence_window_days"`

	// LinkConfidenceThreshold excludes weakly-linked signals from
	// correlation; below it they contribute to temporal features at
	// reduced weight only
	LinkConfidenceThreshold float64 `yaml:"link_confidence_threshold"`

	// FutureToleranceDays is the clock-skew allowance before a
	// future-dated signal is treated as a data anomaly and dropped
	FutureToleranceDays int `yaml:"future_tolerance_days"`

	Concurrency int `yaml:"concurrency"`
	BatchSize   int `yaml:"batch_size"`
}

// TradeWeights is one trade's feature-group weight vector plus its lead
// generation threshold
type TradeWeights struct {
	Temporal    float64 `yaml:"temporal"`
	Aggregated  float64 `yaml:"aggregated"`
	Interaction float64 `yaml:"interaction"`
	Lifecycle   float64 `yaml:"lifecycle"`
	MinScore    float64 `yaml:"min_score"`
}

// TradesConfig maps trade name to its weight table
type TradesConfig map[string]TradeWeights

// LeadGenConfig contains lead generation settings
type LeadGenConfig struct {
	ExpiryDays      int `yaml:"expiry_days"`
	DefaultMaxLeads int `yaml:"default_max_leads"`
}

// SchedulerConfig contains nightly rescore settings
type SchedulerConfig struct {
	DailyRunEnabled    bool   `yaml:"daily_run_enabled"`
	DailyRunTime       string `yaml:"daily_run_time"`
	WorkerPollSeconds  int    `yaml:"worker_poll_seconds"`
	WorkerBatchSize    int    `yaml:"worker_batch_size"`
	CleanupRunEnabled  bool   `yaml:"cleanup_run_enabled"`
	LeadRetentionDays  int    `yaml:"lead_retention_days"`
	QueueRetentionDays int    `yaml:"queue_retention_days"`
}

// RateLimitConfig contains API rate limiting settings
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute"`
	RequestsPerHour   int  `yaml:"requests_per_hour"`
	RequestsPerDay    int  `yaml:"requests_per_day"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Mode  string `yaml:"mode"` // development, production
	Level string `yaml:"level"`
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type:   "postgres",
			SQLite: SQLiteConfig{Path: "leads.db"},
		},
		Redis: RedisConfig{
			Enabled:   true,
			Addr:      "localhost:6379",
			TTLHours:  24,
			KeyPrefix: "score",
		},
		Scoring: ScoringConfig{
			HalfLifeDays: 30,
			VariantHalfLifeDays: map[string]int{
				"violation":       30,
				"storm_event":     45,
				"service_request": 30,
				"deed_record":     60,
			},
			MinStrengthFloor:        0.0,
			SignalHorizonDays:       730,
			CoOccurrenceWindowDays:  90,
			LinkConfidenceThreshold: 0.5,
			FutureToleranceDays:     1,
			Concurrency:             8,
			BatchSize:               1000,
		},
		Trades: TradesConfig{
			"roofing":    {Temporal: 0.85, Aggregated: 0.25, Interaction: 0.55, Lifecycle: 0.45, MinScore: 0.6},
			"hvac":       {Temporal: 0.80, Aggregated: 0.20, Interaction: 0.45, Lifecycle: 0.50, MinScore: 0.6},
			"siding":     {Temporal: 0.75, Aggregated: 0.25, Interaction: 0.50, Lifecycle: 0.40, MinScore: 0.55},
			"electrical": {Temporal: 0.80, Aggregated: 0.20, Interaction: 0.40, Lifecycle: 0.50, MinScore: 0.55},
		},
		LeadGen: LeadGenConfig{
			ExpiryDays:      30,
			DefaultMaxLeads: 100,
		},
		Scheduler: SchedulerConfig{
			DailyRunEnabled:    false,
			DailyRunTime:       "02:00",
			WorkerPollSeconds:  30,
			WorkerBatchSize:    500,
			CleanupRunEnabled:  true,
			LeadRetentionDays:  90,
			QueueRetentionDays: 14,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 60,
			RequestsPerHour:   1800,
			RequestsPerDay:    20000,
		},
		Logging: LoggingConfig{
			Mode:  "development",
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(filepath string) (*Config, error) {
	// Start with default config
	config := DefaultConfig()

	// If file doesn't exist, return default config
	if _, err := os.Stat(filepath); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the scoring configuration surface. Weight table errors
// are fatal before any scoring work runs.
func (c *Config) Validate() error {
	if c.Scoring.HalfLifeDays <= 0 {
		return fmt.Errorf("scoring.half_life_days must be positive, got %d", c.Scoring.HalfLifeDays)
	}
	for variant, days := range c.Scoring.VariantHalfLifeDays {
		if days <= 0 {
			return fmt.Errorf("scoring.variant_half_life_days[%s] must be positive, got %d", variant, days)
		}
	}
	if c.Scoring.MinStrengthFloor < 0 {
		return fmt.Errorf("scoring.min_strength_floor must be >= 0, got %f", c.Scoring.MinStrengthFloor)
	}
	if c.Scoring.LinkConfidenceThreshold < 0 || c.Scoring.LinkConfidenceThreshold > 1 {
		return fmt.Errorf("scoring.link_confidence_threshold must be in [0,1], got %f", c.Scoring.LinkConfidenceThreshold)
	}

	for trade, weights := range c.Trades {
		switch trade {
		case "roofing", "hvac", "siding", "electrical":
		default:
			return fmt.Errorf("%w: unknown trade %q", ErrBadWeightTable, trade)
		}
		if weights.Temporal < 0 || weights.Aggregated < 0 || weights.Interaction < 0 || weights.Lifecycle < 0 {
			return fmt.Errorf("%w: negative weight for trade %q", ErrBadWeightTable, trade)
		}
		if weights.MinScore < 0 || weights.MinScore > 1 {
			return fmt.Errorf("%w: min_score out of [0,1] for trade %q", ErrBadWeightTable, trade)
		}
	}

	return nil
}

// HalfLifeFor returns the decay half-life for a signal variant
func (c *ScoringConfig) HalfLifeFor(variant string) int {
	if days, ok := c.VariantHalfLifeDays[variant]; ok && days > 0 {
		return days
	}
	return c.HalfLifeDays
}

// SignalHorizon returns the horizon as a duration
func (c *ScoringConfig) SignalHorizon() time.Duration {
	return time.Duration(c.SignalHorizonDays) * 24 * time.Hour
}

// CoOccurrenceWindow returns the correlation window as a duration
func (c *ScoringConfig) CoOccurrenceWindow() time.Duration {
	return time.Duration(c.CoOccurrenceWindowDays) * 24 * time.Hour
}

// FutureTolerance returns the future-dating allowance as a duration
func (c *ScoringConfig) FutureTolerance() time.Duration {
	return time.Duration(c.FutureToleranceDays) * 24 * time.Hour
}

// WorkerPollInterval returns the queue poll interval as a duration
func (c *SchedulerConfig) WorkerPollInterval() time.Duration {
	return time.Duration(c.WorkerPollSeconds) * time.Second
}

// CacheTTL returns the score cache TTL as a duration
func (c *RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// MinScoreFor returns the lead generation threshold for a trade,
// falling back to 0.6 when the trade has no table entry
func (t TradesConfig) MinScoreFor(trade string) float64 {
	if w, ok := t[trade]; ok && w.MinScore > 0 {
		return w.MinScore
	}
	return 0.6
}
