package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"NS_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"NS_DB_MAX_CONNS" default:"8"`

	OracleAPIKey  string        `envconfig:"OPENAI_API_KEY" default:""`
	OracleModel   string        `envconfig:"NS_ORACLE_MODEL" default:"gpt-4o-mini"`
	OracleTimeout time.Duration `envconfig:"NS_ORACLE_TIMEOUT" default:"60s"`

	ClassifierBatchSize int `envconfig:"NS_CLASSIFIER_BATCH_SIZE" default:"50"`
	ExcerptMaxChars     int `envconfig:"NS_EXCERPT_MAX_CHARS" default:"300"`

	// Placeholder used when a NicheScore is computed over a mixed-source
	// category aggregate rather than a single record.
	SourceQualityPlaceholder int `envconfig:"NS_SOURCE_QUALITY_PLACEHOLDER" default:"6"`

	ScheduleEnabled bool   `envconfig:"NICHESCORE_ENABLED" default:"false"`
	Schedule        string `envconfig:"NICHESCORE_SCHEDULE" default:"0 */6 * * *"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("NS_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("NS_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("NS_DB_MIN_CONNS (%d) cannot exceed NS_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if strings.TrimSpace(c.OracleModel) == "" {
		return fmt.Errorf("NS_ORACLE_MODEL is required")
	}
	if c.OracleTimeout <= 0 {
		return fmt.Errorf("NS_ORACLE_TIMEOUT must be positive")
	}
	if c.ClassifierBatchSize < 1 {
		return fmt.Errorf("NS_CLASSIFIER_BATCH_SIZE must be >= 1")
	}
	if c.ExcerptMaxChars < 50 {
		return fmt.Errorf("NS_EXCERPT_MAX_CHARS must be >= 50")
	}
	if c.SourceQualityPlaceholder < 1 || c.SourceQualityPlaceholder > 10 {
		return fmt.Errorf("NS_SOURCE_QUALITY_PLACEHOLDER must be between 1 and 10")
	}
	if c.ScheduleEnabled && strings.TrimSpace(c.Schedule) == "" {
		return fmt.Errorf("NICHESCORE_SCHEDULE is required when NICHESCORE_ENABLED=true")
	}
	return nil
}
