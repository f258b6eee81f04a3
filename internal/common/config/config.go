// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Platform      PlatformConfig          `mapstructure:"platform"`
	Dealers       map[string]DealerConfig `mapstructure:"dealers"`
	Templates     TemplatesConfig         `mapstructure:"templates"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Scheduler     SchedulerConfig         `mapstructure:"scheduler"`
	Ledger        LedgerConfig            `mapstructure:"ledger"`
	Batch         BatchConfig             `mapstructure:"batch"`
	Report        ReportConfig            `mapstructure:"report"`
	Metrics       MetricsConfig           `mapstructure:"metrics"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// PlatformConfig holds the dealer-platform API connection settings.
type PlatformConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds
}

// DealerConfig is the static per-dealer configuration, keyed by dealer ID.
type DealerConfig struct {
	Name                  string `mapstructure:"name"`
	DealerUUID            string `mapstructure:"dealer_uuid"`
	DepartmentUUID        string `mapstructure:"department_uuid"`
	OpcodeCatalogPath     string `mapstructure:"opcode_catalog_path"`
	DefaultNSAOpcode      string `mapstructure:"default_nsa_opcode"`
	ServiceIntervalMonths int    `mapstructure:"next_service_interval_in_months"`
}

// TemplatesConfig points at the message template documents.
type TemplatesConfig struct {
	TextPath  string `mapstructure:"text_path"`
	EmailPath string `mapstructure:"email_path"`
}

// NotificationConfig holds channel toggles and outbound message flags.
type NotificationConfig struct {
	Text struct {
		Enabled       bool `mapstructure:"enabled"`
		AddTCPAFooter bool `mapstructure:"add_tcpa_footer"`
	} `mapstructure:"text"`
	Email struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"email"`
	AddSignature bool `mapstructure:"add_signature"`
	AddFooter    bool `mapstructure:"add_footer"`
}

// SchedulerConfig holds the bounded retry loop settings.
type SchedulerConfig struct {
	MaxAttempts  int `mapstructure:"max_attempts"`
	RetryDelayMs int `mapstructure:"retry_delay_ms"`
	RowDelayMs   int `mapstructure:"row_delay_ms"`
}

// LedgerConfig selects and configures the dedup ledger store backend.
type LedgerConfig struct {
	Store string      `mapstructure:"store"` // "file" or "redis"
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
	Key   string      `mapstructure:"key"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// BatchConfig points at the extracted closed-RO input file.
type BatchConfig struct {
	InputPath string `mapstructure:"input_path"`
	Format    string `mapstructure:"format"` // "csv" or "json"
}

// ReportConfig selects and configures the batch report sink.
type ReportConfig struct {
	Output   string         `mapstructure:"output"` // "csv" or "postgres"
	Path     string         `mapstructure:"path"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	Table    string `mapstructure:"table"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// MetricsConfig holds the optional metrics listener settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
