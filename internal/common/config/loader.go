// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like PLATFORM_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if not present
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig()

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile loads .env from multiple possible locations so the binary can be
// run from the repo root or from a package directory during tests.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars resolves ${VAR} placeholders in string config values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// overrideEmptyConfig fills credentials from the environment when the config
// file leaves them empty.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Platform.BaseURL == "" {
		if val := os.Getenv("PLATFORM_BASE_URL"); val != "" {
			cfg.Platform.BaseURL = val
		}
	}
	if cfg.Platform.Username == "" {
		if val := os.Getenv("PLATFORM_USERNAME"); val != "" {
			cfg.Platform.Username = val
		}
	}
	if cfg.Platform.Password == "" {
		if val := os.Getenv("PLATFORM_PASSWORD"); val != "" {
			cfg.Platform.Password = val
		}
	}

	if cfg.Report.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Report.Postgres.User = val
		}
	}
	if cfg.Report.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Report.Postgres.Password = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Platform.Timeout == 0 {
		cfg.Platform.Timeout = 30000
	}

	if cfg.Scheduler.MaxAttempts == 0 {
		cfg.Scheduler.MaxAttempts = 2
	}
	if cfg.Scheduler.RetryDelayMs == 0 {
		cfg.Scheduler.RetryDelayMs = 2000
	}
	if cfg.Scheduler.RowDelayMs == 0 {
		cfg.Scheduler.RowDelayMs = 2000
	}

	if cfg.Ledger.Store == "" {
		cfg.Ledger.Store = "file"
	}
	if cfg.Ledger.Path == "" {
		cfg.Ledger.Path = "nsa_ledger.json"
	}
	if cfg.Ledger.Key == "" {
		cfg.Ledger.Key = "nsa:ledger"
	}

	if cfg.Batch.Format == "" {
		cfg.Batch.Format = "csv"
	}
	if cfg.Batch.InputPath == "" {
		cfg.Batch.InputPath = "closed_ros.csv"
	}

	if cfg.Report.Output == "" {
		cfg.Report.Output = "csv"
	}
	if cfg.Report.Path == "" {
		cfg.Report.Path = "schedule_results.csv"
	}
	if cfg.Report.Postgres.SSLMode == "" {
		cfg.Report.Postgres.SSLMode = "disable"
	}
	if cfg.Report.Postgres.Table == "" {
		cfg.Report.Postgres.Table = "nsa_schedule_results"
	}

	for id, dealer := range cfg.Dealers {
		if dealer.ServiceIntervalMonths == 0 {
			dealer.ServiceIntervalMonths = 6
		}
		cfg.Dealers[id] = dealer
	}

	if cfg.Metrics.Address == "" {
		cfg.Metrics.Address = ":9090"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Platform.BaseURL == "" {
		return fmt.Errorf("platform.base_url is required")
	}
	if cfg.Platform.Username == "" {
		return fmt.Errorf("platform.username is required")
	}

	if cfg.Ledger.Store != "file" && cfg.Ledger.Store != "redis" {
		return fmt.Errorf("ledger.store must be \"file\" or \"redis\", got %q", cfg.Ledger.Store)
	}
	if cfg.Ledger.Store == "redis" && cfg.Ledger.Redis.Address == "" {
		return fmt.Errorf("ledger.redis.address is required for the redis store")
	}

	if cfg.Report.Output != "csv" && cfg.Report.Output != "postgres" {
		return fmt.Errorf("report.output must be \"csv\" or \"postgres\", got %q", cfg.Report.Output)
	}
	if cfg.Report.Output == "postgres" && cfg.Report.Postgres.Host == "" {
		return fmt.Errorf("report.postgres.host is required for the postgres sink")
	}

	if cfg.Batch.Format != "csv" && cfg.Batch.Format != "json" {
		return fmt.Errorf("batch.format must be \"csv\" or \"json\", got %q", cfg.Batch.Format)
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
