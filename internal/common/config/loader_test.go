// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
platform:
  base_url: https://api.example.com
  username: svc-user
  password: svc-pass
`

func TestLoadFromFile_AppliesDefaults(t *testing.T) {
	viper.Reset()
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 30000, cfg.Platform.Timeout)
	assert.Equal(t, 2, cfg.Scheduler.MaxAttempts)
	assert.Equal(t, 2000, cfg.Scheduler.RetryDelayMs)
	assert.Equal(t, "file", cfg.Ledger.Store)
	assert.Equal(t, "nsa_ledger.json", cfg.Ledger.Path)
	assert.Equal(t, "csv", cfg.Batch.Format)
	assert.Equal(t, "csv", cfg.Report.Output)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile_DealerIntervalDefaultsToSixMonths(t *testing.T) {
	viper.Reset()
	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
dealers:
  "501":
    name: Riverside Motors
    dealer_uuid: d-uuid
    department_uuid: dep-uuid
`))
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Dealers["501"].ServiceIntervalMonths)
}

func TestLoadFromFile_ValidationFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"missing base url", "platform:\n  username: u\n", "platform.base_url"},
		{"bad ledger store", minimalConfig + "ledger:\n  store: dynamo\n", "ledger.store"},
		{"redis store without address", minimalConfig + "ledger:\n  store: redis\n", "ledger.redis.address"},
		{"bad report output", minimalConfig + "report:\n  output: parquet\n", "report.output"},
		{"postgres output without host", minimalConfig + "report:\n  output: postgres\n", "report.postgres.host"},
		{"bad batch format", minimalConfig + "batch:\n  format: xlsx\n", "batch.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			_, err := LoadFromFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadFromFile_EnvOverridesEmptyCredentials(t *testing.T) {
	viper.Reset()
	t.Setenv("PLATFORM_PASSWORD", "from-env")

	cfg, err := LoadFromFile(writeConfig(t, `
platform:
  base_url: https://api.example.com
  username: svc-user
`))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Platform.Password)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 2*time.Second, GetDuration(2000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}

func TestPostgresConfig_GetDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db.internal", Port: 5432, User: "svc", Password: "pw",
		Database: "nsa", SSLMode: "disable",
	}
	assert.Equal(t, "host=db.internal port=5432 user=svc password=pw dbname=nsa sslmode=disable", p.GetDSN())
}
