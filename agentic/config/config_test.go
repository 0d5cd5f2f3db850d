package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorarias/agentic-compact/agentic/compact"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, compact.DefaultContextTokenLimit, cfg.ContextTokenLimit)
	assert.Equal(t, compact.DefaultThresholdRatio, cfg.ThresholdRatio)
	assert.Equal(t, compact.DefaultSummaryModel, cfg.SummaryModel)
	assert.Equal(t, compact.DefaultMaxRetries, *cfg.MaxRetries)
	assert.Equal(t, compact.DefaultOutputDir, cfg.OutputDir)
	assert.Equal(t, compact.DefaultSessionID, cfg.SessionID)
	assert.Equal(t, compact.DefaultMaxRestoreFiles, *cfg.MaxRestoreFiles)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "compact.yaml", `
context_token_limit: 100000
threshold_ratio: 0.8
max_retries: 0
max_restore_files: 0
restore_exclude:
  - "**/*.pem"
archive:
  driver: postgres
  dsn: postgres://localhost/compact
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 100000, cfg.ContextTokenLimit)
	assert.Equal(t, 0.8, cfg.ThresholdRatio)
	assert.Equal(t, 0, *cfg.MaxRetries)
	assert.Equal(t, 0, *cfg.MaxRestoreFiles)
	assert.Equal(t, []string{"**/*.pem"}, cfg.RestoreExclude)
	assert.Equal(t, DriverPostgres, cfg.Archive.Driver)
	assert.Equal(t, "postgres://localhost/compact", cfg.Archive.DSN)
	assert.Equal(t, compact.DefaultOutputDir, cfg.OutputDir)
}

func TestLoadYAMLRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "compact.yaml", "context_limit: 5\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverridesFileAndDotenv(t *testing.T) {
	path := writeFile(t, "compact.yaml", "summary_model: from-yaml\nsession_id: yaml\n")
	envFile := writeFile(t, ".env", "SUMMARY_MODEL=from-dotenv\nCOMPACT_SESSION_ID=dotenv\nANTHROPIC_API_KEY=sk-dotenv\n")
	t.Setenv("COMPACT_SESSION_ID", "env")
	t.Setenv("COMPACT_RESTORE_EXCLUDE", ".env, secrets/** ,")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.SummaryModel)
	assert.Equal(t, "env", cfg.SessionID)
	assert.Equal(t, "sk-dotenv", cfg.Provider.APIKey)
	assert.Equal(t, []string{".env", "secrets/**"}, cfg.RestoreExclude)
}

func TestEnvNumbers(t *testing.T) {
	t.Setenv("CONTEXT_TOKEN_LIMIT", "50000")
	t.Setenv("COMPACT_THRESHOLD_RATIO", "0.5")
	t.Setenv("COMPACT_MAX_RETRIES", "0")
	t.Setenv("MAX_RESTORE_TOKENS_TOTAL", "1000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 50000, cfg.ContextTokenLimit)
	assert.Equal(t, 0.5, cfg.ThresholdRatio)
	assert.Equal(t, 0, *cfg.MaxRetries)
	assert.Equal(t, 1000, cfg.MaxRestoreTokensTotal)
}

func TestLoadStrictErrors(t *testing.T) {
	t.Setenv("CONTEXT_TOKEN_LIMIT", "lots")
	_, err := Load("")
	assert.ErrorContains(t, err, "config: invalid CONTEXT_TOKEN_LIMIT")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"ratio zero":      func(c *Config) { c.ThresholdRatio = 0 },
		"ratio above one": func(c *Config) { c.ThresholdRatio = 1.1 },
		"limit":           func(c *Config) { c.ContextTokenLimit = 0 },
		"retries":         func(c *Config) { c.MaxRetries = compact.Int(-1) },
		"session":         func(c *Config) { c.SessionID = "../x" },
		"driver":          func(c *Config) { c.Archive.Driver = "mysql" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Defaults()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Defaults().Validate())
}

func TestMissingExplicitEnvFile(t *testing.T) {
	_, err := Load("", filepath.Join(t.TempDir(), "missing.env"))
	assert.Error(t, err)
}

func TestCompactConfig(t *testing.T) {
	cfg := Defaults()
	cfg.WorkDir = "/work"
	cfg.RestoreExclude = []string{"*.key"}

	cc := cfg.CompactConfig()
	assert.Equal(t, cfg.ContextTokenLimit, cc.ContextTokenLimit)
	assert.Equal(t, cfg.ThresholdRatio, cc.ThresholdRatio)
	assert.Equal(t, "/work", cc.WorkDir)
	assert.Equal(t, []string{"*.key"}, cc.RestoreExclude)
	assert.Same(t, cfg.MaxRetries, cc.MaxRetries)
	assert.Nil(t, cc.Client)
}

func TestCompactConfigKeepsZeroRestoreCaps(t *testing.T) {
	cfg := Defaults()
	cfg.MaxRestoreTokensPerFile = 0
	cfg.MaxRestoreTokensTotal = 0

	cc := cfg.CompactConfig()
	cc.ApplyDefaults()
	assert.Equal(t, 0, *cc.MaxRestoreTokensPerFile)
	assert.Equal(t, 0, *cc.MaxRestoreTokensTotal)
}
