// Package config loads compaction settings from defaults, an optional YAML
// file, a .env file and environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"

	"github.com/victorarias/agentic-compact/agentic/compact"
	"github.com/victorarias/agentic-compact/agentic/storage"
)

// Archive drivers.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
)

// Config is the full runtime configuration.
type Config struct {
	ContextTokenLimit       int      `yaml:"context_token_limit"`
	ThresholdRatio          float64  `yaml:"threshold_ratio"`
	SummaryModel            string   `yaml:"summary_model"`
	SummaryMaxWords         int      `yaml:"summary_max_words"`
	MaxRetries              *int     `yaml:"max_retries"`
	OutputDir               string   `yaml:"output_dir"`
	SessionID               string   `yaml:"session_id"`
	WorkDir                 string   `yaml:"work_dir"`
	MaxRestoreFiles         *int     `yaml:"max_restore_files"`
	MaxRestoreTokensPerFile int      `yaml:"max_restore_tokens_per_file"`
	MaxRestoreTokensTotal   int      `yaml:"max_restore_tokens_total"`
	RestoreExclude          []string `yaml:"restore_exclude"`
	LogLevel                string   `yaml:"log_level"`

	Archive  Archive  `yaml:"archive"`
	Provider Provider `yaml:"provider"`
}

// Archive selects where original bodies are persisted. An empty DSN means
// the local file system under OutputDir.
type Archive struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// Provider holds LLM provider settings. APIKey is only read from the environment.
type Provider struct {
	APIKey         string `yaml:"-"`
	BaseURL        string `yaml:"base_url"`
	VertexProject  string `yaml:"vertex_project"`
	VertexLocation string `yaml:"vertex_location"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		ContextTokenLimit:       compact.DefaultContextTokenLimit,
		ThresholdRatio:          compact.DefaultThresholdRatio,
		SummaryModel:            compact.DefaultSummaryModel,
		SummaryMaxWords:         compact.DefaultSummaryMaxWords,
		MaxRetries:              compact.Int(compact.DefaultMaxRetries),
		OutputDir:               compact.DefaultOutputDir,
		SessionID:               compact.DefaultSessionID,
		MaxRestoreFiles:         compact.Int(compact.DefaultMaxRestoreFiles),
		MaxRestoreTokensPerFile: compact.DefaultMaxRestoreTokensPerFile,
		MaxRestoreTokensTotal:   compact.DefaultMaxRestoreTokensTotal,
		LogLevel:                "info",
		Archive:                 Archive{Driver: DriverPgx},
	}
}

// Load builds a Config. path names an optional YAML file. envFiles are read
// with godotenv; when none are given ".env" is tried and ignored if absent.
// Process environment variables override .env values.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Defaults()

	if strings.TrimSpace(path) != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.UnmarshalWithOptions(data, &cfg, yaml.Strict()); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	dotenv, err := readEnvFiles(envFiles)
	if err != nil {
		return Config{}, err
	}
	env := lookup(dotenv)
	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func readEnvFiles(files []string) (map[string]string, error) {
	optional := false
	if len(files) == 0 {
		files = []string{".env"}
		optional = true
	}
	merged := map[string]string{}
	for _, file := range files {
		values, err := godotenv.Read(file)
		if err != nil {
			if optional && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
		for k, v := range values {
			if _, seen := merged[k]; !seen {
				merged[k] = v
			}
		}
	}
	return merged, nil
}

// lookup prefers the process environment over dotenv values.
func lookup(dotenv map[string]string) func(string) string {
	return func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return strings.TrimSpace(v)
		}
		return strings.TrimSpace(dotenv[key])
	}
}

func applyEnv(cfg *Config, env func(string) string) error {
	var err error
	if cfg.ContextTokenLimit, err = intEnvStrict(env, "CONTEXT_TOKEN_LIMIT", cfg.ContextTokenLimit); err != nil {
		return err
	}
	if cfg.ThresholdRatio, err = floatEnvStrict(env, "COMPACT_THRESHOLD_RATIO", cfg.ThresholdRatio); err != nil {
		return err
	}
	if cfg.SummaryMaxWords, err = intEnvStrict(env, "SUMMARY_MAX_WORDS", cfg.SummaryMaxWords); err != nil {
		return err
	}
	if cfg.MaxRestoreTokensPerFile, err = intEnvStrict(env, "MAX_RESTORE_TOKENS_PER_FILE", cfg.MaxRestoreTokensPerFile); err != nil {
		return err
	}
	if cfg.MaxRestoreTokensTotal, err = intEnvStrict(env, "MAX_RESTORE_TOKENS_TOTAL", cfg.MaxRestoreTokensTotal); err != nil {
		return err
	}
	if cfg.MaxRetries, err = intPtrEnvStrict(env, "COMPACT_MAX_RETRIES", cfg.MaxRetries); err != nil {
		return err
	}
	if cfg.MaxRestoreFiles, err = intPtrEnvStrict(env, "MAX_RESTORE_FILES", cfg.MaxRestoreFiles); err != nil {
		return err
	}

	setString(&cfg.SummaryModel, env("SUMMARY_MODEL"))
	setString(&cfg.OutputDir, env("COMPACT_OUTPUT_DIR"))
	setString(&cfg.SessionID, env("COMPACT_SESSION_ID"))
	setString(&cfg.WorkDir, env("COMPACT_WORK_DIR"))
	setString(&cfg.LogLevel, env("COMPACT_LOG_LEVEL"))
	setString(&cfg.Archive.Driver, env("COMPACT_ARCHIVE_DRIVER"))
	setString(&cfg.Archive.DSN, env("COMPACT_ARCHIVE_DSN"))
	setString(&cfg.Archive.Table, env("COMPACT_ARCHIVE_TABLE"))
	setString(&cfg.Provider.APIKey, env("ANTHROPIC_API_KEY"))
	setString(&cfg.Provider.BaseURL, env("ANTHROPIC_BASE_URL"))
	setString(&cfg.Provider.VertexProject, env("VERTEX_PROJECT"))
	setString(&cfg.Provider.VertexLocation, env("VERTEX_LOCATION"))

	if v := env("COMPACT_RESTORE_EXCLUDE"); v != "" {
		cfg.RestoreExclude = splitList(v)
	}
	return nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if c.ContextTokenLimit <= 0 {
		return errors.New("config: context token limit must be greater than 0")
	}
	if c.ThresholdRatio <= 0 || c.ThresholdRatio > 1 {
		return errors.New("config: threshold ratio must be in (0, 1]")
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return errors.New("config: max retries must be zero or greater")
	}
	if c.MaxRestoreFiles != nil && *c.MaxRestoreFiles < 0 {
		return errors.New("config: max restore files must be zero or greater")
	}
	if c.MaxRestoreTokensPerFile < 0 || c.MaxRestoreTokensTotal < 0 {
		return errors.New("config: restore token limits must be zero or greater")
	}
	if c.SummaryMaxWords < 0 {
		return errors.New("config: summary max words must be zero or greater")
	}
	if c.SessionID != "" && !storage.ValidSessionID(c.SessionID) {
		return fmt.Errorf("config: invalid session id %q", c.SessionID)
	}
	switch c.Archive.Driver {
	case "", DriverPgx, DriverPostgres:
	default:
		return fmt.Errorf("config: unknown archive driver %q", c.Archive.Driver)
	}
	return nil
}

// CompactConfig maps the settings onto a compact.Config. Collaborators are
// left for the caller to set.
func (c Config) CompactConfig() compact.Config {
	return compact.Config{
		ContextTokenLimit:       c.ContextTokenLimit,
		ThresholdRatio:          c.ThresholdRatio,
		SummaryModel:            c.SummaryModel,
		SummaryMaxWords:         c.SummaryMaxWords,
		MaxRetries:              c.MaxRetries,
		OutputDir:               c.OutputDir,
		SessionID:               c.SessionID,
		WorkDir:                 c.WorkDir,
		MaxRestoreFiles:         c.MaxRestoreFiles,
		MaxRestoreTokensPerFile: compact.Int(c.MaxRestoreTokensPerFile),
		MaxRestoreTokensTotal:   compact.Int(c.MaxRestoreTokensTotal),
		RestoreExclude:          append([]string(nil), c.RestoreExclude...),
	}
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func intEnvStrict(env func(string) string, key string, fallback int) (int, error) {
	value := env(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return parsed, nil
}

func intPtrEnvStrict(env func(string) string, key string, fallback *int) (*int, error) {
	value := env(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return &parsed, nil
}

func floatEnvStrict(env func(string) string, key string, fallback float64) (float64, error) {
	value := env(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s: %w", key, err)
	}
	return parsed, nil
}
