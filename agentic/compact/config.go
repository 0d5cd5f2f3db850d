package compact

import (
	"fmt"
	"os"
	"time"

	"github.com/victorarias/agentic-compact/agentic/events"
	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/retry"
	"github.com/victorarias/agentic-compact/agentic/storage"
)

// Default configuration values.
const (
	DefaultContextTokenLimit       = 200000
	DefaultThresholdRatio          = 0.92
	DefaultSummaryModel            = "claude-haiku-4-5-20251001"
	DefaultMaxRetries              = 2
	DefaultOutputDir               = ".compact"
	DefaultMaxRestoreFiles         = 5
	DefaultMaxRestoreTokensPerFile = 5000
	DefaultMaxRestoreTokensTotal   = 50000
	DefaultSummaryMaxWords         = 1200
	DefaultSessionID               = "default"
)

// Config holds compaction settings and collaborators.
type Config struct {
	// ContextTokenLimit is the model's context window.
	// Default: 200000
	ContextTokenLimit int

	// ThresholdRatio is the fraction of ContextTokenLimit that triggers compaction.
	// Default: 0.92
	ThresholdRatio float64

	// SummaryModel is passed to the client for both counting and summarizing.
	SummaryModel string

	// MaxRetries is the number of summarization retries after the first attempt.
	// nil means DefaultMaxRetries; 0 means a single attempt.
	MaxRetries *int

	// RetryBaseDelay is the wait before the first retry. Default: 1s
	RetryBaseDelay time.Duration

	// OutputDir is the root for persisted original bodies. Default: ".compact"
	OutputDir string

	// SessionID names the per-session subdirectory. Default: "default"
	SessionID string

	// WorkDir bounds file restoration. Default: process working directory.
	WorkDir string

	// MaxRestoreFiles caps restored files. nil means DefaultMaxRestoreFiles; 0 disables restoration.
	MaxRestoreFiles *int

	// MaxRestoreTokensPerFile skips any single file estimated above it.
	// nil means DefaultMaxRestoreTokensPerFile; 0 rejects every non-empty file.
	MaxRestoreTokensPerFile *int

	// MaxRestoreTokensTotal stops restoration once reached.
	// nil means DefaultMaxRestoreTokensTotal; 0 restores no non-empty file.
	MaxRestoreTokensTotal *int

	// RestoreExclude lists doublestar patterns, relative to WorkDir, that are never restored.
	RestoreExclude []string

	// SummaryMaxWords is the length cap written into the summarization prompt. Default: 1200
	SummaryMaxWords int

	Client   LLMClient
	Writer   BodyWriter
	Reader   FileReader
	Logger   log.Logger
	Sequence *Sequence

	// Events receives lifecycle notifications for triggered compactions.
	Events events.Sink

	// Now and Sleep are overridable for tests.
	Now   func() time.Time
	Sleep retry.Sleeper
}

// Int returns a pointer to v, for the optional integer settings.
func Int(v int) *int {
	return &v
}

// Validate checks required collaborators and value ranges.
func (c *Config) Validate() error {
	if c.Client == nil {
		return ErrMissingClient
	}
	if c.Writer == nil {
		return ErrMissingWriter
	}
	if c.ContextTokenLimit < 0 {
		return fmt.Errorf("%w: context token limit must be positive, got %d", ErrInvalidConfig, c.ContextTokenLimit)
	}
	if c.ThresholdRatio < 0 || c.ThresholdRatio > 1 {
		return fmt.Errorf("%w: threshold ratio must be between 0 and 1, got %f", ErrInvalidConfig, c.ThresholdRatio)
	}
	if c.MaxRetries != nil && *c.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must be non-negative, got %d", ErrInvalidConfig, *c.MaxRetries)
	}
	if c.MaxRestoreTokensPerFile != nil && *c.MaxRestoreTokensPerFile < 0 {
		return fmt.Errorf("%w: max restore tokens per file must be non-negative, got %d", ErrInvalidConfig, *c.MaxRestoreTokensPerFile)
	}
	if c.MaxRestoreTokensTotal != nil && *c.MaxRestoreTokensTotal < 0 {
		return fmt.Errorf("%w: max restore tokens total must be non-negative, got %d", ErrInvalidConfig, *c.MaxRestoreTokensTotal)
	}
	return nil
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.ContextTokenLimit == 0 {
		c.ContextTokenLimit = DefaultContextTokenLimit
	}
	if c.ThresholdRatio == 0 {
		c.ThresholdRatio = DefaultThresholdRatio
	}
	if c.SummaryModel == "" {
		c.SummaryModel = DefaultSummaryModel
	}
	if c.MaxRetries == nil {
		c.MaxRetries = Int(DefaultMaxRetries)
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = retry.DefaultBaseDelay
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.SessionID == "" {
		c.SessionID = DefaultSessionID
	}
	if c.WorkDir == "" {
		if cwd, err := os.Getwd(); err == nil {
			c.WorkDir = cwd
		} else {
			c.WorkDir = "."
		}
	}
	if c.MaxRestoreFiles == nil {
		c.MaxRestoreFiles = Int(DefaultMaxRestoreFiles)
	}
	if c.MaxRestoreTokensPerFile == nil {
		c.MaxRestoreTokensPerFile = Int(DefaultMaxRestoreTokensPerFile)
	}
	if c.MaxRestoreTokensTotal == nil {
		c.MaxRestoreTokensTotal = Int(DefaultMaxRestoreTokensTotal)
	}
	if c.SummaryMaxWords == 0 {
		c.SummaryMaxWords = DefaultSummaryMaxWords
	}
	if c.Reader == nil {
		c.Reader = storage.NewFileReader()
	}
	if c.Logger == nil {
		c.Logger = log.Null()
	}
	if c.Events == nil {
		c.Events = events.Nop
	}
	if c.Sequence == nil {
		c.Sequence = &defaultSequence
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Sleep == nil {
		c.Sleep = retry.Sleep
	}
}

// Threshold returns the token count at which compaction triggers.
func (c *Config) Threshold() float64 {
	return float64(c.ContextTokenLimit) * c.ThresholdRatio
}
