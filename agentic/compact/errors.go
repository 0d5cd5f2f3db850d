package compact

import "errors"

// Sentinel errors for compaction operations.
var (
	// ErrMissingClient indicates no token counting / summarization client was configured.
	ErrMissingClient = errors.New("compact: llm client is required")

	// ErrMissingWriter indicates no body persistence writer was configured.
	ErrMissingWriter = errors.New("compact: body writer is required")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("compact: invalid configuration")

	// ErrEmptySummary indicates the provider returned an empty or whitespace-only summary.
	ErrEmptySummary = errors.New("compact: llm returned empty summary content")

	// ErrTokenCount indicates the provider failed to count tokens.
	ErrTokenCount = errors.New("compact: token counting failed")

	// ErrPathOutsideWorkDir indicates a recorded file path escapes the working directory.
	ErrPathOutsideWorkDir = errors.New("compact: path escapes working directory")
)
