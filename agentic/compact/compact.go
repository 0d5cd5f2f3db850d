package compact

import (
	"context"

	"github.com/victorarias/agentic-compact/agentic/events"
	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
)

// Stats describes one completed compaction.
type Stats struct {
	OriginalTokens        int     `json:"original_tokens"`
	CompactedTokens       int     `json:"compacted_tokens"`
	CompactionRatio       float64 `json:"compaction_ratio"`
	CompactedMessageCount int     `json:"compacted_message_count"`
	RetainedMessageCount  int     `json:"retained_message_count"`
	RestoredFileCount     int     `json:"restored_file_count"`
	RestoredTokenCount    int     `json:"restored_token_count"`
}

// Result is the outcome of Compact. When Compacted is false, Messages is the
// caller's slice and Stats is nil.
type Result struct {
	Messages  []message.Message `json:"messages"`
	Compacted bool              `json:"compacted"`
	Stats     *Stats            `json:"stats,omitempty"`

	// OriginalBodyPath is where the compacted body was persisted, or "" if
	// nothing was written.
	OriginalBodyPath string `json:"original_body_path,omitempty"`
}

// Compactor shrinks transcripts that approach the context limit.
// A Compactor is safe for concurrent use when its collaborators are.
type Compactor struct {
	cfg        Config
	logger     log.Logger
	summarizer *Summarizer
}

// New validates cfg, fills defaults and returns a Compactor.
func New(cfg Config) (*Compactor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.ApplyDefaults()
	return &Compactor{
		cfg:        cfg,
		logger:     cfg.Logger,
		summarizer: NewSummarizer(cfg.Client, cfg.SummaryModel, cfg.SummaryMaxWords, cfg.Logger),
	}, nil
}

// Config returns the effective configuration.
func (c *Compactor) Config() Config {
	return c.cfg
}

// ShouldCompact reports whether messages have reached the compaction threshold.
func (c *Compactor) ShouldCompact(ctx context.Context, messages []message.Message) (bool, error) {
	if len(messages) == 0 {
		return false, nil
	}
	tokens, err := CountTokens(ctx, c.cfg.Client, messages, c.cfg.SummaryModel)
	if err != nil {
		return false, err
	}
	return float64(tokens) >= c.cfg.Threshold(), nil
}

// Compact summarizes everything after the leading system messages once the
// transcript reaches the threshold. Below the threshold, or when
// summarization fails on every attempt, the original slice is returned with
// Compacted false. An error is returned only for token counting failures and
// cancellation; the original slice is returned alongside it.
func (c *Compactor) Compact(ctx context.Context, messages []message.Message) (Result, error) {
	skipped := Result{Messages: messages}

	originalTokens, err := CountTokens(ctx, c.cfg.Client, messages, c.cfg.SummaryModel)
	if err != nil {
		return skipped, err
	}
	threshold := c.cfg.Threshold()
	if float64(originalTokens) < threshold {
		return skipped, nil
	}

	c.logger.Info("context compaction triggered",
		"original_tokens", originalTokens,
		"threshold", threshold,
	)
	c.emit(events.Event{Type: events.CompactionStart, Tokens: originalTokens})

	parts := PartitionMessages(messages)
	if !parts.CanCompact() {
		c.logger.Info("no messages after head to compact, skipping")
		c.emit(events.Event{Type: events.CompactionSkipped, Reason: "nothing after head"})
		return skipped, nil
	}

	bodyPath := c.persistBody(ctx, parts.Rest, c.cfg.Sequence.Next())
	skipped.OriginalBodyPath = bodyPath
	if bodyPath != "" {
		c.emit(events.Event{Type: events.BodyPersisted, Path: bodyPath})
	}

	summary, ok, err := c.summarizer.SummarizeWithRetry(ctx, parts.Rest, *c.cfg.MaxRetries, c.cfg.RetryBaseDelay, c.cfg.Sleep)
	if err != nil {
		return skipped, err
	}
	if !ok {
		c.emit(events.Event{Type: events.CompactionSkipped, Reason: "summarization failed"})
		return skipped, nil
	}

	restored, restoredTokens := RestoreRecentFiles(ctx, messages, RestoreOptions{
		MaxFiles:         *c.cfg.MaxRestoreFiles,
		MaxTokensPerFile: *c.cfg.MaxRestoreTokensPerFile,
		MaxTokensTotal:   *c.cfg.MaxRestoreTokensTotal,
		WorkDir:          c.cfg.WorkDir,
		Exclude:          c.cfg.RestoreExclude,
		Reader:           c.cfg.Reader,
		Logger:           c.logger,
	})

	assembled := AssembleMessages(parts.Head, summary, restored)
	compactedTokens, err := CountTokens(ctx, c.cfg.Client, assembled, c.cfg.SummaryModel)
	if err != nil {
		return skipped, err
	}

	stats := &Stats{
		OriginalTokens:        originalTokens,
		CompactedTokens:       compactedTokens,
		CompactedMessageCount: len(parts.Rest),
		RetainedMessageCount:  len(parts.Head),
		RestoredFileCount:     len(restored),
		RestoredTokenCount:    restoredTokens,
	}
	if originalTokens > 0 {
		stats.CompactionRatio = float64(compactedTokens) / float64(originalTokens)
	}

	c.logger.Info("context compaction completed",
		"original_tokens", stats.OriginalTokens,
		"compacted_tokens", stats.CompactedTokens,
		"compaction_ratio", stats.CompactionRatio,
		"compacted_messages", stats.CompactedMessageCount,
		"restored_files", stats.RestoredFileCount,
		"restored_tokens", stats.RestoredTokenCount,
	)
	c.emit(events.Event{Type: events.CompactionEnd, Tokens: compactedTokens, Path: bodyPath})

	return Result{
		Messages:         assembled,
		Compacted:        true,
		Stats:            stats,
		OriginalBodyPath: bodyPath,
	}, nil
}

func (c *Compactor) emit(e events.Event) {
	e.SessionID = c.cfg.SessionID
	c.cfg.Events.Emit(e)
}

// CompactMessages builds a Compactor from cfg and runs Compact once.
func CompactMessages(ctx context.Context, messages []message.Message, cfg Config) (Result, error) {
	c, err := New(cfg)
	if err != nil {
		return Result{Messages: messages}, err
	}
	return c.Compact(ctx, messages)
}
