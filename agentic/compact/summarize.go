package compact

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
	"github.com/victorarias/agentic-compact/agentic/retry"
)

// Summarizer turns the compactable part of a transcript into summary text.
type Summarizer struct {
	client   LLMClient
	model    string
	maxWords int
	logger   log.Logger
}

// NewSummarizer creates a Summarizer for the given client and model.
func NewSummarizer(client LLMClient, model string, maxWords int, logger log.Logger) *Summarizer {
	if logger == nil {
		logger = log.Null()
	}
	return &Summarizer{client: client, model: model, maxWords: maxWords, logger: logger}
}

// Summarize asks the client for a summary of messages. An empty or
// whitespace-only answer is ErrEmptySummary.
func (s *Summarizer) Summarize(ctx context.Context, messages []message.Message) (string, error) {
	prompt := BuildSummarizePrompt(FormatTranscript(messages, s.logger), s.maxWords)
	summary, err := s.client.Summarize(ctx, prompt, s.model)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(summary) == "" {
		return "", ErrEmptySummary
	}
	return summary, nil
}

// SummarizeWithRetry runs Summarize under the retry policy. Failures that
// will be retried log a warning; the final one logs an error. ok is false
// when every attempt failed; err is only set when ctx was cancelled.
func (s *Summarizer) SummarizeWithRetry(
	ctx context.Context,
	messages []message.Message,
	maxRetries int,
	baseDelay time.Duration,
	sleep retry.Sleeper,
) (summary string, ok bool, err error) {
	policy := retry.Policy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		Sleep:      sleep,
		OnFailure: func(attempt, total int, err error) {
			if attempt == total {
				return
			}
			s.logger.Warn("summarization attempt failed, retrying",
				"attempt", attempt,
				"total_attempts", total,
				"error", err,
			)
		},
	}

	summary, err = retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return s.Summarize(ctx, messages)
	})
	if err == nil {
		return summary, true, nil
	}
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		s.logger.Error("all summarization attempts failed, skipping compaction",
			"total_attempts", exhausted.Attempts,
			"error", exhausted.Err,
		)
		return "", false, nil
	}
	return "", false, err
}
