// Package anthropic implements compaction's token counting and summarization
// on the Anthropic Messages API, directly or through Vertex AI.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/victorarias/agentic-compact/agentic/budget"
	"github.com/victorarias/agentic-compact/agentic/compact"
	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
)

// DefaultSummaryMaxTokens bounds the summarization response.
const DefaultSummaryMaxTokens = 4096

// Config controls an Anthropic client.
type Config struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	// SummaryMaxTokens caps the summarization response. Default: 4096
	SummaryMaxTokens int

	// MaxRetries overrides the SDK's own request retries when set.
	MaxRetries *int

	// Estimator is used once the provider has rejected count_tokens.
	// Default: budget.CharCounter{} (4 characters per token).
	Estimator budget.TokenCounter

	Logger log.Logger
}

// Client counts tokens and summarizes through the Messages API.
type Client struct {
	client    anthropic.Client
	maxTokens int
	estimator budget.TokenCounter
	logger    log.Logger

	// estimating is set after count_tokens is found unsupported and stays set.
	estimating atomic.Bool
}

// New constructs an Anthropic client from config.
func New(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("anthropic: api key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		// Anthropic-compatible gateways usually authenticate with a bearer token.
		opts = append(opts,
			option.WithBaseURL(baseURL),
			option.WithHeader("Authorization", "Bearer "+apiKey),
		)
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	if cfg.MaxRetries != nil {
		opts = append(opts, option.WithMaxRetries(*cfg.MaxRetries))
	}

	return newClient(anthropic.NewClient(opts...), cfg), nil
}

func newClient(sdkClient anthropic.Client, cfg Config) *Client {
	maxTokens := cfg.SummaryMaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultSummaryMaxTokens
	}
	estimator := cfg.Estimator
	if estimator == nil {
		estimator = budget.CharCounter{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.Null()
	}
	return &Client{
		client:    sdkClient,
		maxTokens: maxTokens,
		estimator: estimator,
		logger:    logger,
	}
}

// NewFromEnv builds an Anthropic client from environment variables.
// Required: ANTHROPIC_API_KEY. Optional: ANTHROPIC_BASE_URL,
// ANTHROPIC_MAX_TOKENS, CHARS_PER_TOKEN.
func NewFromEnv(logger log.Logger) (*Client, error) {
	apiKey := envTrimmed("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("anthropic: ANTHROPIC_API_KEY is required")
	}

	maxTokens := 0
	if v := envTrimmed("ANTHROPIC_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxTokens = n
		}
	}
	var estimator budget.TokenCounter
	if v := envTrimmed("CHARS_PER_TOKEN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			estimator = budget.CharCounter{CharsPerToken: n}
		}
	}

	return New(Config{
		APIKey:           apiKey,
		BaseURL:          envTrimmed("ANTHROPIC_BASE_URL"),
		SummaryMaxTokens: maxTokens,
		Estimator:        estimator,
		Logger:           logger,
	})
}

// Estimating reports whether token counts are local estimates.
func (c *Client) Estimating() bool {
	return c.estimating.Load()
}

// CountTokens returns the provider's input token count for messages. System
// messages are sent as the system prompt. If the provider answers 404, 500
// or 501 the client switches to local estimation for the rest of its life.
func (c *Client) CountTokens(ctx context.Context, messages []message.Message, model string) (int, error) {
	system, params := toParams(messages)
	if len(params) == 0 {
		return 0, nil
	}
	if c.estimating.Load() {
		return c.estimate(messages), nil
	}

	req := anthropic.MessageCountTokensParams{
		Model:    anthropic.Model(model),
		Messages: params,
	}
	if system != "" {
		req.System = anthropic.MessageCountTokensParamsSystemUnion{
			OfTextBlockArray: []anthropic.TextBlockParam{{Text: system}},
		}
	}

	result, err := c.client.Messages.CountTokens(ctx, req)
	if err != nil {
		if status, ok := statusCode(err); ok && countUnsupported(status) {
			c.logger.Warn("count_tokens not supported by provider, falling back to local estimation",
				"status", status,
			)
			c.estimating.Store(true)
			return c.estimate(messages), nil
		}
		return 0, fmt.Errorf("anthropic: count tokens: %w", err)
	}
	return int(result.InputTokens), nil
}

// Summarize sends prompt as a single user turn and returns the first text block.
func (c *Client) Summarize(ctx context.Context, prompt, model string) (string, error) {
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(c.maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic: summarize: %w", err)
	}
	for _, block := range msg.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			return text.Text, nil
		}
	}
	return "", nil
}

func (c *Client) estimate(messages []message.Message) int {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(compact.SerializeMessage(msg, c.logger))
	}
	return c.estimator.Count(b.String())
}

func countUnsupported(status int) bool {
	switch status {
	case http.StatusNotFound, http.StatusInternalServerError, http.StatusNotImplemented:
		return true
	default:
		return false
	}
}

func statusCode(err error) (int, bool) {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode, true
	}
	return 0, false
}

// toParams converts a transcript to API messages. System messages are
// joined into the returned system prompt.
func toParams(messages []message.Message) (string, []anthropic.MessageParam) {
	var system []string
	out := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case message.RoleSystem:
			system = append(system, compact.SerializeMessage(msg, nil))
		case message.RoleUser:
			if blocks := toBlocks(msg); len(blocks) > 0 {
				out = append(out, anthropic.NewUserMessage(blocks...))
			}
		case message.RoleAssistant:
			if blocks := toBlocks(msg); len(blocks) > 0 {
				out = append(out, anthropic.NewAssistantMessage(blocks...))
			}
		}
	}
	return strings.Join(system, "\n"), out
}

func toBlocks(msg message.Message) []anthropic.ContentBlockParamUnion {
	if !msg.HasSegments() {
		if strings.TrimSpace(msg.Text) == "" {
			return nil
		}
		return []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(msg.Text)}
	}
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Segments))
	for _, seg := range msg.Segments {
		switch s := seg.(type) {
		case message.TextSegment:
			if strings.TrimSpace(s.Text) != "" {
				blocks = append(blocks, anthropic.NewTextBlock(s.Text))
			}
		case message.ToolInvocation:
			input := s.Input
			if input == nil {
				input = map[string]any{}
			}
			blocks = append(blocks, anthropic.NewToolUseBlock(s.ID, input, s.Name))
		case message.ToolOutcome:
			content := s.Text
			if s.HasSegments() {
				content = compact.SerializeMessage(message.NewSegments(message.RoleUser, s.Segments...), nil)
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(s.InvocationID, content, false))
		}
	}
	return blocks
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
