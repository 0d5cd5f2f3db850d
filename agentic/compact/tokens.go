package compact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
)

// LLMClient counts tokens and produces summaries. Implementations own their
// transport, timeouts and retries below this interface.
type LLMClient interface {
	CountTokens(ctx context.Context, messages []message.Message, model string) (int, error)
	Summarize(ctx context.Context, prompt, model string) (string, error)
}

// CountTokens returns the provider's count for messages. An empty transcript
// is 0 without a round trip.
func CountTokens(ctx context.Context, client LLMClient, messages []message.Message, model string) (int, error) {
	if len(messages) == 0 {
		return 0, nil
	}
	n, err := client.CountTokens(ctx, messages, model)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTokenCount, err)
	}
	return n, nil
}

// SerializeMessage renders message content as plain text.
func SerializeMessage(msg message.Message, logger log.Logger) string {
	if !msg.HasSegments() {
		return msg.Text
	}
	return serializeSegments(msg.Segments, logger)
}

// SerializeSegment renders one segment as plain text. Unknown segments
// render empty and log a warning.
func SerializeSegment(seg message.Segment, logger log.Logger) string {
	switch s := seg.(type) {
	case message.TextSegment:
		return s.Text
	case message.ToolInvocation:
		return fmt.Sprintf("[Tool Use: %s] %s", s.Name, renderInput(s.Input))
	case message.ToolOutcome:
		if !s.HasSegments() {
			return fmt.Sprintf("[Tool Result: %s] %s", s.InvocationID, s.Text)
		}
		return fmt.Sprintf("[Tool Result: %s]\n%s", s.InvocationID, serializeSegments(s.Segments, logger))
	default:
		if logger != nil {
			logger.Warn("unknown content segment type, skipping", "type", seg.SegmentType())
		}
		return ""
	}
}

func serializeSegments(segments []message.Segment, logger log.Logger) string {
	parts := make([]string, len(segments))
	for i, seg := range segments {
		parts[i] = SerializeSegment(seg, logger)
	}
	return strings.Join(parts, "\n")
}

func renderInput(input map[string]any) string {
	if input == nil {
		return "{}"
	}
	data, err := json.Marshal(input)
	if err != nil {
		return fmt.Sprintf("%v", input)
	}
	return string(data)
}
