// Package message provides the conversation model consumed by compaction:
// messages whose content is either plain text or an ordered list of segments.
package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Role identifies the author of a message.
type Role string

// Role constants for message types.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Segment wire tags.
const (
	TypeText       = "text"
	TypeToolUse    = "tool_use"
	TypeToolResult = "tool_result"
)

// Segment is one element of structured message content. The set of
// implementations is closed: TextSegment, ToolInvocation, ToolOutcome and
// UnknownSegment (a tag this package does not understand).
type Segment interface {
	SegmentType() string
	isSegment()
}

// TextSegment is plain text inside structured content.
type TextSegment struct {
	Text string
}

// ToolInvocation is a request from the assistant to run a tool.
type ToolInvocation struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolOutcome carries a tool's result. Content is Text unless Segments is non-empty.
type ToolOutcome struct {
	InvocationID string
	Text         string
	Segments     []Segment
}

// UnknownSegment keeps a segment whose tag is not recognised so it survives
// a decode/encode round trip.
type UnknownSegment struct {
	Type string
	Raw  json.RawMessage
}

func (TextSegment) SegmentType() string    { return TypeText }
func (ToolInvocation) SegmentType() string { return TypeToolUse }
func (ToolOutcome) SegmentType() string    { return TypeToolResult }
func (u UnknownSegment) SegmentType() string {
	return u.Type
}

func (TextSegment) isSegment()    {}
func (ToolInvocation) isSegment() {}
func (ToolOutcome) isSegment()    {}
func (UnknownSegment) isSegment() {}

// HasSegments reports whether the outcome content is structured.
func (o ToolOutcome) HasSegments() bool {
	return len(o.Segments) > 0
}

// Message is a single conversational turn. Content is Text unless Segments is non-empty.
type Message struct {
	Role     Role
	Text     string
	Segments []Segment
}

// NewText builds a plain-text message.
func NewText(role Role, text string) Message {
	return Message{Role: role, Text: text}
}

// NewSegments builds a message with structured content.
func NewSegments(role Role, segments ...Segment) Message {
	return Message{Role: role, Segments: segments}
}

// HasSegments reports whether the message content is structured.
func (m Message) HasSegments() bool {
	return len(m.Segments) > 0
}

// Validate checks the role is set.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	case "":
		return errors.New("message: role is required")
	default:
		return fmt.Errorf("message: unknown role %q", m.Role)
	}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := Message{Role: m.Role, Text: m.Text}
	if m.Segments != nil {
		out.Segments = cloneSegments(m.Segments)
	}
	return out
}

// CloneAll deep-copies a transcript.
func CloneAll(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg.Clone()
	}
	return out
}

func cloneSegments(segments []Segment) []Segment {
	out := make([]Segment, len(segments))
	for i, seg := range segments {
		switch s := seg.(type) {
		case ToolInvocation:
			s.Input = cloneMap(s.Input)
			out[i] = s
		case ToolOutcome:
			if s.Segments != nil {
				s.Segments = cloneSegments(s.Segments)
			}
			out[i] = s
		case UnknownSegment:
			s.Raw = append(json.RawMessage(nil), s.Raw...)
			out[i] = s
		default:
			out[i] = seg
		}
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return cloneMap(value)
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

type wireMessage struct {
	Role    Role            `json:"role"`
	Content json.RawMessage `json:"content"`
}

type wireSegment struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     map[string]any  `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   json.RawMessage `json:"content,omitempty"`
}

// MarshalJSON encodes content as a string or as an array of tagged segments.
func (m Message) MarshalJSON() ([]byte, error) {
	content, err := marshalContent(m.Text, m.Segments)
	if err != nil {
		return nil, err
	}
	return json.Marshal(wireMessage{Role: m.Role, Content: content})
}

// UnmarshalJSON accepts content as a string or as an array of tagged segments.
func (m *Message) UnmarshalJSON(data []byte) error {
	var wire wireMessage
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	text, segments, err := unmarshalContent(wire.Content)
	if err != nil {
		return fmt.Errorf("message: decode %s content: %w", wire.Role, err)
	}
	*m = Message{Role: wire.Role, Text: text, Segments: segments}
	return nil
}

func marshalContent(text string, segments []Segment) (json.RawMessage, error) {
	if len(segments) == 0 {
		return json.Marshal(text)
	}
	parts := make([]json.RawMessage, 0, len(segments))
	for _, seg := range segments {
		raw, err := marshalSegment(seg)
		if err != nil {
			return nil, err
		}
		parts = append(parts, raw)
	}
	return json.Marshal(parts)
}

func marshalSegment(seg Segment) (json.RawMessage, error) {
	switch s := seg.(type) {
	case TextSegment:
		return json.Marshal(wireSegment{Type: TypeText, Text: s.Text})
	case ToolInvocation:
		input := s.Input
		if input == nil {
			input = map[string]any{}
		}
		return json.Marshal(struct {
			Type  string         `json:"type"`
			ID    string         `json:"id"`
			Name  string         `json:"name"`
			Input map[string]any `json:"input"`
		}{TypeToolUse, s.ID, s.Name, input})
	case ToolOutcome:
		content, err := marshalContent(s.Text, s.Segments)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireSegment{Type: TypeToolResult, ToolUseID: s.InvocationID, Content: content})
	case UnknownSegment:
		if len(s.Raw) > 0 {
			return s.Raw, nil
		}
		return json.Marshal(wireSegment{Type: s.Type})
	default:
		return nil, fmt.Errorf("message: unsupported segment %T", seg)
	}
}

func unmarshalContent(raw json.RawMessage) (string, []Segment, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil, nil
	}
	if trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return "", nil, err
		}
		return text, nil, nil
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(trimmed, &parts); err != nil {
		return "", nil, err
	}
	segments := make([]Segment, 0, len(parts))
	for _, part := range parts {
		seg, err := unmarshalSegment(part)
		if err != nil {
			return "", nil, err
		}
		segments = append(segments, seg)
	}
	return "", segments, nil
}

func unmarshalSegment(raw json.RawMessage) (Segment, error) {
	var wire wireSegment
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, err
	}
	switch wire.Type {
	case TypeText:
		return TextSegment{Text: wire.Text}, nil
	case TypeToolUse:
		return ToolInvocation{ID: wire.ID, Name: wire.Name, Input: wire.Input}, nil
	case TypeToolResult:
		text, segments, err := unmarshalContent(wire.Content)
		if err != nil {
			return nil, err
		}
		return ToolOutcome{InvocationID: wire.ToolUseID, Text: text, Segments: segments}, nil
	default:
		return UnknownSegment{Type: wire.Type, Raw: append(json.RawMessage(nil), raw...)}, nil
	}
}
