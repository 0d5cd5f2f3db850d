package message

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageJSONTextContent(t *testing.T) {
	data, err := json.Marshal(NewText(RoleUser, "hello"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"user","content":"hello"}`, string(data))

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, RoleUser, decoded.Role)
	assert.Equal(t, "hello", decoded.Text)
	assert.False(t, decoded.HasSegments())
}

func TestMessageJSONSegments(t *testing.T) {
	raw := `{"role":"assistant","content":[
		{"type":"text","text":"reading"},
		{"type":"tool_use","id":"t1","name":"read_file","input":{"path":"a.go"}},
		{"type":"tool_result","tool_use_id":"t1","content":[{"type":"text","text":"body"}]},
		{"type":"image","source":"x"}
	]}`

	var msg Message
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))
	require.Len(t, msg.Segments, 4)

	assert.Equal(t, TextSegment{Text: "reading"}, msg.Segments[0])
	call, ok := msg.Segments[1].(ToolInvocation)
	require.True(t, ok)
	assert.Equal(t, "read_file", call.Name)
	assert.Equal(t, "a.go", call.Input["path"])

	outcome, ok := msg.Segments[2].(ToolOutcome)
	require.True(t, ok)
	assert.Equal(t, "t1", outcome.InvocationID)
	assert.True(t, outcome.HasSegments())

	unknown, ok := msg.Segments[3].(UnknownSegment)
	require.True(t, ok)
	assert.Equal(t, "image", unknown.SegmentType())

	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, raw, string(out))
}

func TestMessageJSONToolUseWithoutInput(t *testing.T) {
	data, err := json.Marshal(NewSegments(RoleAssistant, ToolInvocation{ID: "t", Name: "ls"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"assistant","content":[{"type":"tool_use","id":"t","name":"ls","input":{}}]}`, string(data))
}

func TestMessageValidate(t *testing.T) {
	assert.NoError(t, NewText(RoleSystem, "s").Validate())
	assert.Error(t, Message{Text: "x"}.Validate())
	assert.Error(t, Message{Role: "tool"}.Validate())
}

func TestCloneIsDeep(t *testing.T) {
	original := []Message{
		NewSegments(RoleAssistant, ToolInvocation{
			ID:    "t1",
			Name:  "read_file",
			Input: map[string]any{"path": "a.go", "opts": map[string]any{"n": 1.0}},
		}),
	}

	copied := CloneAll(original)
	call := copied[0].Segments[0].(ToolInvocation)
	call.Input["path"] = "b.go"
	call.Input["opts"].(map[string]any)["n"] = 2.0

	orig := original[0].Segments[0].(ToolInvocation)
	assert.Equal(t, "a.go", orig.Input["path"])
	assert.Equal(t, 1.0, orig.Input["opts"].(map[string]any)["n"])
	assert.Nil(t, CloneAll(nil))
}
