package compact

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victorarias/agentic-compact/agentic/message"
)

func TestFormatTranscript(t *testing.T) {
	got := FormatTranscript([]message.Message{
		text(message.RoleUser, "hello"),
		text(message.RoleAssistant, "hi there"),
	}, nil)
	assert.Equal(t, "[1] [user]\nhello\n\n---\n\n[2] [assistant]\nhi there", got)
}

func TestBuildSummarizePrompt(t *testing.T) {
	prompt := BuildSummarizePrompt("[1] [user]\nhello", 300)
	assert.True(t, strings.HasPrefix(prompt, "<INSTRUCTIONS>\n"))
	assert.Contains(t, prompt, "MUST NOT exceed 300 words.")
	assert.Contains(t, prompt, "<CONVERSATION_HISTORY>\n[1] [user]\nhello\n</CONVERSATION_HISTORY>")
	assert.NotContains(t, prompt, "{{")
}

func TestBuildSummarizePromptDoesNotExpandHistory(t *testing.T) {
	prompt := BuildSummarizePrompt("literal {{MAX_WORDS}}", 0)
	assert.Contains(t, prompt, "literal {{MAX_WORDS}}")
	assert.Contains(t, prompt, "MUST NOT exceed 1200 words.")
}
