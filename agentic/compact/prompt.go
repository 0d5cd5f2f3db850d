package compact

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
)

// The prompt layout is shared with summaries already written by earlier
// versions; keep it byte for byte.
const summarizePromptTemplate = `<INSTRUCTIONS>
You are a conversation summarizer for an AI agent system. Your task is to create a structured summary of the conversation history below. This summary will replace the original messages to save context space, so it must preserve all critical information needed to continue the conversation.

Rules:
1. Preserve ALL of the following dimensions that are present in the conversation (skip dimensions that do not apply):
   - **Conversation goals and key decisions** — What was the user trying to accomplish? What important choices were made?
   - **File operations** — Which files were read, created, modified, or deleted? List specific file paths.
   - **Tool call summary** — Which tools were called, what were the key results (success/failure)?
   - **Current task status** — What has been completed? What remains to be done?
   - **Errors and resolutions** — What errors occurred and how were they resolved?

2. For each dimension, include 3-5 bullet points maximum, each no longer than 2 sentences.
3. If a dimension has no relevant content in the conversation, omit that section entirely.
4. Total summary length MUST NOT exceed {{MAX_WORDS}} words.
5. Always output in English.
</INSTRUCTIONS>

<OUTPUT_FORMAT>
Use the following Markdown structure:

## Summary

### Goals & Decisions
- [bullet points]

### File Operations
- [bullet points with file paths]

### Tool Calls
- [bullet points: tool name → result]

### Task Status
- Completed: [items]
- Remaining: [items]

### Errors & Resolutions
- [bullet points]
</OUTPUT_FORMAT>

<CONVERSATION_HISTORY>
{{HISTORY}}
</CONVERSATION_HISTORY>`

const messageDivider = "\n\n---\n\n"

// FormatTranscript renders messages for the summarizer: each one labelled with
// its 1-based position and role, separated by a horizontal rule.
func FormatTranscript(messages []message.Message, logger log.Logger) string {
	parts := make([]string, len(messages))
	for i, msg := range messages {
		parts[i] = fmt.Sprintf("[%d] [%s]\n%s", i+1, msg.Role, SerializeMessage(msg, logger))
	}
	return strings.Join(parts, messageDivider)
}

// BuildSummarizePrompt wraps a formatted transcript in the summarization instructions.
func BuildSummarizePrompt(formatted string, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultSummaryMaxWords
	}
	return strings.NewReplacer(
		"{{MAX_WORDS}}", strconv.Itoa(maxWords),
		"{{HISTORY}}", formatted,
	).Replace(summarizePromptTemplate)
}
