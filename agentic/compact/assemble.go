package compact

import "github.com/victorarias/agentic-compact/agentic/message"

// Fixed text of the synthetic turns inserted by compaction.
const (
	CompressedPrefix = "[Conversation compressed]"
	SummaryAck       = "Understood. I have the context from the compressed conversation. Continuing work."
	RestoreAck       = "Noted, file content restored."
)

// AssembleMessages builds the compacted transcript: head, the summary turn
// and its acknowledgement, then each restored file followed by an
// acknowledgement. The inputs are not modified.
func AssembleMessages(head []message.Message, summary string, restored []message.Message) []message.Message {
	out := make([]message.Message, 0, len(head)+2+2*len(restored))
	out = append(out, head...)
	out = append(out,
		message.NewText(message.RoleUser, CompressedPrefix+"\n\n"+summary),
		message.NewText(message.RoleAssistant, SummaryAck),
	)
	for _, file := range restored {
		out = append(out, file, message.NewText(message.RoleAssistant, RestoreAck))
	}
	return out
}
