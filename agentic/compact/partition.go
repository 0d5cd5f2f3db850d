package compact

import (
	"slices"

	"github.com/victorarias/agentic-compact/agentic/message"
)

// Partition splits a transcript for compaction.
type Partition struct {
	// Head is the maximal prefix of system messages, kept verbatim.
	Head []message.Message

	// Rest is everything after Head, including any later system messages.
	Rest []message.Message
}

// PartitionMessages splits messages into head and rest. Both results are
// fresh slices so appending to them never writes into the input.
func PartitionMessages(messages []message.Message) Partition {
	headEnd := 0
	for headEnd < len(messages) && messages[headEnd].Role == message.RoleSystem {
		headEnd++
	}
	return Partition{
		Head: slices.Clone(messages[:headEnd:headEnd]),
		Rest: slices.Clone(messages[headEnd:]),
	}
}

// CanCompact reports whether there is anything after the head.
func (p Partition) CanCompact() bool {
	return len(p.Rest) > 0
}
