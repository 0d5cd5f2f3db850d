// Package events carries compaction lifecycle notifications to observers.
package events

const (
	CompactionStart   = "context_compaction_start"
	CompactionEnd     = "context_compaction_end"
	CompactionSkipped = "context_compaction_skipped"
	BodyPersisted     = "original_body_persisted"
)

// Event is a single lifecycle update. Fields not relevant to Type are zero.
type Event struct {
	Type      string
	SessionID string

	// Tokens is the transcript size for start events and the compacted size
	// for end events.
	Tokens int
	Path   string
	Reason string
}

// Sink consumes events (logging, UI, metrics).
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

// Nop discards every event.
var Nop Sink = SinkFunc(func(Event) {})

// Recorder keeps every emitted event in order.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(e Event) { r.Events = append(r.Events, e) }

// Types returns the Type of each recorded event.
func (r *Recorder) Types() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
