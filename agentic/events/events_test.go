package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkFunc(t *testing.T) {
	var got []Event
	sink := SinkFunc(func(e Event) { got = append(got, e) })
	sink.Emit(Event{Type: CompactionStart, Tokens: 3})
	assert.Equal(t, []Event{{Type: CompactionStart, Tokens: 3}}, got)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Emit(Event{Type: CompactionStart})
	r.Emit(Event{Type: CompactionEnd})
	Nop.Emit(Event{Type: CompactionSkipped})
	assert.Equal(t, []string{CompactionStart, CompactionEnd}, r.Types())
}
