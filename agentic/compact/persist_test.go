package compact

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBodyPath(t *testing.T) {
	at := time.Date(2025, 3, 4, 5, 6, 7, 89_000_000, time.UTC)
	assert.Equal(t,
		".compact/session-1/compact-2025-03-04T05-06-07-089Z-3.json",
		BodyPath(".compact", "session-1", at, 3),
	)
}

func TestBodyPathUsesUTC(t *testing.T) {
	zone := time.FixedZone("X", 2*60*60)
	at := time.Date(2025, 3, 4, 7, 0, 0, 0, zone)
	assert.Equal(t,
		"out/default/compact-2025-03-04T05-00-00-000Z-1.json",
		BodyPath("out", "default", at, 1),
	)
}

func TestSequence(t *testing.T) {
	var seq Sequence
	assert.Equal(t, int64(1), seq.Next())
	assert.Equal(t, int64(2), seq.Next())
	seq.Reset()
	assert.Equal(t, int64(1), seq.Next())
}

func TestSequenceConcurrent(t *testing.T) {
	var seq Sequence
	const workers = 50
	seen := make(chan int64, workers)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- seq.Next()
		}()
	}
	wg.Wait()
	close(seen)

	unique := map[int64]bool{}
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, workers)
	assert.Equal(t, int64(workers+1), seq.Next())
}
