package compact

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/victorarias/agentic-compact/agentic/message"
)

// BodyWriter stores the original body of a compacted transcript.
// Implementations must create any missing parent directories.
type BodyWriter interface {
	Write(ctx context.Context, path string, content []byte) error
}

// Sequence numbers persisted bodies. It is safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// Next returns the next number, starting at 1.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Reset restarts numbering at 1.
func (s *Sequence) Reset() {
	s.n.Store(0)
}

var defaultSequence Sequence

// ResetSequence restarts the process-wide sequence used when Config.Sequence is nil.
func ResetSequence() {
	defaultSequence.Reset()
}

var timestampReplacer = strings.NewReplacer(":", "-", ".", "-")

// BodyPath returns <outputDir>/<sessionID>/compact-<timestamp>-<seq>.json.
func BodyPath(outputDir, sessionID string, at time.Time, seq int64) string {
	stamp := timestampReplacer.Replace(at.UTC().Format("2006-01-02T15:04:05.000Z"))
	return filepath.Join(outputDir, sessionID, fmt.Sprintf("compact-%s-%d.json", stamp, seq))
}

// persistBody writes rest as indented JSON and returns the path, or "" when
// the write failed.
func (c *Compactor) persistBody(ctx context.Context, rest []message.Message, seq int64) string {
	bodyPath := BodyPath(c.cfg.OutputDir, c.cfg.SessionID, c.cfg.Now(), seq)
	data, err := json.MarshalIndent(rest, "", "  ")
	if err != nil {
		c.logger.Error("failed to persist original messages", "path", bodyPath, "error", err)
		return ""
	}
	if err := c.cfg.Writer.Write(ctx, bodyPath, data); err != nil {
		c.logger.Error("failed to persist original messages", "path", bodyPath, "error", err)
		return ""
	}
	return bodyPath
}
