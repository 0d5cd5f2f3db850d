package compact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/victorarias/agentic-compact/agentic/log"
	"github.com/victorarias/agentic-compact/agentic/message"
)

type fakeClient struct {
	mu sync.Mutex

	counts    []int
	countErr  error
	summaries []string
	sumErrs   []error

	countCalls int
	prompts    []string
	counted    [][]message.Message
}

func (f *fakeClient) CountTokens(ctx context.Context, messages []message.Message, model string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countCalls++
	f.counted = append(f.counted, messages)
	if f.countErr != nil {
		return 0, f.countErr
	}
	if len(f.counts) == 0 {
		return 0, nil
	}
	n := f.counts[0]
	if len(f.counts) > 1 {
		f.counts = f.counts[1:]
	}
	return n, nil
}

func (f *fakeClient) Summarize(ctx context.Context, prompt, model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.prompts)
	f.prompts = append(f.prompts, prompt)
	if i < len(f.sumErrs) && f.sumErrs[i] != nil {
		return "", f.sumErrs[i]
	}
	if i < len(f.summaries) {
		return f.summaries[i], nil
	}
	if len(f.summaries) > 0 {
		return f.summaries[len(f.summaries)-1], nil
	}
	return "", errors.New("no summary configured")
}

type writeCall struct {
	path    string
	content []byte
}

type recordingWriter struct {
	mu     sync.Mutex
	err    error
	writes []writeCall
}

func (w *recordingWriter) Write(ctx context.Context, path string, content []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, writeCall{path: path, content: content})
	return w.err
}

type mapReader struct {
	files    map[string]string
	readErrs map[string]error
	exists   []string
	reads    []string
}

func (r *mapReader) Exists(ctx context.Context, path string) bool {
	r.exists = append(r.exists, path)
	if _, ok := r.readErrs[path]; ok {
		return true
	}
	_, ok := r.files[path]
	return ok
}

func (r *mapReader) Read(ctx context.Context, path string) (string, error) {
	r.reads = append(r.reads, path)
	if err, ok := r.readErrs[path]; ok {
		return "", err
	}
	content, ok := r.files[path]
	if !ok {
		return "", errors.New("not found")
	}
	return content, nil
}

type logEntry struct {
	level string
	msg   string
	args  []any
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) record(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.record("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.record("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.record("error", msg, args) }
func (l *recordingLogger) With(args ...any) log.Logger   { return l }

func (l *recordingLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e.level == level {
			n++
		}
	}
	return n
}

func (l *recordingLogger) messages(level string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e.msg)
		}
	}
	return out
}

type fakeSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

func readFile(path string) message.Message {
	return message.NewSegments(message.RoleAssistant, message.ToolInvocation{
		ID:    "call_" + path,
		Name:  ReadFileTool,
		Input: map[string]any{"path": path},
	})
}

func text(role message.Role, s string) message.Message {
	return message.NewText(role, s)
}
