package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/victorarias/agentic-compact/agentic/message"
)

var sessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

const (
	defaultSessionID = "default"
	lockRetryDelay   = 20 * time.Millisecond
	staleLockAge     = 2 * time.Minute
)

type sessionPayload struct {
	Version  int               `json:"version"`
	Messages []message.Message `json:"messages"`
}

// SessionStore keeps one session transcript in a JSON file, guarded by a
// lock file so separate processes do not interleave writes.
type SessionStore struct {
	path     string
	lockPath string
	mu       sync.Mutex
}

// ValidSessionID reports whether id is usable as a file name component.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// NewSessionStore creates a store at <dir>/<sessionID>.json.
func NewSessionStore(dir, sessionID string) (*SessionStore, error) {
	root := strings.TrimSpace(dir)
	if root == "" {
		return nil, fmt.Errorf("storage: session dir is required")
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		id = defaultSessionID
	}
	if !ValidSessionID(id) {
		return nil, fmt.Errorf("storage: invalid session id %q", sessionID)
	}
	return &SessionStore{
		path:     filepath.Join(root, id+".json"),
		lockPath: filepath.Join(root, id+".lock"),
	}, nil
}

// Path returns the underlying JSON file path.
func (s *SessionStore) Path() string {
	return s.path
}

// Append stores a message.
func (s *SessionStore) Append(ctx context.Context, msg message.Message) error {
	return s.withLock(ctx, func() error {
		messages, err := s.loadLocked()
		if err != nil {
			return err
		}
		return s.saveLocked(append(messages, msg))
	})
}

// Load reads all stored messages.
func (s *SessionStore) Load(ctx context.Context) ([]message.Message, error) {
	var out []message.Message
	err := s.withLock(ctx, func() error {
		var err error
		out, err = s.loadLocked()
		return err
	})
	return out, err
}

// Replace overwrites stored messages.
func (s *SessionStore) Replace(ctx context.Context, messages []message.Message) error {
	return s.withLock(ctx, func() error {
		return s.saveLocked(messages)
	})
}

func (s *SessionStore) withLock(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()
	return fn()
}

func (s *SessionStore) loadLocked() ([]message.Message, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var payload sessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", s.path, err)
	}
	return payload.Messages, nil
}

func (s *SessionStore) saveLocked(messages []message.Message) error {
	payload := sessionPayload{
		Version:  1,
		Messages: message.CloneAll(messages),
	}
	if payload.Messages == nil {
		payload.Messages = []message.Message{}
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(s.path, data)
}

func (s *SessionStore) acquireLock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), 0o755); err != nil {
		return nil, err
	}
	for {
		lock, err := os.OpenFile(s.lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			_, _ = fmt.Fprintf(lock, "pid=%d\n", os.Getpid())
			_ = lock.Close()
			return func() {
				_ = os.Remove(s.lockPath)
			}, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if stale, err := s.isLockStale(); err == nil && stale {
			_ = os.Remove(s.lockPath)
			continue
		}
		timer := time.NewTimer(lockRetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *SessionStore) isLockStale() (bool, error) {
	info, err := os.Stat(s.lockPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return time.Since(info.ModTime()) > staleLockAge, nil
}
