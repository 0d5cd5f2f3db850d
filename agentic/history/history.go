package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/victorarias/agentic-compact/agentic/compact"
	"github.com/victorarias/agentic-compact/agentic/message"
)

// Store persists conversational messages.
type Store interface {
	Append(ctx context.Context, msg message.Message) error
	Load(ctx context.Context) ([]message.Message, error)
}

// Rewriter can replace stored messages (used after compaction).
type Rewriter interface {
	Store
	Replace(ctx context.Context, messages []message.Message) error
}

// Compactor is satisfied by *compact.Compactor.
type Compactor interface {
	Compact(ctx context.Context, messages []message.Message) (compact.Result, error)
}

// Compact loads the stored transcript, compacts it and writes the result
// back when compaction happened.
func Compact(ctx context.Context, store Rewriter, c Compactor) (compact.Result, error) {
	messages, err := store.Load(ctx)
	if err != nil {
		return compact.Result{}, fmt.Errorf("history: load: %w", err)
	}
	result, err := c.Compact(ctx, messages)
	if err != nil {
		return result, err
	}
	if !result.Compacted {
		return result, nil
	}
	if err := store.Replace(ctx, result.Messages); err != nil {
		return result, fmt.Errorf("history: replace: %w", err)
	}
	return result, nil
}

// MemoryStore stores messages in memory.
type MemoryStore struct {
	mu       sync.Mutex
	messages []message.Message
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append stores a message.
func (m *MemoryStore) Append(ctx context.Context, msg message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg.Clone())
	return nil
}

// Load returns stored messages.
func (m *MemoryStore) Load(ctx context.Context) ([]message.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return message.CloneAll(m.messages), nil
}

// Replace overwrites stored messages.
func (m *MemoryStore) Replace(ctx context.Context, messages []message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = message.CloneAll(messages)
	return nil
}
