package history

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victorarias/agentic-compact/agentic/compact"
	"github.com/victorarias/agentic-compact/agentic/message"
	"github.com/victorarias/agentic-compact/agentic/storage"
)

var (
	_ Rewriter  = (*MemoryStore)(nil)
	_ Rewriter  = (*storage.SessionStore)(nil)
	_ Compactor = (*compact.Compactor)(nil)
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, message.NewText(message.RoleUser, "hi")))

	msgs, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hi", msgs[0].Text)

	msgs[0].Text = "mutated"
	again, _ := store.Load(ctx)
	assert.Equal(t, "hi", again[0].Text)

	require.NoError(t, store.Replace(ctx, []message.Message{message.NewText(message.RoleSystem, "summary")}))
	msgs, _ = store.Load(ctx)
	require.Len(t, msgs, 1)
	assert.Equal(t, message.RoleSystem, msgs[0].Role)
}

type stubCompactor struct {
	result compact.Result
	err    error
	seen   []message.Message
}

func (s *stubCompactor) Compact(ctx context.Context, messages []message.Message) (compact.Result, error) {
	s.seen = messages
	if s.result.Messages == nil {
		s.result.Messages = messages
	}
	return s.result, s.err
}

func TestCompactReplacesWhenCompacted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, message.NewText(message.RoleUser, "long")))

	replacement := []message.Message{message.NewText(message.RoleUser, "[Conversation compressed]\n\nshort")}
	c := &stubCompactor{result: compact.Result{Messages: replacement, Compacted: true}}

	result, err := Compact(ctx, store, c)
	require.NoError(t, err)
	assert.True(t, result.Compacted)
	assert.Equal(t, "long", c.seen[0].Text)

	stored, _ := store.Load(ctx)
	assert.Equal(t, replacement, stored)
}

func TestCompactLeavesStoreWhenSkipped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Append(ctx, message.NewText(message.RoleUser, "short")))

	_, err := Compact(ctx, store, &stubCompactor{})
	require.NoError(t, err)
	stored, _ := store.Load(ctx)
	assert.Equal(t, []message.Message{message.NewText(message.RoleUser, "short")}, stored)
}

func TestCompactPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Compact(context.Background(), NewMemoryStore(), &stubCompactor{err: boom})
	assert.ErrorIs(t, err, boom)
}
