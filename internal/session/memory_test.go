package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mx32-chat/backend/internal/llm"
)

func TestMemoryStoreAppendAndHistory(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()

	err := store.Append(ctx, "s1",
		llm.Message{Role: llm.RoleUser, Content: "¿Cómo está Jalisco?"},
		llm.Message{Role: llm.RoleAssistant, Content: "Jalisco presenta indicadores estables."},
	)
	require.NoError(t, err)

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, llm.RoleUser, history[0].Role)
	assert.Equal(t, llm.RoleAssistant, history[1].Role)
}

func TestMemoryStoreWindowEviction(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		err := store.Append(ctx, "s1", llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("mensaje %d", i),
		})
		require.NoError(t, err)
	}

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, 20)

	// Oldest five were evicted; the window keeps messages 5..24.
	assert.Equal(t, "mensaje 5", history[0].Content)
	assert.Equal(t, "mensaje 24", history[19].Content)
}

func TestMemoryStoreMissingSession(t *testing.T) {
	store := NewMemoryStore(20)

	history, err := store.History(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreClear(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", llm.Message{Role: llm.RoleUser, Content: "hola"}))
	require.NoError(t, store.Clear(ctx, "s1"))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "a", llm.Message{Role: llm.RoleUser, Content: "uno"}))
	require.NoError(t, store.Append(ctx, "b", llm.Message{Role: llm.RoleUser, Content: "dos"}))

	histA, err := store.History(ctx, "a")
	require.NoError(t, err)
	histB, err := store.History(ctx, "b")
	require.NoError(t, err)

	require.Len(t, histA, 1)
	require.Len(t, histB, 1)
	assert.Equal(t, "uno", histA[0].Content)
	assert.Equal(t, "dos", histB[0].Content)
}

func TestMemoryStoreHistoryReturnsCopy(t *testing.T) {
	store := NewMemoryStore(20)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, "s1", llm.Message{Role: llm.RoleUser, Content: "original"}))

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	history[0].Content = "mutated"

	again, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "original", again[0].Content)
}
