package climatechat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionGetReturnsSnapshot(t *testing.T) {
	store := NewMemSessionStore()
	sess := store.Create()
	require.True(t, store.AddMessage(sess.ID, ChatMessage{Role: "user", Content: "hello"}))

	got, ok := store.Get(sess.ID)
	require.True(t, ok)
	got.Messages = append(got.Messages, ChatMessage{Role: "assistant", Content: "injected"})
	got.Messages[0].Content = "mutated"

	again, ok := store.Get(sess.ID)
	require.True(t, ok)
	require.Len(t, again.Messages, 1)
	assert.Equal(t, "hello", again.Messages[0].Content)
}

func TestSessionCleanKeepsNewest(t *testing.T) {
	store := NewMemSessionStore()
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, store.Create().ID)
	}
	require.NoError(t, store.Clean(2))

	kept := 0
	for _, id := range ids {
		if _, ok := store.Get(id); ok {
			kept++
		}
	}
	assert.Equal(t, 2, kept)
}
