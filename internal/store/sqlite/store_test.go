package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vortextau-chat/internal/models"
	"vortextau-chat/internal/store"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "vortex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestChatRecords(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	ts := time.Date(2025, 3, 4, 5, 6, 7, 890, time.UTC)

	require.NoError(t, s.AppendChatRecord(ctx, "0xroyce/plutus", models.ChatRecord{Timestamp: ts, Message: "hi", Response: "hello"}))
	require.NoError(t, s.AppendChatRecord(ctx, "llama3", models.ChatRecord{Timestamp: ts, Message: "a", Response: "b"}))
	require.NoError(t, s.AppendChatRecord(ctx, "0xroyce/plutus", models.ChatRecord{Timestamp: ts, Message: "again", Response: "sure"}))

	all, err := s.ListChatRecords(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Len(t, all["0xroyce/plutus"], 2)
	assert.Equal(t, "again", all["0xroyce/plutus"][1].Message)
	assert.True(t, ts.Equal(all["0xroyce/plutus"][0].Timestamp))

	one, err := s.ListChatRecords(ctx, "llama3")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "b", one["llama3"][0].Response)
}

func TestSharedChats(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, s.SaveSharedChat(ctx, id, []byte("first")))
	require.NoError(t, s.SaveSharedChat(ctx, id, []byte("second")))

	got, err := s.GetSharedChat(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	_, err = s.GetSharedChat(ctx, uuid.NewString())
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.Error(t, s.SaveSharedChat(ctx, "nope", []byte("x")))
}
