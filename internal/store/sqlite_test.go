// ABOUTME: Tests for the SQLite store
// ABOUTME: Covers implicit conversation creation, metadata updates, ordering, and the recent-history window

package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendMessage_CreatesConversation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	msg, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "hello")
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	conv, err := s.GetConversation(ctx, "customer-1")
	require.NoError(t, err)
	assert.Equal(t, "hello", conv.LastMessage)
	assert.Equal(t, SenderCustomer, conv.LastSender)
	assert.False(t, conv.HumanActive)
	assert.Equal(t, msg.CreatedAt.UTC(), conv.LastMessageAt.UTC())
}

func TestAppendMessage_UpdatesMetadata(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "first")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, "customer-1", SenderAssistant, "second")
	require.NoError(t, err)

	conv, err := s.GetConversation(ctx, "customer-1")
	require.NoError(t, err)
	assert.Equal(t, "second", conv.LastMessage)
	assert.Equal(t, SenderAssistant, conv.LastSender)
}

func TestAppendMessage_MonotonicTimestamps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	first, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "one")
	require.NoError(t, err)

	// Clock moves backwards; the stored timestamp must not
	s.now = func() time.Time { return base.Add(-time.Minute) }
	second, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "two")
	require.NoError(t, err)

	assert.False(t, second.CreatedAt.Before(first.CreatedAt))

	msgs, err := s.ListMessages(ctx, "customer-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "one", msgs[0].Text)
	assert.Equal(t, "two", msgs[1].Text)
}

func TestRecentMessages_WindowAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		tick := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return tick }
		_, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
	}

	msgs, err := s.RecentMessages(ctx, "customer-1", 10, "")
	require.NoError(t, err)
	require.Len(t, msgs, 10)

	// Oldest-first, and the window covers the 10 most recent (msg-2 .. msg-11)
	assert.Equal(t, "msg-2", msgs[0].Text)
	assert.Equal(t, "msg-11", msgs[9].Text)
	for i := 1; i < len(msgs); i++ {
		assert.False(t, msgs[i].CreatedAt.Before(msgs[i-1].CreatedAt))
	}
}

func TestRecentMessages_ExcludesTriggeringMessage(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		tick := base.Add(time.Duration(i) * time.Second)
		s.now = func() time.Time { return tick }
		_, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, fmt.Sprintf("prior-%d", i))
		require.NoError(t, err)
	}

	tick := base.Add(time.Minute)
	s.now = func() time.Time { return tick }
	latest, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "latest")
	require.NoError(t, err)

	msgs, err := s.RecentMessages(ctx, "customer-1", 10, latest.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 10)
	for _, m := range msgs {
		assert.NotEqual(t, latest.ID, m.ID)
		assert.NotEqual(t, "latest", m.Text)
	}
}

func TestGetConversation_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetConversation(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListConversations_MostRecentFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }
	_, err := s.AppendMessage(ctx, "customer-old", SenderCustomer, "old")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(time.Hour) }
	_, err = s.AppendMessage(ctx, "customer-new", SenderCustomer, "new")
	require.NoError(t, err)

	convs, err := s.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, "customer-new", convs[0].CustomerID)
	assert.Equal(t, "customer-old", convs[1].CustomerID)
}

func TestSetHumanActive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "hello")
	require.NoError(t, err)

	require.NoError(t, s.SetHumanActive(ctx, "customer-1", true))
	conv, err := s.GetConversation(ctx, "customer-1")
	require.NoError(t, err)
	assert.True(t, conv.HumanActive)

	require.NoError(t, s.SetHumanActive(ctx, "customer-1", false))
	conv, err = s.GetConversation(ctx, "customer-1")
	require.NoError(t, err)
	assert.False(t, conv.HumanActive)
}

func TestSetHumanActive_MissingConversation(t *testing.T) {
	s := createTestStore(t)
	err := s.SetHumanActive(context.Background(), "missing", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMarkRead_FlagsCustomerMessagesOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.AppendMessage(ctx, "customer-1", SenderCustomer, "question")
	require.NoError(t, err)
	_, err = s.AppendMessage(ctx, "customer-1", SenderAssistant, "answer")
	require.NoError(t, err)

	require.NoError(t, s.MarkRead(ctx, "customer-1"))

	msgs, err := s.ListMessages(ctx, "customer-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	for _, m := range msgs {
		if m.Sender == SenderCustomer {
			assert.True(t, m.Read)
		} else {
			assert.False(t, m.Read)
		}
	}
}
