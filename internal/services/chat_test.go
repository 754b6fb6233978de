package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"matchme-server/internal/models"
	"matchme-server/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupChat(t *testing.T) (*gorm.DB, *services.ChatService, *services.ConnectionService, *fakePusher) {
	t.Helper()

	db := setupDB(t)
	dismissals := services.NewDismissalService(db, 7*24*time.Hour)
	connections := services.NewConnectionService(db, dismissals)
	pusher := newFakePusher()
	presence := services.NewPresenceService(connections, pusher, nil, testGrace)
	chat := services.NewChatService(db, connections, presence, pusher, nil)
	return db, chat, connections, pusher
}

func TestSendRequiresConnection(t *testing.T) {
	db, chat, _, _ := setupChat(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := chat.Send(ctx, alice.ID, bob.ID, "hello")
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestSendPersistsAndPushes(t *testing.T) {
	db, chat, connections, pusher := setupChat(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)

	message, err := chat.Send(ctx, alice.ID, bob.ID, "hello")
	require.NoError(t, err)
	assert.NotZero(t, message.ID)
	assert.False(t, message.IsRead)

	var stored models.ChatMessage
	require.NoError(t, db.First(&stored, message.ID).Error)
	assert.Equal(t, "hello", stored.Content)
	assert.Equal(t, alice.ID, stored.SenderID)
	assert.Equal(t, bob.ID, stored.ReceiverID)

	sent := pusher.sentTo(bob.ID)
	require.NotEmpty(t, sent)
	payload, ok := sent[len(sent)-1].(services.MessagePayload)
	require.True(t, ok)
	assert.Equal(t, "message", payload.Type)
	assert.Equal(t, "hello", payload.Content)
	assert.Equal(t, alice.ID, payload.SenderID)
}

func TestSendTypingEphemeral(t *testing.T) {
	db, chat, connections, pusher := setupChat(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	connectPair(t, connections, alice.ID, bob.ID)

	require.NoError(t, chat.SendTyping(ctx, alice.ID, bob.ID))

	err := chat.SendTyping(ctx, alice.ID, carol.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	sent := pusher.sentTo(bob.ID)
	require.NotEmpty(t, sent)
	payload, ok := sent[len(sent)-1].(services.TypingPayload)
	require.True(t, ok)
	assert.Equal(t, "typing", payload.Type)
	assert.Equal(t, alice.ID, payload.SenderID)
	assert.True(t, payload.IsTyping)

	var count int64
	require.NoError(t, db.Model(&models.ChatMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func seedConversation(t *testing.T, db *gorm.DB, chat *services.ChatService, aliceID, bobID uint, n int) {
	t.Helper()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < n; i++ {
		message, err := chat.Send(context.Background(), aliceID, bobID, fmt.Sprintf("msg-%d", i))
		require.NoError(t, err)
		// Spread timestamps so ordering does not depend on insert granularity.
		require.NoError(t, db.Model(message).Update("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
	}
}

func TestHistoryPagination(t *testing.T) {
	db, chat, connections, _ := setupChat(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)
	seedConversation(t, db, chat, alice.ID, bob.ID, 5)

	// Page 0 holds the two newest messages, oldest-first within the page.
	page0, last, err := chat.History(ctx, bob.ID, alice.ID, 0, 2)
	require.NoError(t, err)
	require.Len(t, page0, 2)
	assert.Equal(t, "msg-3", page0[0].Content)
	assert.Equal(t, "msg-4", page0[1].Content)
	assert.False(t, last)

	page1, last, err := chat.History(ctx, bob.ID, alice.ID, 1, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "msg-1", page1[0].Content)
	assert.Equal(t, "msg-2", page1[1].Content)
	assert.False(t, last)

	// The short final page signals the start of the chat.
	page2, last, err := chat.History(ctx, bob.ID, alice.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "msg-0", page2[0].Content)
	assert.True(t, last)

	page3, last, err := chat.History(ctx, bob.ID, alice.ID, 3, 2)
	require.NoError(t, err)
	assert.Empty(t, page3)
	assert.True(t, last)
}

func TestHistoryDefaultsAndEmptyThread(t *testing.T) {
	db, chat, _, _ := setupChat(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	// History is readable without a connection; a new thread is empty and
	// already at its start.
	messages, last, err := chat.History(ctx, alice.ID, bob.ID, -1, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.True(t, last)
}

func TestMarkReadIdempotent(t *testing.T) {
	db, chat, connections, pusher := setupChat(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)

	_, err := chat.Send(ctx, alice.ID, bob.ID, "one")
	require.NoError(t, err)
	_, err = chat.Send(ctx, alice.ID, bob.ID, "two")
	require.NoError(t, err)
	_, err = chat.Send(ctx, bob.ID, alice.ID, "reply")
	require.NoError(t, err)

	require.NoError(t, chat.MarkRead(ctx, bob.ID, alice.ID))

	var unread int64
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Where("receiver_id = ? AND is_read = ?", bob.ID, false).
		Count(&unread).Error)
	assert.Zero(t, unread)

	// Bob's reply to Alice is untouched.
	var aliceUnread int64
	require.NoError(t, db.Model(&models.ChatMessage{}).
		Where("receiver_id = ? AND is_read = ?", alice.ID, false).
		Count(&aliceUnread).Error)
	assert.Equal(t, int64(1), aliceUnread)

	before := pusher.count(bob.ID)
	require.NoError(t, chat.MarkRead(ctx, bob.ID, alice.ID))

	sent := pusher.sentTo(bob.ID)
	require.Equal(t, before+1, len(sent))
	payload, ok := sent[len(sent)-1].(services.ReadClearedPayload)
	require.True(t, ok)
	assert.Equal(t, "messages_read", payload.Type)
	assert.Equal(t, alice.ID, payload.SenderID)
}
