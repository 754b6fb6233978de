package services

import (
	"context"
	"time"

	"matchme-server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const defaultHistoryPageSize = 20

// ChatService persists messages between connected users and pushes messages,
// typing state, and read receipts to live sessions. The persisted row is the
// only guaranteed record; push is best-effort.
type ChatService struct {
	db          *gorm.DB
	connections *ConnectionService
	presence    *PresenceService
	pusher      Pusher
	push        *PushService // optional FCM fallback, may be nil
	log         *logrus.Entry
}

func NewChatService(db *gorm.DB, connections *ConnectionService, presence *PresenceService, pusher Pusher, push *PushService) *ChatService {
	return &ChatService{
		db:          db,
		connections: connections,
		presence:    presence,
		pusher:      pusher,
		push:        push,
		log:         logrus.WithField("component", "chat"),
	}
}

// MessagePayload is the realtime event pushed to the receiver on send.
type MessagePayload struct {
	Type       string    `json:"type"`
	ID         uint      `json:"id"`
	SenderID   uint      `json:"sender_id"`
	ReceiverID uint      `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
}

// TypingPayload is the ephemeral typing event; never persisted.
type TypingPayload struct {
	Type     string `json:"type"`
	SenderID uint   `json:"sender_id"`
	IsTyping bool   `json:"is_typing"`
}

// ReadClearedPayload tells the receiver's other sessions to clear unread
// badges for a sender.
type ReadClearedPayload struct {
	Type     string `json:"type"`
	SenderID uint   `json:"sender_id"`
}

// Send persists a message and attempts a best-effort push to the receiver.
// Only connected users may message each other.
func (s *ChatService) Send(ctx context.Context, senderID, receiverID uint, content string) (*models.ChatMessage, error) {
	connected, err := s.connections.AreConnected(ctx, senderID, receiverID)
	if err != nil {
		return nil, err
	}
	if !connected {
		return nil, models.NewForbiddenError("you can only message connected users")
	}

	message := &models.ChatMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		IsRead:     false,
	}
	if err := s.db.WithContext(ctx).Create(message).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	s.pusher.PushToUser(receiverID, MessagePayload{
		Type:       "message",
		ID:         message.ID,
		SenderID:   message.SenderID,
		ReceiverID: message.ReceiverID,
		Content:    message.Content,
		Timestamp:  message.CreatedAt,
	})

	if s.push != nil && s.presence != nil && !s.presence.IsOnline(receiverID) {
		if err := s.push.NotifyNewMessage(ctx, receiverID, content); err != nil {
			s.log.WithError(err).WithField("receiver_id", receiverID).Warn("Push notification failed")
		}
	}

	return message, nil
}

// SendTyping pushes an ephemeral typing event to the receiver. Same
// connection gate as Send.
func (s *ChatService) SendTyping(ctx context.Context, senderID, receiverID uint) error {
	connected, err := s.connections.AreConnected(ctx, senderID, receiverID)
	if err != nil {
		return err
	}
	if !connected {
		return models.NewForbiddenError("you can only message connected users")
	}

	s.pusher.PushToUser(receiverID, TypingPayload{Type: "typing", SenderID: senderID, IsTyping: true})
	return nil
}

// History returns one page of the conversation between two users in
// chronological order, plus whether the start of the chat has been reached.
// Pages are taken newest-first so page 0 holds the latest messages.
func (s *ChatService) History(ctx context.Context, requesterID, otherUserID uint, page, size int) ([]models.ChatMessage, bool, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultHistoryPageSize
	}

	var messages []models.ChatMessage
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			requesterID, otherUserID, otherUserID, requesterID).
		Order("created_at DESC, id DESC").
		Limit(size).
		Offset(page * size).
		Find(&messages).Error
	if err != nil {
		return nil, false, models.NewInternalError(err)
	}

	// Reverse to oldest-first for display. A short or empty slice means this
	// page is the last one; a brand-new thread reports last immediately.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	lastPage := len(messages) < size

	return messages, lastPage, nil
}

// MarkRead flips every unread message from senderID to receiverID to read,
// then notifies the receiver's own other sessions to clear badges. Calling it
// again is a no-op.
func (s *ChatService) MarkRead(ctx context.Context, receiverID, senderID uint) error {
	err := s.db.WithContext(ctx).
		Model(&models.ChatMessage{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", senderID, receiverID, false).
		Update("is_read", true).Error
	if err != nil {
		return models.NewInternalError(err)
	}

	s.pusher.PushToUser(receiverID, ReadClearedPayload{Type: "messages_read", SenderID: senderID})
	return nil
}
