package models

import "time"

type ChatMessage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SenderID   uint      `json:"sender_id" gorm:"not null;index:idx_chat_pair"`
	ReceiverID uint      `json:"receiver_id" gorm:"not null;index:idx_chat_pair"`
	Content    string    `json:"content" gorm:"not null"`
	IsRead     bool      `json:"read" gorm:"default:false"`
	CreatedAt  time.Time `json:"timestamp"`

	Sender   User `json:"-" gorm:"foreignKey:SenderID"`
	Receiver User `json:"-" gorm:"foreignKey:ReceiverID"`
}
