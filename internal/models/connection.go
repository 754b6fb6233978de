package models

import "time"

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	// Declined is reserved for history-preserving rejection; rejection
	// currently deletes the row instead.
	ConnectionStatusDeclined ConnectionStatus = "declined"
)

// Connection is a directed request from requester to receiver. Once accepted
// it acts as an undirected relation; at most one row exists per user pair
// regardless of direction.
type Connection struct {
	ID          uint             `json:"id" gorm:"primaryKey"`
	RequesterID uint             `json:"requester_id" gorm:"not null;index"`
	ReceiverID  uint             `json:"receiver_id" gorm:"not null;index"`
	Status      ConnectionStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	CreatedAt   time.Time        `json:"created_at"`

	Requester User `json:"requester,omitempty" gorm:"foreignKey:RequesterID"`
	Receiver  User `json:"receiver,omitempty" gorm:"foreignKey:ReceiverID"`
}

// Partner returns the other party of the connection relative to userID.
func (c *Connection) Partner(userID uint) uint {
	if c.RequesterID == userID {
		return c.ReceiverID
	}
	return c.RequesterID
}

// Involves reports whether userID is either party of the connection.
func (c *Connection) Involves(userID uint) bool {
	return c.RequesterID == userID || c.ReceiverID == userID
}

// RecommendationDismissal records a "not interested" signal. One row per
// ordered (dismisser, dismissed) pair; re-dismissing refreshes DismissedAt.
type RecommendationDismissal struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	DismisserID uint      `json:"dismisser_id" gorm:"not null;uniqueIndex:idx_dismissal_pair"`
	DismissedID uint      `json:"dismissed_id" gorm:"not null;uniqueIndex:idx_dismissal_pair"`
	DismissedAt time.Time `json:"dismissed_at" gorm:"not null"`
}
