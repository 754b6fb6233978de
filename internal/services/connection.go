package services

import (
	"context"
	"errors"

	"matchme-server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ConnectionService owns the lifecycle of a directed request between two
// users. Every transition re-verifies status and ownership inside the same
// transaction that performs the mutation, so concurrent accept/reject/
// disconnect calls on one row cannot race each other.
type ConnectionService struct {
	db         *gorm.DB
	dismissals *DismissalService
	log        *logrus.Entry
}

func NewConnectionService(db *gorm.DB, dismissals *DismissalService) *ConnectionService {
	return &ConnectionService{
		db:         db,
		dismissals: dismissals,
		log:        logrus.WithField("component", "connections"),
	}
}

// SendRequest creates a pending request from requester to receiver. At most
// one connection row may exist per user pair, in either direction.
func (s *ConnectionService) SendRequest(ctx context.Context, requesterID, receiverID uint) (*models.Connection, error) {
	if requesterID == receiverID {
		return nil, models.NewInvalidOperationError("cannot connect with yourself")
	}

	connection := &models.Connection{
		RequesterID: requesterID,
		ReceiverID:  receiverID,
		Status:      models.ConnectionStatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := pairQuery(tx, requesterID, receiverID).
			Model(&models.Connection{}).Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count > 0 {
			return models.NewConflictError("connection or request already exists")
		}
		if err := tx.Create(connection).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return connection, nil
}

// AcceptRequest flips a pending request to accepted. Only the receiver may
// accept.
func (s *ConnectionService) AcceptRequest(ctx context.Context, connectionID, actingUserID uint) (*models.Connection, error) {
	var connection models.Connection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fetchConnection(tx, connectionID, &connection); err != nil {
			return err
		}
		if connection.ReceiverID != actingUserID {
			return models.NewForbiddenError("not authorized to accept this request")
		}
		if connection.Status != models.ConnectionStatusPending {
			return models.NewInvalidStateError("connection is not pending")
		}

		res := tx.Model(&models.Connection{}).
			Where("id = ? AND status = ?", connectionID, models.ConnectionStatusPending).
			Update("status", models.ConnectionStatusAccepted)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewInvalidStateError("connection is not pending")
		}
		connection.Status = models.ConnectionStatusAccepted
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{"connection_id": connectionID, "receiver_id": actingUserID}).
		Info("Connection request accepted")
	return &connection, nil
}

// RejectRequest records a dismissal of the requester and deletes the request.
// Only the receiver may reject. The dismissal keeps the requester out of the
// receiver's recommendations for the dismissal window.
func (s *ConnectionService) RejectRequest(ctx context.Context, connectionID, actingUserID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var connection models.Connection
		if err := fetchConnection(tx, connectionID, &connection); err != nil {
			return err
		}
		if connection.ReceiverID != actingUserID {
			return models.NewForbiddenError("not authorized to reject this request")
		}

		if err := s.dismissals.dismiss(tx, actingUserID, connection.RequesterID); err != nil {
			return err
		}

		res := tx.Delete(&models.Connection{}, connectionID)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("connection", connectionID)
		}
		return nil
	})
}

// Disconnect deletes the connection regardless of status. Either party may
// disconnect. No dismissal is recorded, so the other user may reappear in
// recommendations immediately.
func (s *ConnectionService) Disconnect(ctx context.Context, connectionID, actingUserID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var connection models.Connection
		if err := fetchConnection(tx, connectionID, &connection); err != nil {
			return err
		}
		if !connection.Involves(actingUserID) {
			return models.NewForbiddenError("not authorized to disconnect")
		}

		res := tx.Delete(&models.Connection{}, connectionID)
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("connection", connectionID)
		}
		return nil
	})
}

// AreConnected reports whether an accepted connection exists between the two
// users, in either direction.
func (s *ConnectionService) AreConnected(ctx context.Context, a, b uint) (bool, error) {
	return s.pairHasStatus(ctx, a, b, models.ConnectionStatusAccepted)
}

// HasPendingRequest reports whether a pending request exists between the two
// users, in either direction.
func (s *ConnectionService) HasPendingRequest(ctx context.Context, a, b uint) (bool, error) {
	return s.pairHasStatus(ctx, a, b, models.ConnectionStatusPending)
}

// ListPending returns the pending requests addressed to userID.
func (s *ConnectionService) ListPending(ctx context.Context, userID uint) ([]models.Connection, error) {
	var connections []models.Connection
	err := s.db.WithContext(ctx).
		Where("receiver_id = ? AND status = ?", userID, models.ConnectionStatusPending).
		Order("created_at DESC").
		Find(&connections).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return connections, nil
}

// ListAccepted returns the accepted connections where userID is either party.
// Callers derive the partner by comparing identities.
func (s *ConnectionService) ListAccepted(ctx context.Context, userID uint) ([]models.Connection, error) {
	var connections []models.Connection
	err := s.db.WithContext(ctx).
		Where("(requester_id = ? OR receiver_id = ?) AND status = ?",
			userID, userID, models.ConnectionStatusAccepted).
		Order("created_at DESC").
		Find(&connections).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return connections, nil
}

// AcceptedPeerIDs returns the user IDs connected to userID. Used for the
// presence fan-out set and recommendation exclusions.
func (s *ConnectionService) AcceptedPeerIDs(ctx context.Context, userID uint) ([]uint, error) {
	connections, err := s.ListAccepted(ctx, userID)
	if err != nil {
		return nil, err
	}
	peers := make([]uint, 0, len(connections))
	for _, c := range connections {
		peers = append(peers, c.Partner(userID))
	}
	return peers, nil
}

func (s *ConnectionService) pairHasStatus(ctx context.Context, a, b uint, status models.ConnectionStatus) (bool, error) {
	var count int64
	err := pairQuery(s.db.WithContext(ctx), a, b).
		Model(&models.Connection{}).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// pairQuery matches the single possible connection row between two users,
// ignoring direction.
func pairQuery(tx *gorm.DB, a, b uint) *gorm.DB {
	return tx.Where("(requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)",
		a, b, b, a)
}

func fetchConnection(tx *gorm.DB, connectionID uint, out *models.Connection) error {
	if err := tx.First(out, connectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("connection", connectionID)
		}
		return models.NewInternalError(err)
	}
	return nil
}
