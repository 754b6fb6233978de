package services

import (
	"context"
	"time"

	"matchme-server/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DismissalService is the ledger of "not interested" signals. Entries are
// consulted through a sliding window at recommendation time and are never
// physically pruned by that path.
type DismissalService struct {
	db     *gorm.DB
	window time.Duration
}

func NewDismissalService(db *gorm.DB, window time.Duration) *DismissalService {
	return &DismissalService{db: db, window: window}
}

// Dismiss upserts the (dismisser, dismissed) pair. Re-dismissing refreshes the
// timestamp instead of creating a duplicate row.
func (s *DismissalService) Dismiss(ctx context.Context, dismisserID, dismissedID uint) error {
	return s.dismiss(s.db.WithContext(ctx), dismisserID, dismissedID)
}

func (s *DismissalService) dismiss(tx *gorm.DB, dismisserID, dismissedID uint) error {
	dismissal := models.RecommendationDismissal{
		DismisserID: dismisserID,
		DismissedID: dismissedID,
		DismissedAt: time.Now(),
	}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dismisser_id"}, {Name: "dismissed_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"dismissed_at": dismissal.DismissedAt}),
	}).Create(&dismissal).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// RecentlyDismissedIDs returns the users dismissed by userID whose dismissal
// timestamp falls inside the window.
func (s *DismissalService) RecentlyDismissedIDs(ctx context.Context, userID uint) ([]uint, error) {
	cutoff := time.Now().Add(-s.window)

	var ids []uint
	err := s.db.WithContext(ctx).
		Model(&models.RecommendationDismissal{}).
		Where("dismisser_id = ? AND dismissed_at > ?", userID, cutoff).
		Pluck("dismissed_id", &ids).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}
