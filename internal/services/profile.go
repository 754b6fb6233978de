package services

import (
	"context"
	"errors"

	"matchme-server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProfileUpdate carries a partial profile write. Nil fields are left
// untouched; non-nil fields overwrite.
type ProfileUpdate struct {
	FirstName        *string  `json:"first_name"`
	LastName         *string  `json:"last_name"`
	Bio              *string  `json:"bio"`
	Gender           *string  `json:"gender"`
	LookingFor       *string  `json:"looking_for"`
	Interests        []string `json:"interests"`
	Hobbies          []string `json:"hobbies"`
	MusicTaste       *string  `json:"music_taste"`
	FoodPreference   *string  `json:"food_preference"`
	TravelPreference *string  `json:"travel_preference"`
	Location         *string  `json:"location"`
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
}

// ProfileService owns profile reads and partial-merge writes. The profile row
// is created lazily on first write and never deleted; the user's
// profile-completed flag is recomputed on every save.
type ProfileService struct {
	db  *gorm.DB
	log *logrus.Entry
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{db: db, log: logrus.WithField("component", "profiles")}
}

// Get returns the profile for userID.
func (s *ProfileService) Get(ctx context.Context, userID uint) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("profile for user", userID)
		}
		return nil, models.NewInternalError(err)
	}
	return &profile, nil
}

// Update merges the partial update into the user's profile, creating it if
// this is the first write, and rewrites the user's profile-completed flag.
func (s *ProfileService) Update(ctx context.Context, userID uint, update ProfileUpdate) (*models.Profile, error) {
	var profile models.Profile
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewInternalError(err)
			}
			profile = models.Profile{UserID: userID}
		}

		applyUpdate(&profile, update)

		if err := tx.Save(&profile).Error; err != nil {
			return models.NewInternalError(err)
		}

		res := tx.Model(&models.User{}).Where("id = ?", userID).
			Update("profile_completed", profile.IsComplete())
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewNotFoundError("user", userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetPictureURL stores the uploaded photo URL on the profile, creating the
// profile if needed.
func (s *ProfileService) SetPictureURL(ctx context.Context, userID uint, url string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var profile models.Profile
		if err := tx.Where("user_id = ?", userID).First(&profile).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewInternalError(err)
			}
			profile = models.Profile{UserID: userID}
		}
		profile.PictureURL = url
		if err := tx.Save(&profile).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
}

// ClearPictureURL removes the photo reference. The profile row itself is
// never deleted.
func (s *ProfileService) ClearPictureURL(ctx context.Context, userID uint) error {
	var profile models.Profile
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("profile for user", userID)
		}
		return models.NewInternalError(err)
	}

	if err := s.db.WithContext(ctx).Model(&profile).Update("picture_url", "").Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func applyUpdate(profile *models.Profile, update ProfileUpdate) {
	if update.FirstName != nil {
		profile.FirstName = *update.FirstName
	}
	if update.LastName != nil {
		profile.LastName = *update.LastName
	}
	if update.Bio != nil {
		profile.Bio = *update.Bio
	}
	if update.Gender != nil {
		profile.Gender = *update.Gender
	}
	if update.LookingFor != nil {
		profile.LookingFor = *update.LookingFor
	}
	if update.Interests != nil {
		profile.Interests = update.Interests
	}
	if update.Hobbies != nil {
		profile.Hobbies = update.Hobbies
	}
	if update.MusicTaste != nil {
		profile.MusicTaste = *update.MusicTaste
	}
	if update.FoodPreference != nil {
		profile.FoodPreference = *update.FoodPreference
	}
	if update.TravelPreference != nil {
		profile.TravelPreference = *update.TravelPreference
	}
	if update.Location != nil {
		profile.Location = *update.Location
	}
	if update.Latitude != nil {
		profile.Latitude = update.Latitude
	}
	if update.Longitude != nil {
		profile.Longitude = update.Longitude
	}
}
