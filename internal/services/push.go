package services

import (
	"context"
	"errors"
	"fmt"

	"matchme-server/internal/config"
	"matchme-server/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

// PushService delivers mobile push notifications through FCM to users with no
// live websocket session. Best-effort only; failures never affect persisted
// state.
type PushService struct {
	db     *gorm.DB
	client *messaging.Client
	log    *logrus.Entry
}

// NewPushService returns nil without error when Firebase is not configured;
// callers treat a nil service as push disabled.
func NewPushService(ctx context.Context, cfg *config.Config, db *gorm.DB) (*PushService, error) {
	if cfg.FirebaseProjectID == "" {
		return nil, nil
	}

	app, err := firebase.NewApp(ctx,
		&firebase.Config{ProjectID: cfg.FirebaseProjectID},
		option.WithCredentialsFile(cfg.FirebasePrivateKeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create FCM client: %w", err)
	}

	return &PushService{
		db:     db,
		client: client,
		log:    logrus.WithField("component", "push"),
	}, nil
}

// NotifyNewMessage sends a new-message notification to the user's registered
// device, if any.
func (s *PushService) NotifyNewMessage(ctx context.Context, userID uint, preview string) error {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("user", userID)
		}
		return models.NewInternalError(err)
	}
	if user.DeviceToken == "" {
		return nil
	}

	_, err := s.client.Send(ctx, &messaging.Message{
		Token: user.DeviceToken,
		Notification: &messaging.Notification{
			Title: "New message",
			Body:  preview,
		},
	})
	if err != nil {
		return fmt.Errorf("fcm send failed: %w", err)
	}
	return nil
}

// RegisterDeviceToken stores the FCM token for a user's device.
func (s *PushService) RegisterDeviceToken(ctx context.Context, userID uint, token string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("device_token", token)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("user", userID)
	}
	return nil
}
