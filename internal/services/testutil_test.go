package services_test

import (
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"matchme-server/internal/database"
	"matchme-server/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func init() {
	logrus.SetOutput(io.Discard)
}

// setupDB spins up an in-memory SQLite database with the full schema. Each
// test gets its own isolated database keyed by the test name.
func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username:         username,
		Email:            username + "@test.com",
		PasswordHash:     "x",
		Enabled:          true,
		ProfileCompleted: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createProfile(t *testing.T, db *gorm.DB, profile models.Profile) {
	t.Helper()
	require.NoError(t, db.Create(&profile).Error)
}

// completeProfile returns a profile passing the completeness check, located
// in the given town. Callers tweak individual fields before inserting.
func completeProfile(userID uint, location string) models.Profile {
	return models.Profile{
		UserID:           userID,
		FirstName:        "Test",
		LookingFor:       "friendship",
		Interests:        []string{"reading"},
		Hobbies:          []string{"running"},
		MusicTaste:       "rock",
		FoodPreference:   "italian",
		TravelPreference: "beach",
		Location:         location,
	}
}

// fakePusher records every payload pushed per user. Safe for use from the
// presence timer goroutines.
type fakePusher struct {
	mu       sync.Mutex
	payloads map[uint][]interface{}
}

func newFakePusher() *fakePusher {
	return &fakePusher{payloads: make(map[uint][]interface{})}
}

func (f *fakePusher) PushToUser(userID uint, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads[userID] = append(f.payloads[userID], payload)
}

func (f *fakePusher) sentTo(userID uint) []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]interface{}, len(f.payloads[userID]))
	copy(out, f.payloads[userID])
	return out
}

func (f *fakePusher) count(userID uint) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads[userID])
}
