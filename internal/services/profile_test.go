package services_test

import (
	"context"
	"testing"

	"matchme-server/internal/models"
	"matchme-server/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func strPtr(s string) *string { return &s }

func setupProfiles(t *testing.T) (*gorm.DB, *services.ProfileService) {
	t.Helper()

	db := setupDB(t)
	return db, services.NewProfileService(db)
}

func TestProfileUpdateCreatesLazily(t *testing.T) {
	db, profiles := setupProfiles(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	_, err := profiles.Get(ctx, alice.ID)
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	profile, err := profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		FirstName: strPtr("Alice"),
		Bio:       strPtr("hello"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.FirstName)

	stored, err := profiles.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", stored.Bio)
}

func TestProfileUpdatePartialMerge(t *testing.T) {
	db, profiles := setupProfiles(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	_, err := profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		FirstName: strPtr("Alice"),
		Location:  strPtr("Tallinn"),
		Interests: []string{"reading"},
	})
	require.NoError(t, err)

	// Omitted fields survive; provided fields overwrite.
	profile, err := profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		Bio: strPtr("updated"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", profile.FirstName)
	assert.Equal(t, "Tallinn", profile.Location)
	assert.Equal(t, []string{"reading"}, profile.Interests)
	assert.Equal(t, "updated", profile.Bio)

	// An explicit empty string clears.
	profile, err = profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		Location: strPtr(""),
	})
	require.NoError(t, err)
	assert.Empty(t, profile.Location)
	assert.Equal(t, "Alice", profile.FirstName)
}

func TestProfileUpdateRecomputesCompleted(t *testing.T) {
	db, profiles := setupProfiles(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")
	alice.ProfileCompleted = false
	require.NoError(t, db.Save(alice).Error)

	_, err := profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		FirstName: strPtr("Alice"),
	})
	require.NoError(t, err)

	var user models.User
	require.NoError(t, db.First(&user, alice.ID).Error)
	assert.False(t, user.ProfileCompleted)

	_, err = profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		LookingFor:       strPtr("friendship"),
		Interests:        []string{"reading"},
		Hobbies:          []string{"running"},
		MusicTaste:       strPtr("rock"),
		FoodPreference:   strPtr("italian"),
		TravelPreference: strPtr("beach"),
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&user, alice.ID).Error)
	assert.True(t, user.ProfileCompleted)

	// Clearing a required field flips the flag back off.
	_, err = profiles.Update(ctx, alice.ID, services.ProfileUpdate{
		MusicTaste: strPtr(""),
	})
	require.NoError(t, err)

	require.NoError(t, db.First(&user, alice.ID).Error)
	assert.False(t, user.ProfileCompleted)
}

func TestProfileUpdateUnknownUser(t *testing.T) {
	_, profiles := setupProfiles(t)

	_, err := profiles.Update(context.Background(), 9999, services.ProfileUpdate{
		FirstName: strPtr("Ghost"),
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPictureURLLifecycle(t *testing.T) {
	db, profiles := setupProfiles(t)
	ctx := context.Background()

	alice := createUser(t, db, "alice")

	// Upload before any profile write creates the row.
	require.NoError(t, profiles.SetPictureURL(ctx, alice.ID, "https://cdn.test/p.jpg"))

	profile, err := profiles.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.test/p.jpg", profile.PictureURL)

	require.NoError(t, profiles.ClearPictureURL(ctx, alice.ID))

	// The row survives with the URL cleared.
	profile, err = profiles.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, profile.PictureURL)
}

func TestIsComplete(t *testing.T) {
	profile := completeProfile(1, "Tallinn")
	assert.True(t, profile.IsComplete())

	incomplete := completeProfile(1, "Tallinn")
	incomplete.Hobbies = nil
	assert.False(t, incomplete.IsComplete())

	incomplete = completeProfile(1, "Tallinn")
	incomplete.FirstName = "   "
	assert.False(t, incomplete.IsComplete())

	// Location is not part of completeness; it only gates recommendations.
	profile = completeProfile(1, "")
	assert.True(t, profile.IsComplete())
}
