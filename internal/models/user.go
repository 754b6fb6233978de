package models

import (
	"strings"
	"time"
)

type User struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Username         string    `json:"username" gorm:"uniqueIndex;not null"`
	Email            string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash     string    `json:"-" gorm:"not null"`
	Enabled          bool      `json:"enabled" gorm:"default:true"`
	ProfileCompleted bool      `json:"profile_completed" gorm:"default:false"`
	DeviceToken      string    `json:"-"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Profile struct {
	ID               uint     `json:"id" gorm:"primaryKey"`
	UserID           uint     `json:"user_id" gorm:"uniqueIndex;not null"`
	FirstName        string   `json:"first_name"`
	LastName         string   `json:"last_name"`
	Bio              string   `json:"bio"`
	Gender           string   `json:"gender"`
	LookingFor       string   `json:"looking_for"`
	Interests        []string `json:"interests" gorm:"serializer:json"`
	Hobbies          []string `json:"hobbies" gorm:"serializer:json"`
	MusicTaste       string   `json:"music_taste"`
	FoodPreference   string   `json:"food_preference"`
	TravelPreference string   `json:"travel_preference"`
	Location         string   `json:"location"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	PictureURL       string   `json:"picture_url"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `json:"-" gorm:"foreignKey:UserID"`
}

// IsComplete reports whether the profile carries every field required before
// the user can receive recommendations.
func (p *Profile) IsComplete() bool {
	return strings.TrimSpace(p.FirstName) != "" &&
		strings.TrimSpace(p.LookingFor) != "" &&
		len(p.Interests) > 0 &&
		len(p.Hobbies) > 0 &&
		strings.TrimSpace(p.MusicTaste) != "" &&
		strings.TrimSpace(p.FoodPreference) != "" &&
		strings.TrimSpace(p.TravelPreference) != ""
}
