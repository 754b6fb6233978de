package services

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"matchme-server/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	maxRecommendations = 10
	// Candidates scoring at or below this never appear in results.
	scoreThreshold = 5
)

// RecommendationService produces ranked candidate user IDs for a user,
// filtering out everyone they are already connected to, everyone who has a
// pending request to them, and everyone they recently dismissed.
type RecommendationService struct {
	db          *gorm.DB
	connections *ConnectionService
	dismissals  *DismissalService
	log         *logrus.Entry
}

func NewRecommendationService(db *gorm.DB, connections *ConnectionService, dismissals *DismissalService) *RecommendationService {
	return &RecommendationService{
		db:          db,
		connections: connections,
		dismissals:  dismissals,
		log:         logrus.WithField("component", "recommendations"),
	}
}

type scoredCandidate struct {
	userID uint
	score  float64
}

// GetRecommendations returns up to 10 candidate user IDs ordered by descending
// compatibility score. Users with an incomplete profile, no profile, or no
// location get an empty result.
func (s *RecommendationService) GetRecommendations(ctx context.Context, userID uint) ([]uint, error) {
	db := s.db.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("user", userID)
		}
		return nil, models.NewInternalError(err)
	}
	if !user.ProfileCompleted {
		return []uint{}, nil
	}

	var profile models.Profile
	if err := db.Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []uint{}, nil
		}
		return nil, models.NewInternalError(err)
	}
	if strings.TrimSpace(profile.Location) == "" {
		return []uint{}, nil
	}

	excluded, err := s.exclusionSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Single batch fetch of candidates in the same town; the non-empty first
	// name is a coarse completeness filter, not the full invariant.
	var candidates []models.Profile
	err = db.Where("location = ? AND first_name <> '' AND user_id NOT IN ?", profile.Location, excluded).
		Find(&candidates).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	scored := make([]scoredCandidate, 0, len(candidates))
	for i := range candidates {
		score := calculateScore(&profile, &candidates[i])
		if score > scoreThreshold {
			scored = append(scored, scoredCandidate{userID: candidates[i].UserID, score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxRecommendations {
		scored = scored[:maxRecommendations]
	}

	results := make([]uint, len(scored))
	for i, c := range scored {
		results[i] = c.userID
	}

	s.log.WithFields(logrus.Fields{"user_id": userID, "candidates": len(candidates), "results": len(results)}).
		Debug("Recommendations computed")
	return results, nil
}

// DismissUser records that userID is not interested in targetID. Idempotent;
// an existing dismissal gets its timestamp refreshed.
func (s *RecommendationService) DismissUser(ctx context.Context, userID, targetID uint) error {
	return s.dismissals.Dismiss(ctx, userID, targetID)
}

func (s *RecommendationService) exclusionSet(ctx context.Context, userID uint) ([]uint, error) {
	excluded := []uint{userID}

	peers, err := s.connections.AcceptedPeerIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	excluded = append(excluded, peers...)

	pending, err := s.connections.ListPending(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, c := range pending {
		excluded = append(excluded, c.RequesterID)
	}

	dismissed, err := s.dismissals.RecentlyDismissedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	excluded = append(excluded, dismissed...)

	return excluded, nil
}

func calculateScore(p1, p2 *models.Profile) float64 {
	var score float64

	score += float64(listOverlap(p1.Interests, p2.Interests)) * 10
	score += float64(listOverlap(p1.Hobbies, p2.Hobbies)) * 10

	if fieldMatches(p1.MusicTaste, p2.MusicTaste) {
		score += 5
	}
	if fieldMatches(p1.FoodPreference, p2.FoodPreference) {
		score += 5
	}
	if fieldMatches(p1.TravelPreference, p2.TravelPreference) {
		score += 5
	}

	if p1.Latitude != nil && p1.Longitude != nil && p2.Latitude != nil && p2.Longitude != nil {
		dist := distanceKm(*p1.Latitude, *p1.Longitude, *p2.Latitude, *p2.Longitude)
		if dist < 10 {
			score += 50
		} else if dist < 50 {
			score += 20
		}
	}

	return score
}

// listOverlap counts the distinct shared elements of two lists. Matching is
// case-sensitive and duplicates collapse.
func listOverlap(l1, l2 []string) int {
	if len(l1) == 0 || len(l2) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(l1))
	for _, v := range l1 {
		set[v] = struct{}{}
	}
	seen := make(map[string]struct{})
	for _, v := range l2 {
		if _, ok := set[v]; ok {
			seen[v] = struct{}{}
		}
	}
	return len(seen)
}

func fieldMatches(s1, s2 string) bool {
	return s1 != "" && s2 != "" && strings.EqualFold(s1, s2)
}

// distanceKm computes great-circle distance with the spherical law of
// cosines. The argument to Acos is clamped against rounding drift for
// near-identical coordinates.
func distanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	theta := lon1 - lon2
	dist := math.Sin(radians(lat1))*math.Sin(radians(lat2)) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*math.Cos(radians(theta))
	dist = math.Acos(math.Max(-1, math.Min(1, dist)))
	return degrees(dist) * 60 * 1.1515 * 1.609344
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
