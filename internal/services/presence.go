package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"matchme-server/internal/redis"

	"github.com/sirupsen/logrus"
)

const presenceOnlineSetKey = "presence:online"

// Pusher delivers a JSON-serializable payload to every live session of a
// user. Delivery is fire-and-forget: no acknowledgment, no retry.
type Pusher interface {
	PushToUser(userID uint, payload interface{})
}

// PresencePayload is the status-change event fanned out to connected peers.
type PresencePayload struct {
	Type     string `json:"type"`
	UserID   uint   `json:"user_id"`
	IsOnline bool   `json:"is_online"`
}

// PresenceService tracks a process-local online flag per user. Disconnects
// flip to offline only after a grace period so page reloads and brief network
// blips do not flap presence to peers. At most one offline timer is
// outstanding per user; a second disconnect replaces it.
type PresenceService struct {
	mu     sync.Mutex
	online map[uint]struct{}
	timers map[uint]*time.Timer

	grace       time.Duration
	connections *ConnectionService
	pusher      Pusher
	rdb         *redis.Client // optional mirror, may be nil
	log         *logrus.Entry
}

func NewPresenceService(connections *ConnectionService, pusher Pusher, rdb *redis.Client, grace time.Duration) *PresenceService {
	return &PresenceService{
		online:      make(map[uint]struct{}),
		timers:      make(map[uint]*time.Timer),
		grace:       grace,
		connections: connections,
		pusher:      pusher,
		rdb:         rdb,
		log:         logrus.WithField("component", "presence"),
	}
}

// UserConnected cancels any scheduled offline transition and, if the user was
// not already online, marks them online and notifies their connected peers.
func (s *PresenceService) UserConnected(userID uint) {
	s.mu.Lock()
	if t, ok := s.timers[userID]; ok {
		t.Stop()
		delete(s.timers, userID)
	}
	_, wasOnline := s.online[userID]
	s.online[userID] = struct{}{}
	s.mu.Unlock()

	if wasOnline {
		return
	}

	s.mirror(userID, true)
	s.broadcastStatus(userID, true)
}

// UserDisconnected schedules the offline transition after the grace period.
// A reconnect before the timer fires cancels it and no offline broadcast
// happens.
func (s *PresenceService) UserDisconnected(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[userID]; ok {
		t.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(s.grace, func() {
		s.fireOffline(userID, timer)
	})
	s.timers[userID] = timer
}

// IsOnline reports whether the user is currently marked online.
func (s *PresenceService) IsOnline(userID uint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.online[userID]
	return ok
}

// fireOffline runs when a grace timer elapses. The timer identity check makes
// a cancel-then-fire race a no-op instead of a duplicate broadcast.
func (s *PresenceService) fireOffline(userID uint, timer *time.Timer) {
	s.mu.Lock()
	current, ok := s.timers[userID]
	if !ok || current != timer {
		s.mu.Unlock()
		return
	}
	delete(s.timers, userID)
	if _, wasOnline := s.online[userID]; !wasOnline {
		s.mu.Unlock()
		return
	}
	delete(s.online, userID)
	s.mu.Unlock()

	s.mirror(userID, false)
	// Peers are recomputed at fire time; they may have changed since the
	// disconnect was scheduled.
	s.broadcastStatus(userID, false)
}

func (s *PresenceService) broadcastStatus(userID uint, isOnline bool) {
	peers, err := s.connections.AcceptedPeerIDs(context.Background(), userID)
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Failed to resolve presence fan-out set")
		return
	}

	payload := PresencePayload{Type: "presence", UserID: userID, IsOnline: isOnline}
	for _, peer := range peers {
		s.pusher.PushToUser(peer, payload)
	}
}

func (s *PresenceService) mirror(userID uint, online bool) {
	if s.rdb == nil {
		return
	}
	ctx := context.Background()
	member := strconv.FormatUint(uint64(userID), 10)
	var err error
	if online {
		err = s.rdb.SAdd(ctx, presenceOnlineSetKey, member)
	} else {
		err = s.rdb.SRem(ctx, presenceOnlineSetKey, member)
	}
	if err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Failed to mirror presence to Redis")
	}
}
