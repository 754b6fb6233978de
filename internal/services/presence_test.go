package services_test

import (
	"context"
	"testing"
	"time"

	"matchme-server/internal/redis"
	"matchme-server/internal/services"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testGrace = 50 * time.Millisecond

func setupPresence(t *testing.T, rdb *redis.Client) (*gorm.DB, *services.PresenceService, *services.ConnectionService, *fakePusher) {
	t.Helper()

	db := setupDB(t)
	dismissals := services.NewDismissalService(db, 7*24*time.Hour)
	connections := services.NewConnectionService(db, dismissals)
	pusher := newFakePusher()
	presence := services.NewPresenceService(connections, pusher, rdb, testGrace)
	return db, presence, connections, pusher
}

func connectPair(t *testing.T, connections *services.ConnectionService, requesterID, receiverID uint) {
	t.Helper()

	conn, err := connections.SendRequest(context.Background(), requesterID, receiverID)
	require.NoError(t, err)
	_, err = connections.AcceptRequest(context.Background(), conn.ID, receiverID)
	require.NoError(t, err)
}

func TestPresenceOnlineBroadcastToPeersOnly(t *testing.T) {
	db, presence, connections, pusher := setupPresence(t, nil)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	carol := createUser(t, db, "carol")
	connectPair(t, connections, alice.ID, bob.ID)

	presence.UserConnected(alice.ID)

	assert.True(t, presence.IsOnline(alice.ID))
	require.Equal(t, 1, pusher.count(bob.ID))
	payload, ok := pusher.sentTo(bob.ID)[0].(services.PresencePayload)
	require.True(t, ok)
	assert.Equal(t, "presence", payload.Type)
	assert.Equal(t, alice.ID, payload.UserID)
	assert.True(t, payload.IsOnline)

	assert.Zero(t, pusher.count(carol.ID))
}

func TestPresenceSecondSessionNoDuplicateBroadcast(t *testing.T) {
	db, presence, connections, pusher := setupPresence(t, nil)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)

	presence.UserConnected(alice.ID)
	presence.UserConnected(alice.ID)

	assert.Equal(t, 1, pusher.count(bob.ID))
}

func TestPresenceOfflineAfterGrace(t *testing.T) {
	db, presence, connections, pusher := setupPresence(t, nil)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)

	presence.UserConnected(alice.ID)
	presence.UserDisconnected(alice.ID)

	// Still online through the grace period.
	assert.True(t, presence.IsOnline(alice.ID))

	require.Eventually(t, func() bool {
		return !presence.IsOnline(alice.ID)
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		return pusher.count(bob.ID) == 2
	}, time.Second, 5*time.Millisecond)

	payload, ok := pusher.sentTo(bob.ID)[1].(services.PresencePayload)
	require.True(t, ok)
	assert.Equal(t, alice.ID, payload.UserID)
	assert.False(t, payload.IsOnline)
}

func TestPresenceReconnectWithinGraceSuppressesOffline(t *testing.T) {
	db, presence, connections, pusher := setupPresence(t, nil)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)

	presence.UserConnected(alice.ID)
	presence.UserDisconnected(alice.ID)
	presence.UserConnected(alice.ID)

	// Wait out the original grace period; the cancelled timer must not fire.
	time.Sleep(3 * testGrace)

	assert.True(t, presence.IsOnline(alice.ID))
	// Only the initial online broadcast; no offline, no second online.
	assert.Equal(t, 1, pusher.count(bob.ID))
}

func TestPresenceRepeatedDisconnectSingleOfflineBroadcast(t *testing.T) {
	db, presence, connections, pusher := setupPresence(t, nil)

	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	connectPair(t, connections, alice.ID, bob.ID)

	presence.UserConnected(alice.ID)
	presence.UserDisconnected(alice.ID)
	presence.UserDisconnected(alice.ID)
	presence.UserDisconnected(alice.ID)

	require.Eventually(t, func() bool {
		return !presence.IsOnline(alice.ID)
	}, time.Second, 5*time.Millisecond)
	time.Sleep(2 * testGrace)

	assert.Equal(t, 2, pusher.count(bob.ID))
}

func TestPresenceRedisMirror(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewFromClient(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { rdb.Close() })

	db, presence, _, _ := setupPresence(t, rdb)
	alice := createUser(t, db, "alice")

	presence.UserConnected(alice.ID)
	online, err := rdb.SIsMember(context.Background(), "presence:online", "1")
	require.NoError(t, err)
	assert.True(t, online)

	presence.UserDisconnected(alice.ID)
	require.Eventually(t, func() bool {
		online, err := rdb.SIsMember(context.Background(), "presence:online", "1")
		return err == nil && !online
	}, time.Second, 5*time.Millisecond)
}
