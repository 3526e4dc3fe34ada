package hub

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/events"
)

func newTestPlayers() *PlayerRegistry {
	return NewPlayerRegistry(zap.NewNop(), testOptions())
}

func TestPlayerRegistry_ConnectDisconnectCancel(t *testing.T) {
	r := newTestPlayers()
	rng := rand.New(rand.NewSource(42))

	type key struct {
		lobby   int
		session string
	}
	model := map[key]bool{}

	for range 500 {
		k := key{lobby: rng.Intn(4), session: fmt.Sprintf("s%d", rng.Intn(6))}
		if rng.Intn(2) == 0 {
			r.Connect(k.lobby, k.session, newFakeSink())
			model[k] = true
		} else {
			r.Disconnect(k.lobby, k.session)
			delete(model, k)
		}
	}

	lobbies := map[int]int{}
	for k := range model {
		assert.True(t, r.Connected(k.lobby, k.session), "missing %v", k)
		lobbies[k.lobby]++
	}
	for lobby := range 4 {
		assert.Equal(t, lobbies[lobby], r.LobbySize(lobby), "lobby %d", lobby)
	}
	assert.Equal(t, len(lobbies), r.LobbyCount())
}

func TestPlayerRegistry_EmptyLobbyIsRemoved(t *testing.T) {
	r := newTestPlayers()
	r.Connect(1, "a", newFakeSink())
	r.Connect(1, "b", newFakeSink())
	require.Equal(t, 1, r.LobbyCount())

	r.Disconnect(1, "a")
	assert.Equal(t, 1, r.LobbySize(1))

	r.Disconnect(1, "b")
	assert.Equal(t, 0, r.LobbyCount())

	// idempotent
	r.Disconnect(1, "b")
	r.Disconnect(99, "nobody")
	assert.Equal(t, 0, r.LobbyCount())
}

func TestPlayerRegistry_ReconnectReplacesAndClosesStale(t *testing.T) {
	r := newTestPlayers()
	first, second := newFakeSink(), newFakeSink()

	r.Connect(5, "s1", first)
	r.Connect(5, "s1", second)
	assert.Equal(t, 1, r.LobbySize(5))

	require.Eventually(t, first.closed, time.Second, 5*time.Millisecond)
	assert.False(t, second.closed())

	// the stale connection's handler exits and must not evict its successor
	assert.False(t, r.Release(5, "s1", first))
	assert.True(t, r.Connected(5, "s1"))

	r.Broadcast(context.Background(), 5, events.PlayerJoined{LobbyID: 5, PlayerSessionID: "s2"})
	recvEvent(t, second, time.Second)
	recvNothing(t, first, 50*time.Millisecond)

	assert.True(t, r.Release(5, "s1", second))
	assert.Equal(t, 0, r.LobbyCount())
}

func TestPlayerRegistry_BroadcastEmptyLobbyIsNoop(t *testing.T) {
	r := newTestPlayers()
	assert.NotPanics(t, func() {
		r.Broadcast(context.Background(), 404, events.PlayerJoined{LobbyID: 404, PlayerSessionID: "x"})
	})
	assert.Equal(t, 0, r.LobbyCount())
}

func TestPlayerRegistry_BroadcastIsolatesFailures(t *testing.T) {
	r := newTestPlayers()
	a, b, c := failingSink(), newFakeSink(), newFakeSink()
	r.Connect(3, "a", a)
	r.Connect(3, "b", b)
	r.Connect(3, "c", c)

	ev := events.PlayerJoined{LobbyID: 3, PlayerSessionID: "d"}
	r.Broadcast(context.Background(), 3, ev)

	assert.Equal(t, ev, recvEvent(t, b, time.Second))
	assert.Equal(t, ev, recvEvent(t, c, time.Second))

	// a failed send does not unregister the recipient
	assert.True(t, r.Connected(3, "a"))
}

func TestPlayerRegistry_SlowRecipientDoesNotDelayOthers(t *testing.T) {
	r := NewPlayerRegistry(zap.NewNop(), Options{WriteTimeout: 2 * time.Second, FanoutLimit: 4})
	slow, fast := blockingSink(), newFakeSink()
	r.Connect(8, "slow", slow)
	r.Connect(8, "fast", fast)

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.Broadcast(context.Background(), 8, events.PlayerJoined{LobbyID: 8, PlayerSessionID: "n"})
	}()

	recvEvent(t, fast, 500*time.Millisecond)

	// registry reads stay available while the slow send is pending
	assert.Equal(t, 2, r.LobbySize(8))
	<-done
}

func TestPlayerRegistry_SendTo(t *testing.T) {
	r := newTestPlayers()
	target, other := newFakeSink(), newFakeSink()
	r.Connect(2, "t", target)
	r.Connect(2, "o", other)

	ev := events.TeamAssigned{LobbyID: 2, PlayerSessionID: "t"}
	r.SendTo(context.Background(), 2, "t", ev)
	assert.Equal(t, ev, recvEvent(t, target, time.Second))
	recvNothing(t, other, 50*time.Millisecond)

	// unknown recipient and unserializable event are silent no-ops
	r.SendTo(context.Background(), 2, "ghost", ev)
	r.SendTo(context.Background(), 2, "t", nil)
	recvNothing(t, target, 50*time.Millisecond)
}

func TestPlayerRegistry_Kick(t *testing.T) {
	r := newTestPlayers()
	target, p1, p2 := newFakeSink(), newFakeSink(), newFakeSink()
	r.Connect(4, "target", target)
	r.Connect(4, "p1", p1)
	r.Connect(4, "p2", p2)

	r.Kick(context.Background(), 4, "target")

	want := events.PlayerKicked{LobbyID: 4, PlayerSessionID: "target"}
	assert.Equal(t, want, recvEvent(t, target, time.Second))
	recvNothing(t, target, 50*time.Millisecond)
	assert.True(t, target.closed())
	assert.Equal(t, "kicked from lobby", target.closeReason())
	assert.False(t, r.Connected(4, "target"))

	for _, s := range []*fakeSink{p1, p2} {
		assert.Equal(t, want, recvEvent(t, s, time.Second))
		recvNothing(t, s, 20*time.Millisecond)
	}
}

func TestPlayerRegistry_KickAbsentStillNotifiesLobby(t *testing.T) {
	r := newTestPlayers()
	p := newFakeSink()
	r.Connect(6, "p", p)

	r.Kick(context.Background(), 6, "already-gone")

	assert.Equal(t, events.PlayerKicked{LobbyID: 6, PlayerSessionID: "already-gone"}, recvEvent(t, p, time.Second))
	assert.Equal(t, 1, r.LobbySize(6))
}

func TestPlayerRegistry_CloseLobby(t *testing.T) {
	r := newTestPlayers()
	a, b, other := newFakeSink(), newFakeSink(), newFakeSink()
	r.Connect(1, "a", a)
	r.Connect(1, "b", b)
	r.Connect(2, "other", other)

	assert.Equal(t, 2, r.CloseLobby(1, "lobby deleted"))
	assert.True(t, a.closed())
	assert.True(t, b.closed())
	assert.False(t, other.closed())
	assert.Equal(t, 0, r.LobbySize(1))
	assert.Equal(t, 0, r.CloseLobby(1, "again"))
}

func TestPlayerRegistry_ConcurrentLifecycle(t *testing.T) {
	r := newTestPlayers()
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lobby := i % 5
			id := fmt.Sprintf("s%d", i)
			sink := newFakeSink()
			r.Connect(lobby, id, sink)
			r.Broadcast(context.Background(), lobby, events.PlayerJoined{LobbyID: lobby, PlayerSessionID: id})
			r.SendTo(context.Background(), lobby, id, events.TeamAssigned{LobbyID: lobby, PlayerSessionID: id})
			r.Release(lobby, id, sink)
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.LobbyCount())
}
