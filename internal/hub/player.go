package hub

import (
	"context"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/events"
)

// PlayerRegistry tracks player sockets per lobby: lobby id -> session id -> peer.
// A lobby bucket exists only while it holds at least one connection.
type PlayerRegistry struct {
	mu      sync.RWMutex
	lobbies map[int]map[string]*peer
	opts    Options
	log     *zap.Logger
}

func NewPlayerRegistry(log *zap.Logger, opts Options) *PlayerRegistry {
	return &PlayerRegistry{
		lobbies: make(map[int]map[string]*peer),
		opts:    opts.withDefaults(),
		log:     log,
	}
}

// Connect registers sink for (lobbyID, sessionID), replacing any previous
// connection for that key. The replaced sink is closed in the background.
func (r *PlayerRegistry) Connect(lobbyID int, sessionID string, sink Sink) {
	r.mu.Lock()
	bucket := r.lobbies[lobbyID]
	if bucket == nil {
		bucket = make(map[string]*peer)
		r.lobbies[lobbyID] = bucket
	}
	old := bucket[sessionID]
	bucket[sessionID] = newPeer(sink)
	size := len(bucket)
	r.mu.Unlock()

	r.log.Info("player connected",
		zap.Int("lobby_id", lobbyID),
		zap.String("player_session_id", sessionID),
		zap.Int("lobby_size", size))

	if old != nil && old.sink != sink {
		closeStale(r.log, old, zap.Int("lobby_id", lobbyID), zap.String("player_session_id", sessionID))
	}
}

// Disconnect removes the entry for (lobbyID, sessionID) if present.
func (r *PlayerRegistry) Disconnect(lobbyID int, sessionID string) {
	r.remove(lobbyID, sessionID, nil)
}

// Release removes (lobbyID, sessionID) only while it still holds sink, so a
// connection that was replaced cannot evict its successor on exit.
func (r *PlayerRegistry) Release(lobbyID int, sessionID string, sink Sink) bool {
	return r.remove(lobbyID, sessionID, sink) != nil
}

func (r *PlayerRegistry) remove(lobbyID int, sessionID string, sink Sink) *peer {
	r.mu.Lock()
	bucket, ok := r.lobbies[lobbyID]
	if !ok {
		r.mu.Unlock()
		return nil
	}
	p, ok := bucket[sessionID]
	if !ok || (sink != nil && p.sink != sink) {
		r.mu.Unlock()
		return nil
	}
	delete(bucket, sessionID)
	remaining := len(bucket)
	if remaining == 0 {
		delete(r.lobbies, lobbyID)
	}
	r.mu.Unlock()

	r.log.Info("player disconnected",
		zap.Int("lobby_id", lobbyID),
		zap.String("player_session_id", sessionID),
		zap.Int("remaining", remaining))
	return p
}

func (r *PlayerRegistry) lookup(lobbyID int, sessionID string) *peer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lobbies[lobbyID][sessionID]
}

// snapshot copies the recipients of lobbyID so sends happen without the registry lock.
func (r *PlayerRegistry) snapshot(lobbyID int) []target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.lobbies[lobbyID]
	targets := make([]target, 0, len(bucket))
	for id, p := range bucket {
		targets = append(targets, target{id: id, p: p})
	}
	return targets
}

// SendTo delivers ev to one player. Unknown recipients and failures are logged, never returned.
func (r *PlayerRegistry) SendTo(ctx context.Context, lobbyID int, sessionID string, ev events.Event) {
	payload, err := events.Encode(ev)
	if err != nil {
		r.log.Error("failed to serialize event", zap.Error(err))
		return
	}
	r.sendPayload(ctx, lobbyID, sessionID, payload)
}

func (r *PlayerRegistry) sendPayload(ctx context.Context, lobbyID int, sessionID string, payload []byte) {
	p := r.lookup(lobbyID, sessionID)
	if p == nil {
		r.log.Debug("send to absent player",
			zap.Int("lobby_id", lobbyID),
			zap.String("player_session_id", sessionID))
		return
	}
	if err := p.send(ctx, r.opts.WriteTimeout, payload); err != nil {
		r.log.Error("failed to send to player",
			zap.Int("lobby_id", lobbyID),
			zap.String("player_session_id", sessionID),
			zap.Error(err))
	}
}

// Broadcast delivers ev to every player currently connected to lobbyID.
func (r *PlayerRegistry) Broadcast(ctx context.Context, lobbyID int, ev events.Event) {
	payload, err := events.Encode(ev)
	if err != nil {
		r.log.Error("failed to serialize event", zap.Error(err))
		return
	}
	r.broadcastPayload(ctx, lobbyID, payload)
}

func (r *PlayerRegistry) broadcastPayload(ctx context.Context, lobbyID int, payload []byte) {
	targets := r.snapshot(lobbyID)
	r.log.Debug("broadcasting to players",
		zap.Int("lobby_id", lobbyID),
		zap.Int("recipients", len(targets)))
	r.opts.deliver(ctx, r.log, lobbyID, targets, payload)
}

// Kick notifies the player, closes and removes its connection, then tells the
// rest of the lobby. The kicked player is not a recipient of that final broadcast.
func (r *PlayerRegistry) Kick(ctx context.Context, lobbyID int, sessionID string) {
	r.kick(ctx, lobbyID, sessionID)
}

// kick returns the serialized kick event so callers can forward it elsewhere.
func (r *PlayerRegistry) kick(ctx context.Context, lobbyID int, sessionID string) []byte {
	r.log.Info("kicking player",
		zap.Int("lobby_id", lobbyID),
		zap.String("player_session_id", sessionID))

	payload, err := events.Encode(events.PlayerKicked{LobbyID: lobbyID, PlayerSessionID: sessionID})
	if err != nil {
		r.log.Error("failed to serialize event", zap.Error(err))
		return nil
	}

	if p := r.lookup(lobbyID, sessionID); p != nil {
		if err := p.send(ctx, r.opts.WriteTimeout, payload); err != nil {
			r.log.Error("failed to send kick to player",
				zap.Int("lobby_id", lobbyID),
				zap.String("player_session_id", sessionID),
				zap.Error(err))
		}
		if r.remove(lobbyID, sessionID, p.sink) != nil {
			_ = p.sink.Close("kicked from lobby")
			r.log.Info("player removed after kick",
				zap.Int("lobby_id", lobbyID),
				zap.String("player_session_id", sessionID))
		}
	}

	r.broadcastPayload(ctx, lobbyID, payload)
	return payload
}

// CloseLobby closes and forgets every player connection of lobbyID.
func (r *PlayerRegistry) CloseLobby(lobbyID int, reason string) int {
	r.mu.Lock()
	bucket := r.lobbies[lobbyID]
	delete(r.lobbies, lobbyID)
	r.mu.Unlock()

	if len(bucket) == 0 {
		return 0
	}
	if err := closePeers(slices.Collect(maps.Values(bucket)), reason); err != nil {
		r.log.Debug("closing lobby connections", zap.Int("lobby_id", lobbyID), zap.Error(err))
	}
	r.log.Info("lobby connections closed", zap.Int("lobby_id", lobbyID), zap.Int("closed", len(bucket)))
	return len(bucket)
}

// CloseAll closes every player connection. Used on shutdown.
func (r *PlayerRegistry) CloseAll(reason string) error {
	r.mu.Lock()
	lobbies := r.lobbies
	r.lobbies = make(map[int]map[string]*peer)
	r.mu.Unlock()

	var peers []*peer
	for _, bucket := range lobbies {
		for _, p := range bucket {
			peers = append(peers, p)
		}
	}
	return closePeers(peers, reason)
}

func (r *PlayerRegistry) LobbySize(lobbyID int) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies[lobbyID])
}

func (r *PlayerRegistry) Connected(lobbyID int, sessionID string) bool {
	return r.lookup(lobbyID, sessionID) != nil
}

// LobbyCount is the number of lobbies with at least one live connection.
func (r *PlayerRegistry) LobbyCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.lobbies)
}

// Sessions lists the connected session ids of lobbyID in sorted order.
func (r *PlayerRegistry) Sessions(lobbyID int) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.lobbies[lobbyID]))
}
