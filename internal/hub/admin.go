package hub

import (
	"context"
	"maps"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/events"
)

type adminConn struct {
	peer    *peer
	lobbies map[int]struct{}
}

// AdminRegistry tracks admin dashboard sockets and the lobbies each one follows.
type AdminRegistry struct {
	mu    sync.RWMutex
	conns map[string]*adminConn
	opts  Options
	log   *zap.Logger
}

func NewAdminRegistry(log *zap.Logger, opts Options) *AdminRegistry {
	return &AdminRegistry{
		conns: make(map[string]*adminConn),
		opts:  opts.withDefaults(),
		log:   log,
	}
}

// Connect registers sink under webSessionID with no subscriptions.
func (r *AdminRegistry) Connect(webSessionID string, sink Sink) {
	r.mu.Lock()
	old := r.conns[webSessionID]
	r.conns[webSessionID] = &adminConn{peer: newPeer(sink), lobbies: make(map[int]struct{})}
	total := len(r.conns)
	r.mu.Unlock()

	r.log.Info("admin connected",
		zap.String("web_session_id", webSessionID),
		zap.Int("total_admins", total))

	if old != nil && old.peer.sink != sink {
		closeStale(r.log, old.peer, zap.String("web_session_id", webSessionID))
	}
}

func (r *AdminRegistry) Disconnect(webSessionID string) {
	r.remove(webSessionID, nil)
}

// Release removes webSessionID only while it still holds sink.
func (r *AdminRegistry) Release(webSessionID string, sink Sink) bool {
	return r.remove(webSessionID, sink)
}

func (r *AdminRegistry) remove(webSessionID string, sink Sink) bool {
	r.mu.Lock()
	conn, ok := r.conns[webSessionID]
	if !ok || (sink != nil && conn.peer.sink != sink) {
		r.mu.Unlock()
		return false
	}
	delete(r.conns, webSessionID)
	remaining := len(r.conns)
	r.mu.Unlock()

	r.log.Info("admin disconnected",
		zap.String("web_session_id", webSessionID),
		zap.Int("remaining_admins", remaining))
	return true
}

// Subscribe adds lobbyID to the admin's subscriptions. Unknown admins are ignored.
func (r *AdminRegistry) Subscribe(webSessionID string, lobbyID int) {
	r.mu.Lock()
	conn, ok := r.conns[webSessionID]
	added := false
	if ok {
		if _, exists := conn.lobbies[lobbyID]; !exists {
			conn.lobbies[lobbyID] = struct{}{}
			added = true
		}
	}
	r.mu.Unlock()

	if added {
		r.log.Info("admin subscribed",
			zap.String("web_session_id", webSessionID),
			zap.Int("lobby_id", lobbyID))
	}
}

func (r *AdminRegistry) Unsubscribe(webSessionID string, lobbyID int) {
	r.mu.Lock()
	conn, ok := r.conns[webSessionID]
	if ok {
		delete(conn.lobbies, lobbyID)
	}
	r.mu.Unlock()

	if ok {
		r.log.Info("admin unsubscribed",
			zap.String("web_session_id", webSessionID),
			zap.Int("lobby_id", lobbyID))
	}
}

// Dispatch applies a raw control message from an admin socket. Malformed or
// unknown messages are logged and dropped.
func (r *AdminRegistry) Dispatch(webSessionID string, data []byte) {
	msg, err := events.ParseControl(data)
	if err != nil {
		r.log.Warn("failed to parse admin message",
			zap.String("web_session_id", webSessionID),
			zap.Error(err))
		return
	}
	r.Apply(webSessionID, msg)
}

func (r *AdminRegistry) Apply(webSessionID string, msg events.Control) {
	switch m := msg.(type) {
	case events.SubscribeLobby:
		r.Subscribe(webSessionID, m.LobbyID)
	case events.UnsubscribeLobby:
		r.Unsubscribe(webSessionID, m.LobbyID)
	default:
		r.log.Warn("unhandled admin message", zap.String("web_session_id", webSessionID))
	}
}

func (r *AdminRegistry) snapshot(lobbyID int) []target {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var targets []target
	for id, conn := range r.conns {
		if _, ok := conn.lobbies[lobbyID]; ok {
			targets = append(targets, target{id: id, p: conn.peer})
		}
	}
	return targets
}

// BroadcastToLobby delivers ev to every admin subscribed to lobbyID.
func (r *AdminRegistry) BroadcastToLobby(ctx context.Context, lobbyID int, ev events.Event) {
	payload, err := events.Encode(ev)
	if err != nil {
		r.log.Error("failed to serialize event", zap.Error(err))
		return
	}
	r.broadcastPayload(ctx, lobbyID, payload)
}

func (r *AdminRegistry) broadcastPayload(ctx context.Context, lobbyID int, payload []byte) {
	targets := r.snapshot(lobbyID)
	r.log.Debug("broadcasting to admins",
		zap.Int("lobby_id", lobbyID),
		zap.Int("recipients", len(targets)))
	r.opts.deliver(ctx, r.log, lobbyID, targets, payload)
}

// DropLobby removes lobbyID from every admin's subscriptions and reports how many had it.
func (r *AdminRegistry) DropLobby(lobbyID int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, conn := range r.conns {
		if _, ok := conn.lobbies[lobbyID]; ok {
			delete(conn.lobbies, lobbyID)
			n++
		}
	}
	return n
}

func (r *AdminRegistry) CloseAll(reason string) error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[string]*adminConn)
	r.mu.Unlock()

	peers := make([]*peer, 0, len(conns))
	for _, conn := range conns {
		peers = append(peers, conn.peer)
	}
	return closePeers(peers, reason)
}

func (r *AdminRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Subscriptions returns the sorted lobby ids followed by webSessionID.
func (r *AdminRegistry) Subscriptions(webSessionID string) ([]int, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[webSessionID]
	if !ok {
		return nil, false
	}
	return slices.Sorted(maps.Keys(conn.lobbies)), true
}
