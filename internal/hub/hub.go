// Package hub tracks live player and admin sockets and fans lobby events out to them.
//
// PlayerRegistry and AdminRegistry each own their sinks and are never locked
// together. Hub composes them: a lobby broadcast reaches the lobby's players
// and every admin subscribed to that lobby.
package hub

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/events"
)

type Hub struct {
	players *PlayerRegistry
	admins  *AdminRegistry
	log     *zap.Logger
}

func NewHub(log *zap.Logger, opts Options) *Hub {
	return &Hub{
		players: NewPlayerRegistry(log.Named("players"), opts),
		admins:  NewAdminRegistry(log.Named("admins"), opts),
		log:     log,
	}
}

func (h *Hub) Players() *PlayerRegistry { return h.players }
func (h *Hub) Admins() *AdminRegistry   { return h.admins }

// BroadcastToLobby serializes ev once and delivers it to the lobby's players,
// then to its subscribed admins. Both are attempted regardless of failures in the other.
func (h *Hub) BroadcastToLobby(ctx context.Context, lobbyID int, ev events.Event) {
	payload, err := events.Encode(ev)
	if err != nil {
		h.log.Error("failed to serialize event", zap.Int("lobby_id", lobbyID), zap.Error(err))
		return
	}
	h.players.broadcastPayload(ctx, lobbyID, payload)
	h.admins.broadcastPayload(ctx, lobbyID, payload)
}

func (h *Hub) SendToPlayer(ctx context.Context, lobbyID int, sessionID string, ev events.Event) {
	h.players.SendTo(ctx, lobbyID, sessionID, ev)
}

// KickPlayer runs the player kick protocol and forwards the kick event to subscribed admins.
func (h *Hub) KickPlayer(ctx context.Context, lobbyID int, sessionID string) {
	payload := h.players.kick(ctx, lobbyID, sessionID)
	if payload == nil {
		return
	}
	h.admins.broadcastPayload(ctx, lobbyID, payload)
}

// CloseLobby disconnects every player of a deleted lobby and drops admin subscriptions to it.
func (h *Hub) CloseLobby(lobbyID int) {
	closed := h.players.CloseLobby(lobbyID, "lobby deleted")
	dropped := h.admins.DropLobby(lobbyID)
	h.log.Info("lobby closed",
		zap.Int("lobby_id", lobbyID),
		zap.Int("players_closed", closed),
		zap.Int("admin_subscriptions_dropped", dropped))
}

// Shutdown closes every connection in both registries.
func (h *Hub) Shutdown() error {
	return multierr.Combine(
		h.players.CloseAll("server shutting down"),
		h.admins.CloseAll("server shutting down"),
	)
}
