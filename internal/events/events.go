// Package events defines the notifications pushed to player and admin sockets,
// and the control messages admins send back.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrUnknownEvent = errors.New("unknown event")

type Type string

const (
	TypePlayerJoined       Type = "player_joined"
	TypePlayerDisconnected Type = "player_disconnected"
	TypePlayerKicked       Type = "player_kicked"
	TypeTeamAssigned       Type = "team_assigned"
	TypeTeamChanged        Type = "team_changed"
)

// Event is one of PlayerJoined, PlayerDisconnected, PlayerKicked, TeamAssigned
// or TeamChanged. The set is closed.
type Event interface {
	EventType() Type
	Lobby() int
	isEvent()
}

type PlayerJoined struct {
	LobbyID         int
	PlayerSessionID string
}

type PlayerDisconnected struct {
	LobbyID         int
	PlayerSessionID string
}

type PlayerKicked struct {
	LobbyID         int
	PlayerSessionID string
}

type TeamAssigned struct {
	LobbyID         int
	PlayerSessionID string
}

// TeamChanged uses 0 for "no team" on either side.
type TeamChanged struct {
	LobbyID         int
	PlayerSessionID string
	OldTeamID       int
	NewTeamID       int
}

func (PlayerJoined) EventType() Type       { return TypePlayerJoined }
func (PlayerDisconnected) EventType() Type { return TypePlayerDisconnected }
func (PlayerKicked) EventType() Type       { return TypePlayerKicked }
func (TeamAssigned) EventType() Type       { return TypeTeamAssigned }
func (TeamChanged) EventType() Type        { return TypeTeamChanged }

func (e PlayerJoined) Lobby() int       { return e.LobbyID }
func (e PlayerDisconnected) Lobby() int { return e.LobbyID }
func (e PlayerKicked) Lobby() int       { return e.LobbyID }
func (e TeamAssigned) Lobby() int       { return e.LobbyID }
func (e TeamChanged) Lobby() int        { return e.LobbyID }

func (PlayerJoined) isEvent()       {}
func (PlayerDisconnected) isEvent() {}
func (PlayerKicked) isEvent()       {}
func (TeamAssigned) isEvent()       {}
func (TeamChanged) isEvent()        {}

type playerWire struct {
	EventType       Type   `json:"event_type"`
	LobbyID         int    `json:"lobby_id"`
	PlayerSessionID string `json:"player_session_id"`
}

type teamChangedWire struct {
	EventType       Type   `json:"event_type"`
	LobbyID         int    `json:"lobby_id"`
	PlayerSessionID string `json:"player_session_id"`
	OldTeamID       int    `json:"old_team_id"`
	NewTeamID       int    `json:"new_team_id"`
}

// Encode returns the JSON wire form of e.
func Encode(e Event) ([]byte, error) {
	switch ev := e.(type) {
	case PlayerJoined:
		return json.Marshal(playerWire{TypePlayerJoined, ev.LobbyID, ev.PlayerSessionID})
	case PlayerDisconnected:
		return json.Marshal(playerWire{TypePlayerDisconnected, ev.LobbyID, ev.PlayerSessionID})
	case PlayerKicked:
		return json.Marshal(playerWire{TypePlayerKicked, ev.LobbyID, ev.PlayerSessionID})
	case TeamAssigned:
		return json.Marshal(playerWire{TypeTeamAssigned, ev.LobbyID, ev.PlayerSessionID})
	case TeamChanged:
		return json.Marshal(teamChangedWire{TypeTeamChanged, ev.LobbyID, ev.PlayerSessionID, ev.OldTeamID, ev.NewTeamID})
	default:
		return nil, fmt.Errorf("encode %T: %w", e, ErrUnknownEvent)
	}
}

// Decode parses a wire payload produced by Encode.
func Decode(data []byte) (Event, error) {
	var w teamChangedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch w.EventType {
	case TypePlayerJoined:
		return PlayerJoined{w.LobbyID, w.PlayerSessionID}, nil
	case TypePlayerDisconnected:
		return PlayerDisconnected{w.LobbyID, w.PlayerSessionID}, nil
	case TypePlayerKicked:
		return PlayerKicked{w.LobbyID, w.PlayerSessionID}, nil
	case TypeTeamAssigned:
		return TeamAssigned{w.LobbyID, w.PlayerSessionID}, nil
	case TypeTeamChanged:
		return TeamChanged{w.LobbyID, w.PlayerSessionID, w.OldTeamID, w.NewTeamID}, nil
	default:
		return nil, fmt.Errorf("decode %q: %w", w.EventType, ErrUnknownEvent)
	}
}
