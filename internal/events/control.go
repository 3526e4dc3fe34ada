package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownAction    = errors.New("unknown action")
	ErrMalformedControl = errors.New("malformed control message")
)

const (
	ActionSubscribeLobby   = "subscribe_lobby"
	ActionUnsubscribeLobby = "unsubscribe_lobby"
)

// Control is an inbound admin message: SubscribeLobby or UnsubscribeLobby.
type Control interface{ isControl() }

type SubscribeLobby struct{ LobbyID int }

type UnsubscribeLobby struct{ LobbyID int }

func (SubscribeLobby) isControl()   {}
func (UnsubscribeLobby) isControl() {}

type controlWire struct {
	Action  string `json:"action"`
	LobbyID *int   `json:"lobby_id"`
}

// ParseControl decodes {"action": ..., "lobby_id": N}.
func ParseControl(data []byte) (Control, error) {
	var w controlWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedControl, err)
	}

	switch w.Action {
	case ActionSubscribeLobby, ActionUnsubscribeLobby:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, w.Action)
	}

	if w.LobbyID == nil {
		return nil, fmt.Errorf("%w: missing lobby_id", ErrMalformedControl)
	}

	if w.Action == ActionSubscribeLobby {
		return SubscribeLobby{LobbyID: *w.LobbyID}, nil
	}
	return UnsubscribeLobby{LobbyID: *w.LobbyID}, nil
}

// EncodeControl is the client-side counterpart of ParseControl.
func EncodeControl(c Control) ([]byte, error) {
	switch m := c.(type) {
	case SubscribeLobby:
		return json.Marshal(controlWire{Action: ActionSubscribeLobby, LobbyID: &m.LobbyID})
	case UnsubscribeLobby:
		return json.Marshal(controlWire{Action: ActionUnsubscribeLobby, LobbyID: &m.LobbyID})
	default:
		return nil, fmt.Errorf("encode control %T: %w", c, ErrUnknownAction)
	}
}
