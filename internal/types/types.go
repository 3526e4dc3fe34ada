package types

import "github.com/DoyleJ11/raddle-teams-backend/internal/store"

type LobbyCreate struct {
	Name string `json:"name"`
}

type PlayerCreate struct {
	Name string `json:"name"`
}

type TeamCreate struct {
	NumTeams int `json:"num_teams"`
}

type LobbyInfo struct {
	Lobby         store.Lobby            `json:"lobby"`
	Players       []store.Player         `json:"players"`
	PlayersByTeam map[int][]store.Player `json:"players_by_team"`
	Teams         []store.Team           `json:"teams"`
}

type MessageResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type AdminAuthenticatedResponse struct {
	SessionID string `json:"session_id"`
}

type ApiRootResponse struct {
	Message string `json:"message"`
}
