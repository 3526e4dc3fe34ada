package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/lobby"
	"github.com/DoyleJ11/raddle-teams-backend/internal/store"
	"github.com/DoyleJ11/raddle-teams-backend/internal/types"
)

func intParam(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, chi.URLParam(r, name), errBadRequest)
	}
	return v, nil
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func APIRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ApiRootResponse{Message: "Raddle Teams API"})
}

func ResetDB(repo store.Repository, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := repo.Reset(r.Context()); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeMessage(w, "Database reset")
	}
}

// Player routes

func JoinLobby(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.PlayerCreate
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		name := strings.TrimSpace(body.Name)
		if name == "" {
			writeError(w, r, log, fmt.Errorf("name is required: %w", errBadRequest))
			return
		}

		p, err := svc.Join(r.Context(), strings.ToUpper(chi.URLParam(r, "code")), name)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// CurrentLobby returns the lobby the calling player is in.
func CurrentLobby(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := svc.Lobby(r.Context(), playerFrom(r.Context()).LobbyID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

// ActivePlayer returns the player bound to the session token.
func ActivePlayer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, playerFrom(r.Context()))
}

func LeaveLobby(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := playerFrom(r.Context())
		if err := svc.Leave(r.Context(), p); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeMessage(w, fmt.Sprintf("Player '%s' left the lobby", p.Name))
	}
}

// PlayerLobbyInfo serves any lobby to an authenticated player.
func PlayerLobbyInfo(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := intParam(r, "lobbyID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		lobbyInfo(svc, log, lobbyID, w, r)
	}
}

func lobbyInfo(svc *lobby.Service, log *zap.Logger, lobbyID int, w http.ResponseWriter, r *http.Request) {
	info, err := svc.LobbyInfo(r.Context(), lobbyID)
	if err != nil {
		writeError(w, r, log, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Admin routes

// AdminCheck confirms the admin token and hands out a web session id for the admin socket.
func AdminCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.AdminAuthenticatedResponse{SessionID: uuid.NewString()})
}

func CreateLobby(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body types.LobbyCreate
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		l, err := svc.CreateLobby(r.Context(), strings.TrimSpace(body.Name))
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	}
}

func ListLobbies(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbies, err := svc.ListLobbies(r.Context())
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeJSON(w, http.StatusOK, lobbies)
	}
}

func AdminLobbyInfo(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := intParam(r, "lobbyID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		lobbyInfo(svc, log, lobbyID, w, r)
	}
}

func DeleteLobby(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := intParam(r, "lobbyID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		l, err := svc.DeleteLobby(r.Context(), lobbyID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeMessage(w, fmt.Sprintf("Lobby '%s' deleted successfully", l.Name))
	}
}

func KickPlayer(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID, err := intParam(r, "playerID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		p, err := svc.Kick(r.Context(), playerID)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeMessage(w, fmt.Sprintf("Player '%s' has been kicked from the lobby", p.Name))
	}
}

func MovePlayer(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID, err := intParam(r, "teamID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		playerID, err := intParam(r, "playerID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		if _, err := svc.MovePlayer(r.Context(), teamID, playerID); err != nil {
			writeError(w, r, log, err)
			return
		}
		writeMessage(w, "Player moved successfully")
	}
}

func CreateTeams(svc *lobby.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := intParam(r, "lobbyID")
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		var body types.TeamCreate
		if err := decodeJSON(r, &body); err != nil {
			writeError(w, r, log, err)
			return
		}
		teams, err := svc.CreateTeams(r.Context(), lobbyID, body.NumTeams)
		if err != nil {
			writeError(w, r, log, err)
			return
		}
		writeMessage(w, fmt.Sprintf("Created %d teams with players randomly assigned", len(teams)))
	}
}
