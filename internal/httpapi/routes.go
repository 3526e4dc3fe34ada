package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/hub"
	"github.com/DoyleJ11/raddle-teams-backend/internal/lobby"
	"github.com/DoyleJ11/raddle-teams-backend/internal/store"
	"github.com/DoyleJ11/raddle-teams-backend/internal/ws"
)

type Deps struct {
	Service       *lobby.Service
	Store         store.Repository
	Hub           *hub.Hub
	Log           *zap.Logger
	AdminPassword string
	// Testing enables DELETE /api/reset-db.
	Testing bool
}

func SetupRoutes(d Deps) http.Handler {
	log := d.Log.Named("http")
	svc := d.Service

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(log))
	r.Use(cors)

	r.Get("/healthz", Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", APIRoot)
		if d.Testing {
			r.Delete("/reset-db", ResetDB(d.Store, log))
		}

		// Player routes
		r.Post("/lobby/join/{code}", JoinLobby(svc, log))
		r.Group(func(r chi.Router) {
			r.Use(playerOnly(d.Store, log))
			r.Get("/lobby", CurrentLobby(svc, log))
			r.Delete("/lobby", LeaveLobby(svc, log))
			r.Get("/lobby/active", ActivePlayer)
			r.Get("/lobby/info/{lobbyID}", PlayerLobbyInfo(svc, log))
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Use(adminOnly(d.AdminPassword, log))
			r.Get("/check", AdminCheck)
			r.Post("/lobby", CreateLobby(svc, log))
			r.Get("/lobby", ListLobbies(svc, log))
			r.Get("/lobby/{lobbyID}", AdminLobbyInfo(svc, log))
			r.Delete("/lobby/{lobbyID}", DeleteLobby(svc, log))
			r.Delete("/lobby/player/{playerID}", KickPlayer(svc, log))
			r.Put("/lobby/team/{teamID}/player/{playerID}", MovePlayer(svc, log))
			r.Post("/lobby/{lobbyID}/team", CreateTeams(svc, log))
		})
	})

	wsLog := d.Log.Named("ws")
	r.Route("/ws", func(r chi.Router) {
		r.With(adminOnly(d.AdminPassword, log)).Get("/admin/{webSessionID}", ws.AdminHandler(d.Hub, wsLog))
		r.Get("/lobby/{lobbyID}/player/{playerSessionID}", ws.PlayerHandler(d.Hub, wsLog))
	})
	return r
}
