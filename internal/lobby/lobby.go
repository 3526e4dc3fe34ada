// Package lobby implements the lobby, player and team actions behind the REST API.
// Every action updates the store first and then pushes the matching event through the hub.
package lobby

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/raddle-teams-backend/internal/engine"
	"github.com/DoyleJ11/raddle-teams-backend/internal/events"
	"github.com/DoyleJ11/raddle-teams-backend/internal/hub"
	"github.com/DoyleJ11/raddle-teams-backend/internal/store"
	"github.com/DoyleJ11/raddle-teams-backend/internal/types"
)

var (
	ErrNameTaken         = errors.New("player name already taken in this lobby")
	ErrTeamsExist        = errors.New("teams already exist for this lobby")
	ErrNoPlayers         = engine.ErrNoPlayers
	ErrTeamLobbyMismatch = errors.New("team is not in the same lobby as player")
)

const codeAttempts = 5

type Service struct {
	store store.Repository
	hub   *hub.Hub
	log   *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewService(repo store.Repository, h *hub.Hub, log *zap.Logger) *Service {
	return &Service{
		store: repo,
		hub:   h,
		log:   log,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// WithRand replaces the shuffle source. Tests use it for a fixed seed.
func (s *Service) WithRand(rng *rand.Rand) *Service {
	s.rngMu.Lock()
	s.rng = rng
	s.rngMu.Unlock()
	return s
}

func (s *Service) CreateLobby(ctx context.Context, name string) (store.Lobby, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code, err := engine.GenerateCode()
		if err != nil {
			return store.Lobby{}, fmt.Errorf("generate code: %w", err)
		}
		l := store.Lobby{Code: code, Name: name}
		if l.Name == "" {
			l.Name = "Lobby " + code
		}

		err = s.store.CreateLobby(ctx, &l)
		if errors.Is(err, store.ErrConflict) {
			s.log.Info("collision on code, regenerating", zap.String("code", code))
			continue
		}
		if err != nil {
			return store.Lobby{}, err
		}
		s.log.Info("created lobby", zap.Int("lobby_id", l.ID), zap.String("code", l.Code), zap.String("name", l.Name))
		return l, nil
	}
	return store.Lobby{}, fmt.Errorf("create lobby: no free code after %d attempts: %w", codeAttempts, store.ErrConflict)
}

func (s *Service) ListLobbies(ctx context.Context) ([]store.Lobby, error) {
	return s.store.ListLobbies(ctx)
}

func (s *Service) Lobby(ctx context.Context, lobbyID int) (store.Lobby, error) {
	return s.store.FindLobby(ctx, lobbyID)
}

// LobbyInfo returns the lobby with its players and teams. Unassigned players
// are listed in Players but not in PlayersByTeam.
func (s *Service) LobbyInfo(ctx context.Context, lobbyID int) (types.LobbyInfo, error) {
	l, err := s.store.FindLobby(ctx, lobbyID)
	if err != nil {
		return types.LobbyInfo{}, err
	}
	players, err := s.store.FindPlayersByLobby(ctx, lobbyID)
	if err != nil {
		return types.LobbyInfo{}, err
	}
	teams, err := s.store.FindTeamsByLobby(ctx, lobbyID)
	if err != nil {
		return types.LobbyInfo{}, err
	}

	byTeam := make(map[int][]store.Player)
	for _, p := range players {
		if p.TeamID == nil {
			continue
		}
		byTeam[*p.TeamID] = append(byTeam[*p.TeamID], p)
	}
	return types.LobbyInfo{Lobby: l, Players: players, PlayersByTeam: byTeam, Teams: teams}, nil
}

func (s *Service) PlayerBySession(ctx context.Context, sessionID string) (store.Player, error) {
	return s.store.FindPlayerBySession(ctx, sessionID)
}

// Join adds a player named name to the lobby with the given join code and
// announces it to the lobby.
func (s *Service) Join(ctx context.Context, code, name string) (store.Player, error) {
	l, err := s.store.FindLobbyByCode(ctx, code)
	if err != nil {
		return store.Player{}, err
	}

	_, err = s.store.FindPlayerByName(ctx, l.ID, name)
	switch {
	case err == nil:
		return store.Player{}, fmt.Errorf("join %q: %w", name, ErrNameTaken)
	case !errors.Is(err, store.ErrNotFound):
		return store.Player{}, err
	}

	p := store.Player{Name: name, SessionID: uuid.NewString(), LobbyID: l.ID}
	if err := s.store.CreatePlayer(ctx, &p); err != nil {
		return store.Player{}, err
	}
	s.log.Info("player joined",
		zap.Int("lobby_id", l.ID),
		zap.Int("player_id", p.ID),
		zap.String("name", p.Name))

	s.hub.BroadcastToLobby(ctx, l.ID, events.PlayerJoined{LobbyID: l.ID, PlayerSessionID: p.SessionID})
	return p, nil
}

func (s *Service) Leave(ctx context.Context, p store.Player) error {
	if err := s.store.DeletePlayer(ctx, p.ID); err != nil {
		return err
	}
	s.log.Info("player left", zap.Int("lobby_id", p.LobbyID), zap.Int("player_id", p.ID))

	s.hub.BroadcastToLobby(ctx, p.LobbyID, events.PlayerDisconnected{LobbyID: p.LobbyID, PlayerSessionID: p.SessionID})
	return nil
}

// Kick disconnects the player's socket with a kick notice and removes the player.
func (s *Service) Kick(ctx context.Context, playerID int) (store.Player, error) {
	p, err := s.store.FindPlayer(ctx, playerID)
	if err != nil {
		return store.Player{}, err
	}

	s.hub.KickPlayer(ctx, p.LobbyID, p.SessionID)

	if err := s.store.DeletePlayer(ctx, p.ID); err != nil {
		return store.Player{}, err
	}
	s.log.Info("kicked player",
		zap.Int("lobby_id", p.LobbyID),
		zap.Int("player_id", p.ID),
		zap.String("name", p.Name))
	return p, nil
}

// MovePlayer puts the player on teamID. A teamID of 0 unassigns the player.
func (s *Service) MovePlayer(ctx context.Context, teamID, playerID int) (store.Player, error) {
	p, err := s.store.FindPlayer(ctx, playerID)
	if err != nil {
		return store.Player{}, err
	}

	var next *int
	if teamID != 0 {
		t, err := s.store.FindTeam(ctx, teamID)
		if err != nil {
			return store.Player{}, err
		}
		if t.LobbyID != p.LobbyID {
			return store.Player{}, ErrTeamLobbyMismatch
		}
		next = &t.ID
	}

	oldTeamID := p.TeamIDOrZero()
	updated, err := s.store.UpdatePlayerTeam(ctx, p.ID, next)
	if err != nil {
		return store.Player{}, err
	}
	s.log.Info("moved player",
		zap.Int("player_id", p.ID),
		zap.Int("old_team_id", oldTeamID),
		zap.Int("new_team_id", updated.TeamIDOrZero()))

	s.hub.BroadcastToLobby(ctx, p.LobbyID, events.TeamChanged{
		LobbyID:         p.LobbyID,
		PlayerSessionID: p.SessionID,
		OldTeamID:       oldTeamID,
		NewTeamID:       updated.TeamIDOrZero(),
	})
	return updated, nil
}

// CreateTeams creates numTeams teams and deals the lobby's players into them at random.
func (s *Service) CreateTeams(ctx context.Context, lobbyID, numTeams int) ([]store.Team, error) {
	if err := engine.ValidTeamCount(numTeams); err != nil {
		return nil, err
	}
	if _, err := s.store.FindLobby(ctx, lobbyID); err != nil {
		return nil, err
	}
	existing, err := s.store.FindTeamsByLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return nil, ErrTeamsExist
	}
	players, err := s.store.FindPlayersByLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}

	s.rngMu.Lock()
	buckets, err := engine.Assign(players, numTeams, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	teams := make([]store.Team, 0, numTeams)
	var assigned []store.Player
	for i, bucket := range buckets {
		t := store.Team{Name: engine.TeamName(i), LobbyID: lobbyID}
		if err := s.store.CreateTeam(ctx, &t); err != nil {
			return nil, err
		}
		teams = append(teams, t)

		for _, p := range bucket {
			updated, err := s.store.UpdatePlayerTeam(ctx, p.ID, &t.ID)
			if err != nil {
				return nil, err
			}
			assigned = append(assigned, updated)
		}
	}
	s.log.Info("created teams",
		zap.Int("lobby_id", lobbyID),
		zap.Int("teams", numTeams),
		zap.Int("players", len(assigned)))

	// Each assignment goes to the whole lobby, not only the assigned player.
	for _, p := range assigned {
		s.hub.BroadcastToLobby(ctx, lobbyID, events.TeamAssigned{LobbyID: lobbyID, PlayerSessionID: p.SessionID})
	}
	return teams, nil
}

// DeleteLobby removes the lobby with its players and teams and closes its sockets.
func (s *Service) DeleteLobby(ctx context.Context, lobbyID int) (store.Lobby, error) {
	l, err := s.store.FindLobby(ctx, lobbyID)
	if err != nil {
		return store.Lobby{}, err
	}
	if err := s.store.DeleteLobby(ctx, lobbyID); err != nil {
		return store.Lobby{}, err
	}
	s.hub.CloseLobby(lobbyID)
	s.log.Info("deleted lobby", zap.Int("lobby_id", lobbyID), zap.String("name", l.Name))
	return l, nil
}
