package store

import (
	"context"

	"gorm.io/gorm"
)

func (s *Store) CreateLobby(ctx context.Context, l *Lobby) error {
	return translate(s.db.WithContext(ctx).Create(l).Error, "create lobby")
}

func (s *Store) FindLobby(ctx context.Context, id int) (Lobby, error) {
	var l Lobby
	err := s.db.WithContext(ctx).First(&l, id).Error
	return l, translate(err, "find lobby")
}

func (s *Store) FindLobbyByCode(ctx context.Context, code string) (Lobby, error) {
	var l Lobby
	err := s.db.WithContext(ctx).Where("code = ?", code).First(&l).Error
	return l, translate(err, "find lobby by code")
}

func (s *Store) ListLobbies(ctx context.Context) ([]Lobby, error) {
	var lobbies []Lobby
	err := s.db.WithContext(ctx).Order("id").Find(&lobbies).Error
	return lobbies, translate(err, "list lobbies")
}

func (s *Store) DeleteLobby(ctx context.Context, id int) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lobby_id = ?", id).Delete(&Player{}).Error; err != nil {
			return err
		}
		if err := tx.Where("lobby_id = ?", id).Delete(&Team{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&Lobby{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "delete lobby")
}

func (s *Store) CreatePlayer(ctx context.Context, p *Player) error {
	return translate(s.db.WithContext(ctx).Create(p).Error, "create player")
}

func (s *Store) FindPlayer(ctx context.Context, id int) (Player, error) {
	var p Player
	err := s.db.WithContext(ctx).First(&p, id).Error
	return p, translate(err, "find player")
}

func (s *Store) FindPlayerBySession(ctx context.Context, sessionID string) (Player, error) {
	var p Player
	err := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&p).Error
	return p, translate(err, "find player by session")
}

func (s *Store) FindPlayerByName(ctx context.Context, lobbyID int, name string) (Player, error) {
	var p Player
	err := s.db.WithContext(ctx).Where("lobby_id = ? AND name = ?", lobbyID, name).First(&p).Error
	return p, translate(err, "find player by name")
}

func (s *Store) FindPlayersByLobby(ctx context.Context, lobbyID int) ([]Player, error) {
	var players []Player
	err := s.db.WithContext(ctx).Where("lobby_id = ?", lobbyID).Order("id").Find(&players).Error
	return players, translate(err, "find players by lobby")
}

func (s *Store) UpdatePlayerTeam(ctx context.Context, playerID int, teamID *int) (Player, error) {
	res := s.db.WithContext(ctx).Model(&Player{}).Where("id = ?", playerID).Update("team_id", teamID)
	if res.Error != nil {
		return Player{}, translate(res.Error, "update player team")
	}
	if res.RowsAffected == 0 {
		return Player{}, translate(gorm.ErrRecordNotFound, "update player team")
	}
	return s.FindPlayer(ctx, playerID)
}

func (s *Store) DeletePlayer(ctx context.Context, id int) error {
	res := s.db.WithContext(ctx).Delete(&Player{}, id)
	if res.Error != nil {
		return translate(res.Error, "delete player")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete player")
	}
	return nil
}

func (s *Store) CreateTeam(ctx context.Context, t *Team) error {
	return translate(s.db.WithContext(ctx).Create(t).Error, "create team")
}

func (s *Store) FindTeam(ctx context.Context, id int) (Team, error) {
	var t Team
	err := s.db.WithContext(ctx).First(&t, id).Error
	return t, translate(err, "find team")
}

func (s *Store) FindTeamsByLobby(ctx context.Context, lobbyID int) ([]Team, error) {
	var teams []Team
	err := s.db.WithContext(ctx).Where("lobby_id = ?", lobbyID).Order("id").Find(&teams).Error
	return teams, translate(err, "find teams by lobby")
}
