package store

import "time"

type Lobby struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"size:16;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Lobby) TableName() string { return "lobby" }

type Team struct {
	ID               int        `json:"id" gorm:"primaryKey"`
	Name             string     `json:"name" gorm:"not null"`
	LobbyID          int        `json:"lobby_id" gorm:"index;not null"`
	Lobby            *Lobby     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CurrentWordIndex int        `json:"current_word_index"`
	CompletedAt      *time.Time `json:"completed_at"`
	CreatedAt        time.Time  `json:"created_at"`
}

func (Team) TableName() string { return "team" }

type Player struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null"`
	SessionID string    `json:"session_id" gorm:"uniqueIndex;not null"`
	LobbyID   int       `json:"lobby_id" gorm:"index;not null"`
	Lobby     *Lobby    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	TeamID    *int      `json:"team_id" gorm:"index"`
	Team      *Team     `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
	CreatedAt time.Time `json:"created_at"`
}

func (Player) TableName() string { return "player" }

// TeamIDOrZero reports the player's team with 0 for "unassigned".
func (p Player) TeamIDOrZero() int {
	if p.TeamID == nil {
		return 0
	}
	return *p.TeamID
}
