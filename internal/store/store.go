// Package store persists lobbies, players and teams.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// Repository is the entity store used by the lobby service and the HTTP layer.
type Repository interface {
	CreateLobby(ctx context.Context, l *Lobby) error
	FindLobby(ctx context.Context, id int) (Lobby, error)
	FindLobbyByCode(ctx context.Context, code string) (Lobby, error)
	ListLobbies(ctx context.Context) ([]Lobby, error)
	// DeleteLobby removes the lobby with its players and teams.
	DeleteLobby(ctx context.Context, id int) error

	CreatePlayer(ctx context.Context, p *Player) error
	FindPlayer(ctx context.Context, id int) (Player, error)
	FindPlayerBySession(ctx context.Context, sessionID string) (Player, error)
	FindPlayerByName(ctx context.Context, lobbyID int, name string) (Player, error)
	FindPlayersByLobby(ctx context.Context, lobbyID int) ([]Player, error)
	// UpdatePlayerTeam sets the player's team; nil unassigns.
	UpdatePlayerTeam(ctx context.Context, playerID int, teamID *int) (Player, error)
	DeletePlayer(ctx context.Context, id int) error

	CreateTeam(ctx context.Context, t *Team) error
	FindTeam(ctx context.Context, id int) (Team, error)
	FindTeamsByLobby(ctx context.Context, lobbyID int) ([]Team, error)

	// Reset drops and recreates every table.
	Reset(ctx context.Context) error
	Close() error
}

type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

var _ Repository = (*Store)(nil)

// Open connects to databaseURL ("postgres://", "postgresql://" or "sqlite:<path>")
// and migrates the schema.
func Open(databaseURL string, log *zap.Logger) (*Store, error) {
	dialector, memory, err := dialectorFor(databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if memory {
		// every new connection to :memory: would see an empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	s := &Store{db: db, log: log}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	log.Info("database ready", zap.String("dialect", dialector.Name()))
	return s, nil
}

func dialectorFor(databaseURL string) (gorm.Dialector, bool, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return postgres.Open(databaseURL), false, nil
	case strings.HasPrefix(databaseURL, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(databaseURL, "sqlite:"), "//")
		memory := path == ":memory:" || path == ""
		if memory {
			path = ":memory:"
		}
		return sqlite.Open(withForeignKeys(path)), memory, nil
	default:
		return nil, false, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

func withForeignKeys(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)"
}

func (s *Store) migrate() error {
	// parents first
	if err := s.db.AutoMigrate(&Lobby{}, &Team{}, &Player{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	s.log.Warn("dropping all tables")
	if err := s.db.WithContext(ctx).Migrator().DropTable(&Player{}, &Team{}, &Lobby{}); err != nil {
		return fmt.Errorf("drop tables: %w", err)
	}
	return s.migrate()
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translate maps driver errors onto the package sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%s: %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
