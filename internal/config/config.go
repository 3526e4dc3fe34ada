package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const EnvTesting = "testing"

type Config struct {
	Env           string `env:"RADDLE_ENV" envDefault:"development"`
	AdminPassword string `env:"ADMIN_PASSWORD,required"`
	DatabaseURL   string `env:"DATABASE_URL,required"`

	Host string `env:"RADDLE_HOST" envDefault:"127.0.0.1"`
	Port int    `env:"RADDLE_PORT" envDefault:"9001"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LOG_FILE"`

	WriteTimeout    time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"3s"`
	FanoutLimit     int           `env:"WS_FANOUT_LIMIT" envDefault:"32"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// DotenvFile is the dotenv file that was loaded, empty if none was found.
	DotenvFile string `env:"-"`
}

// Load reads .env (or .env.testing when RADDLE_ENV=testing) into the process
// environment and parses it. Variables already set win over the file, and a
// missing file is not an error.
func Load() (Config, error) {
	loaded, err := loadDotenv()
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.FanoutLimit <= 0 {
		return Config{}, fmt.Errorf("WS_FANOUT_LIMIT must be positive, got %d", cfg.FanoutLimit)
	}
	cfg.DotenvFile = loaded
	return cfg, nil
}

func loadDotenv() (string, error) {
	file := ".env"
	if os.Getenv("RADDLE_ENV") == EnvTesting {
		file = ".env.testing"
	}
	err := godotenv.Load(file)
	switch {
	case err == nil:
		return file, nil
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("load %s: %w", file, err)
	}
}

func (c Config) Testing() bool { return c.Env == EnvTesting }

func (c Config) IsSQLite() bool { return strings.HasPrefix(c.DatabaseURL, "sqlite:") }

func (c Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
