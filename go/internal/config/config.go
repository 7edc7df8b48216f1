package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	BusLocal = "local"
	BusNATS  = "nats"
)

// Config holds the server settings read from the environment.
type Config struct {
	Port      string `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"console"`

	Store    string `env:"STORE" envDefault:"postgres"`
	EventBus string `env:"EVENT_BUS" envDefault:"local"`

	NATSURL           string `env:"NATS_URL" envDefault:"nats://localhost:4222"`
	NATSStream        string `env:"NATS_STREAM" envDefault:"POKER_EVENTS"`
	NATSSubjectPrefix string `env:"NATS_SUBJECT_PREFIX" envDefault:"poker.events"`
	// OutboxEnabled routes events through the room_event_outbox table
	// when both Postgres and NATS are in use.
	OutboxEnabled          bool          `env:"OUTBOX_ENABLED" envDefault:"true"`
	OutboxFallbackInterval time.Duration `env:"OUTBOX_FALLBACK_INTERVAL" envDefault:"5s"`

	JoinTokenSecret string        `env:"JOIN_TOKEN_SECRET"`
	JoinTokenTTL    time.Duration `env:"JOIN_TOKEN_TTL" envDefault:"168h"`

	RoomRetention time.Duration `env:"ROOM_RETENTION" envDefault:"168h"`
	PurgeSchedule string        `env:"PURGE_SCHEDULE" envDefault:"@every 1h"`

	DecksFile                 string   `env:"DECKS_FILE"`
	DefaultConsensusThreshold float64  `env:"DEFAULT_CONSENSUS_THRESHOLD" envDefault:"66.7"`
	AllowedOrigins            []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	return Parse()
}

// Parse reads the process environment into a validated Config.
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	cfg.EventBus = strings.ToLower(strings.TrimSpace(cfg.EventBus))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store))
	}
	switch c.EventBus {
	case BusLocal, BusNATS:
	default:
		errs = append(errs, fmt.Errorf("EVENT_BUS must be %q or %q, got %q", BusLocal, BusNATS, c.EventBus))
	}
	if c.EventBus == BusNATS && c.NATSURL == "" {
		errs = append(errs, errors.New("NATS_URL is required when EVENT_BUS=nats"))
	}
	if len(strings.TrimSpace(c.JoinTokenSecret)) < 16 {
		errs = append(errs, errors.New("JOIN_TOKEN_SECRET must be at least 16 characters"))
	}
	if c.JoinTokenTTL <= 0 {
		errs = append(errs, errors.New("JOIN_TOKEN_TTL must be positive"))
	}
	if c.RoomRetention <= 0 {
		errs = append(errs, errors.New("ROOM_RETENTION must be positive"))
	}
	if c.DefaultConsensusThreshold <= 0 || c.DefaultConsensusThreshold > 100 {
		errs = append(errs, errors.New("DEFAULT_CONSENSUS_THRESHOLD must be in (0, 100]"))
	}
	return errors.Join(errs...)
}

// UseOutbox reports whether events go through the Postgres outbox relay.
func (c Config) UseOutbox() bool {
	return c.OutboxEnabled && c.Store == StorePostgres && c.EventBus == BusNATS
}
