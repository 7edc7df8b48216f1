package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/config"
	"github.com/mcdev12/planpoker/go/internal/dbconfig"
	"github.com/mcdev12/planpoker/go/internal/eventbus"
	"github.com/mcdev12/planpoker/go/internal/gateway"
	"github.com/mcdev12/planpoker/go/internal/memstore"
	"github.com/mcdev12/planpoker/go/internal/rooms"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

// Services is the wired application.
type Services struct {
	Rooms       *rooms.App
	Coordinator *voting.Coordinator
	Gateway     *gateway.Service
	Janitor     *rooms.Janitor

	// RelayHealth is set when events go through the outbox relay.
	RelayHealth http.Handler

	relay   *eventbus.Relay
	closers []func()
	wg      sync.WaitGroup
}

const relayStallThreshold = time.Minute

// stores are the repositories behind the room and voting layers.
type stores struct {
	rooms    rooms.Repository
	sessions voting.SessionRepository
	// dropSessions is set when sessions do not cascade with their room.
	dropSessions func(ctx context.Context, code string) error
	database     *sql.DB
	dsn          string
}

func setupServices(ctx context.Context, cfg config.Config) (*Services, error) {
	// Wire up dependency injection chain
	// Store → rooms/auth → event bus → coordinator → gateway → janitor
	s := &Services{}
	clock := clockwork.NewRealClock()

	decks, err := config.LoadDecks(cfg.DecksFile)
	if err != nil {
		return nil, err
	}

	st, err := setupStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if st.database != nil {
		s.closers = append(s.closers, func() { st.database.Close() })
	}

	tokens, err := auth.NewTokenIssuer(cfg.JoinTokenSecret, cfg.JoinTokenTTL, clock)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Rooms = rooms.NewApp(st.rooms, decks, clock, cfg.RoomRetention).
		WithDefaultThreshold(cfg.DefaultConsensusThreshold)
	gatekeeper := auth.NewGatekeeper(s.Rooms)

	notifier, local, err := s.setupNotifier(cfg, st)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Coordinator = voting.NewCoordinator(st.sessions, s.Rooms, gatekeeper, notifier, decks, clock)
	s.closers = append(s.closers, s.Coordinator.Close)
	if err := s.Coordinator.Recover(ctx); err != nil {
		s.Close()
		return nil, err
	}

	gatewayConfig := gateway.Config{ConnectionConfig: gateway.DefaultConnectionConfig()}
	gatewayConfig.ConnectionConfig.CheckOrigin = gateway.AllowOrigins(cfg.AllowedOrigins)
	if cfg.EventBus == config.BusNATS {
		consumerConfig := gateway.DefaultJetStreamConsumerConfig()
		consumerConfig.Stream = jetStreamConfig(cfg)
		gatewayConfig.JetStream = &consumerConfig
	}
	s.Gateway, err = gateway.NewService(gatewayConfig, gateway.Deps{
		Coordinator: s.Coordinator,
		Rooms:       s.Rooms,
		Gatekeeper:  gatekeeper,
		Tokens:      tokens,
		Notifier:    notifier,
		Clock:       clock,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	if local != nil {
		local.Subscribe(s.Gateway.Broadcast)
	}

	s.Janitor = rooms.NewJanitor(s.Rooms, cfg.PurgeSchedule, func(code string) {
		s.Coordinator.ForgetRoom(code)
		s.Gateway.CloseRoom(code)
		if st.dropSessions != nil {
			if err := st.dropSessions(context.Background(), code); err != nil {
				log.Error().Err(err).Str("room_code", code).Msg("failed to drop sessions of purged room")
			}
		}
	})
	return s, nil
}

func setupStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.Store == config.StoreMemory {
		sessions := memstore.NewSessions()
		log.Warn().Msg("using in-memory store, rooms are lost on restart")
		return stores{
			rooms:        memstore.NewRooms(),
			sessions:     sessions,
			dropSessions: sessions.DeleteRoom,
		}, nil
	}

	dbCfg, err := dbconfig.NewConfigFromEnv()
	if err != nil {
		return stores{}, err
	}
	database, err := setupDatabase(ctx, dbCfg)
	if err != nil {
		return stores{}, err
	}
	return stores{
		rooms:    rooms.NewPostgresRepository(database),
		sessions: voting.NewRepository(database),
		database: database,
		dsn:      dbCfg.DSN(),
	}, nil
}

// setupNotifier picks where room events go. The returned Local is non-nil
// when events stay in process and must be fed to the gateway directly.
func (s *Services) setupNotifier(cfg config.Config, st stores) (voting.Notifier, *eventbus.Local, error) {
	if cfg.EventBus == config.BusLocal {
		bus := eventbus.NewLocal()
		return bus, bus, nil
	}

	publisher, err := eventbus.NewJetStreamPublisher(jetStreamConfig(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}
	s.closers = append(s.closers, func() {
		if err := publisher.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close publisher")
		}
	})
	if !cfg.UseOutbox() {
		return publisher, nil, nil
	}

	relayConfig := eventbus.DefaultRelayConfig()
	relayConfig.DatabaseURL = st.dsn
	relayConfig.FallbackInterval = cfg.OutboxFallbackInterval
	relay, err := eventbus.NewRelay(st.database, publisher, relayConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create outbox relay: %w", err)
	}
	s.relay = relay
	s.RelayHealth = eventbus.NewRelayHealth(relay, st.database, publisher, relayStallThreshold)
	return eventbus.NewOutboxNotifier(st.database), nil, nil
}

func jetStreamConfig(cfg config.Config) eventbus.JetStreamConfig {
	jsCfg := eventbus.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATSURL
	jsCfg.StreamName = cfg.NATSStream
	jsCfg.SubjectPrefix = cfg.NATSSubjectPrefix
	return jsCfg
}

// Start runs the background workers until ctx is cancelled.
func (s *Services) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()

	if s.relay != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.relay.Start(ctx); err != nil {
				log.Error().Err(err).Msg("outbox relay failed")
			}
		}()
	}

	if err := s.Janitor.Start(); err != nil {
		log.Error().Err(err).Msg("failed to start room janitor")
	} else {
		s.closers = append(s.closers, s.Janitor.Stop)
	}
}

// Wait blocks until the workers have stopped or ctx expires.
func (s *Services) Wait(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		log.Warn().Msg("timed out waiting for workers to stop")
	}
}

// Close releases resources in reverse order of acquisition.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
