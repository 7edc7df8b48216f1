package gateway

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/events"
	"github.com/mcdev12/planpoker/go/internal/rooms"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

// Service is the gateway: WebSocket connections, action dispatch, REST
// state endpoints and, with NATS, the stream consumer feeding broadcasts.
type Service struct {
	connectionManager *ConnectionManager
	dispatcher        *Dispatcher
	wsHandler         *WebSocketHandler
	httpHandler       *HTTPHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service. A nil JetStream
// means events arrive through Broadcast from an in-process bus.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStream        *JetStreamConsumerConfig
}

// Deps are the collaborators the gateway dispatches to.
type Deps struct {
	Coordinator *voting.Coordinator
	Rooms       *rooms.App
	Gatekeeper  *auth.Gatekeeper
	Tokens      *auth.TokenIssuer
	// Notifier carries presence and roster events, the same bus the
	// coordinator publishes on.
	Notifier voting.Notifier
	Clock    clockwork.Clock
}

func NewService(config Config, deps Deps) (*Service, error) {
	cm := NewConnectionManager(config.ConnectionConfig)
	dispatcher := NewDispatcher(deps.Coordinator, deps.Rooms, deps.Gatekeeper, deps.Tokens, deps.Notifier, cm, deps.Clock)
	cm.SetHandler(dispatcher)

	s := &Service{
		connectionManager: cm,
		dispatcher:        dispatcher,
		wsHandler:         NewWebSocketHandler(cm),
		httpHandler:       NewHTTPHandler(deps.Rooms, deps.Coordinator, deps.Tokens),
	}

	if config.JetStream != nil {
		consumer, err := NewEventConsumer(cm, *config.JetStream)
		if err != nil {
			return nil, fmt.Errorf("failed to create event consumer: %w", err)
		}
		s.eventConsumer = consumer
	}
	return s, nil
}

// Start runs the gateway until ctx is cancelled.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Bool("jetstream", s.eventConsumer != nil).Msg("starting gateway service")

	go s.connectionManager.Start(ctx)

	if s.eventConsumer != nil {
		go func() {
			if err := s.eventConsumer.Start(ctx); err != nil {
				log.Error().Err(err).Msg("event consumer failed")
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("gateway service shutting down")
	return s.Stop()
}

func (s *Service) Stop() error {
	if s.eventConsumer != nil {
		if err := s.eventConsumer.Stop(); err != nil {
			log.Error().Err(err).Msg("failed to stop event consumer")
		}
	}
	log.Info().Msg("gateway service stopped")
	return nil
}

func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.httpHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// Broadcast delivers ev to the connections of its room.
func (s *Service) Broadcast(ev *events.Event) {
	s.connectionManager.BroadcastToRoom(ev)
}

// CloseRoom disconnects the members of a purged room.
func (s *Service) CloseRoom(code string) {
	s.connectionManager.CloseRoom(code)
}

func (s *Service) GetStats() map[string]interface{} {
	stats := s.connectionManager.GetConnectionStats()
	stats["service"] = "planpoker_gateway"
	return stats
}
