package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/eventbus"
)

// JetStreamConsumerConfig holds configuration for the JetStream consumer
type JetStreamConsumerConfig struct {
	Stream        eventbus.JetStreamConfig
	ConsumerName  string
	MaxDeliver    int
	AckWait       time.Duration
	MaxAckPending int
}

func DefaultJetStreamConsumerConfig() JetStreamConsumerConfig {
	return JetStreamConsumerConfig{
		Stream:        eventbus.DefaultJetStreamConfig(),
		ConsumerName:  "poker-gateway",
		MaxDeliver:    5,
		AckWait:       30 * time.Second,
		MaxAckPending: 256,
	}
}

// EventConsumer reads room events from JetStream and broadcasts them to
// the room's WebSocket connections.
type EventConsumer struct {
	connectionManager *ConnectionManager
	nc                *nats.Conn
	consumer          jetstream.Consumer
	config            JetStreamConsumerConfig
}

func NewEventConsumer(cm *ConnectionManager, config JetStreamConsumerConfig) (*EventConsumer, error) {
	nc, err := eventbus.Connect(config.Stream, "planpoker-gateway")
	if err != nil {
		return nil, err
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ec := &EventConsumer{connectionManager: cm, nc: nc, config: config}
	if err := ec.ensureConsumer(context.Background(), js); err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure consumer: %w", err)
	}
	return ec, nil
}

func (ec *EventConsumer) ensureConsumer(ctx context.Context, js jetstream.JetStream) error {
	if err := eventbus.EnsureStream(ctx, js, ec.config.Stream); err != nil {
		return err
	}
	// Only new events matter: clients resync through room_state on join.
	consumer, err := js.CreateOrUpdateConsumer(ctx, ec.config.Stream.StreamName, jetstream.ConsumerConfig{
		Durable:       ec.config.ConsumerName,
		Description:   "Planning poker WebSocket gateway",
		FilterSubject: ec.config.Stream.SubjectFilter(),
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    ec.config.MaxDeliver,
		AckWait:       ec.config.AckWait,
		MaxAckPending: ec.config.MaxAckPending,
		ReplayPolicy:  jetstream.ReplayInstantPolicy,
	})
	if err != nil {
		return fmt.Errorf("create consumer: %w", err)
	}
	log.Info().
		Str("consumer", ec.config.ConsumerName).
		Str("stream", ec.config.Stream.StreamName).
		Msg("JetStream consumer ready")
	ec.consumer = consumer
	return nil
}

// Start consumes until ctx is cancelled.
func (ec *EventConsumer) Start(ctx context.Context) error {
	consumeCtx, err := ec.consumer.Consume(func(msg jetstream.Msg) {
		if err := ec.processMessage(msg); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject()).Msg("failed to process message")
			// A malformed event will not parse on redelivery either.
			if termErr := msg.Term(); termErr != nil {
				log.Error().Err(termErr).Msg("failed to terminate message")
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			log.Error().Err(ackErr).Msg("failed to ACK message")
		}
	})
	if err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}
	log.Info().Str("consumer", ec.config.ConsumerName).Msg("event consumer started")

	<-ctx.Done()
	consumeCtx.Stop()
	log.Info().Msg("event consumer shutting down")
	return nil
}

func (ec *EventConsumer) processMessage(msg jetstream.Msg) error {
	ev, err := eventbus.DecodeMsg(msg.Data())
	if err != nil {
		return err
	}
	ec.connectionManager.BroadcastToRoom(ev)
	log.Debug().
		Str("event_id", ev.ID).
		Str("room_code", ev.RoomCode).
		Str("event_type", string(ev.Type)).
		Msg("stream event broadcasted")
	return nil
}

func (ec *EventConsumer) Stop() error {
	if ec.nc != nil {
		ec.nc.Close()
	}
	return nil
}
