package eventbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/eventbus/db"
	"github.com/mcdev12/planpoker/go/internal/events"
)

// OutboxChannel is the NOTIFY channel raised by the outbox insert trigger.
const OutboxChannel = "room_event_outbox"

type RelayConfig struct {
	DatabaseURL      string // Postgres DSN for LISTEN/NOTIFY
	NotifyChannel    string
	FallbackInterval time.Duration // How often to poll for missed events
	MaxRetries       int
	RetryDelay       time.Duration
	PingInterval     time.Duration
	BatchSize        int32
	// Sent rows older than SentRetention are deleted on each cleanup tick.
	SentRetention   time.Duration
	CleanupInterval time.Duration
}

func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		NotifyChannel:    OutboxChannel,
		FallbackInterval: 5 * time.Second,
		MaxRetries:       5,
		RetryDelay:       200 * time.Millisecond,
		PingInterval:     90 * time.Second,
		BatchSize:        100,
		SentRetention:    24 * time.Hour,
		CleanupInterval:  time.Hour,
	}
}

// Publisher forwards an outbox event to the stream.
type Publisher interface {
	Publish(ctx context.Context, ev *events.Event) error
}

// Relay moves room events from the outbox table to JetStream. Inserts wake
// it through LISTEN/NOTIFY; a fallback poll picks up anything a dropped
// notification missed.
type Relay struct {
	queries   db.Querier
	listener  *pq.Listener
	publisher Publisher
	cfg       RelayConfig

	mu            sync.Mutex
	running       bool
	published     uint64
	lastPublished time.Time
}

// RelayStats is a snapshot of relay progress.
type RelayStats struct {
	Running       bool
	Published     uint64
	LastPublished time.Time
}

func (r *Relay) Stats() RelayStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RelayStats{Running: r.running, Published: r.published, LastPublished: r.lastPublished}
}

func (r *Relay) setRunning(running bool) {
	r.mu.Lock()
	r.running = running
	r.mu.Unlock()
}

func NewRelay(conn *sql.DB, publisher Publisher, cfg RelayConfig) (*Relay, error) {
	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("outbox listener event")
			}
		},
	)
	if err := l.Listen(cfg.NotifyChannel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.NotifyChannel).Msg("listening for outbox notifications")

	return &Relay{
		queries:   db.New(conn),
		listener:  l,
		publisher: publisher,
		cfg:       cfg,
	}, nil
}

// Start relays until ctx is cancelled. Rows left over from a previous run
// are published first.
func (r *Relay) Start(ctx context.Context) error {
	log.Info().
		Str("channel", r.cfg.NotifyChannel).
		Dur("ping_interval", r.cfg.PingInterval).
		Dur("fallback_interval", r.cfg.FallbackInterval).
		Msg("outbox relay started")
	r.setRunning(true)
	defer r.setRunning(false)

	if _, err := r.processUnsent(ctx); err != nil {
		log.Error().Err(err).Msg("failed to process unsent events")
	}

	pingTicker := time.NewTicker(r.cfg.PingInterval)
	fallbackTicker := time.NewTicker(r.cfg.FallbackInterval)
	cleanupTicker := time.NewTicker(r.cfg.CleanupInterval)
	defer pingTicker.Stop()
	defer fallbackTicker.Stop()
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("outbox relay shutting down")
			return r.listener.Close()
		case note := <-r.listener.Notify:
			if note == nil {
				// The listener reconnected; notifications may have been lost.
				if _, err := r.processUnsent(ctx); err != nil {
					log.Error().Err(err).Msg("failed to process unsent events")
				}
				continue
			}
			if err := r.handleNotification(ctx, note.Extra); err != nil {
				log.Error().Err(err).Msg("failed to handle outbox notification")
			}
		case <-fallbackTicker.C:
			if _, err := r.processUnsent(ctx); err != nil {
				log.Error().Err(err).Msg("failed to process unsent events")
			}
		case <-cleanupTicker.C:
			if _, err := r.cleanup(ctx, time.Now()); err != nil {
				log.Error().Err(err).Msg("failed to delete sent outbox events")
			}
		case <-pingTicker.C:
			if err := r.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping listener")
			}
		}
	}
}

// handleNotification publishes the outbox row named by the notification
// payload. A row already sent by the fallback poll is skipped.
func (r *Relay) handleNotification(ctx context.Context, extra string) error {
	id, err := uuid.Parse(extra)
	if err != nil {
		return fmt.Errorf("invalid event id in notification: %w", err)
	}

	row, err := r.queries.FetchOutboxByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch outbox event: %w", err)
	}

	return r.publishWithRetry(ctx, outboxEvent(row.ID, row.RoomCode, row.EventType, row.Payload, row.CreatedAt))
}

// processUnsent publishes one batch of unsent rows, oldest first, and
// returns how many were sent.
func (r *Relay) processUnsent(ctx context.Context) (int, error) {
	unsent, err := r.queries.FetchUnsentOutbox(ctx, r.cfg.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch unsent outbox events: %w", err)
	}

	sent := 0
	for _, row := range unsent {
		ev := outboxEvent(row.ID, row.RoomCode, row.EventType, row.Payload, row.CreatedAt)
		if err := r.publishWithRetry(ctx, ev); err != nil {
			log.Error().Err(err).Str("event_id", ev.ID).Msg("failed to relay event")
			// Later rows of the same room must not overtake this one.
			break
		}
		sent++
	}
	return sent, nil
}

func (r *Relay) cleanup(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteSentOutboxBefore(ctx, sql.NullTime{Time: now.Add(-r.cfg.SentRetention), Valid: true})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Debug().Int64("deleted", n).Msg("deleted sent outbox events")
	}
	return n, nil
}

// publishWithRetry publishes ev with a linear backoff and marks the row
// sent once the stream acknowledged it.
func (r *Relay) publishWithRetry(ctx context.Context, ev *events.Event) error {
	id := uuid.MustParse(ev.ID)
	var lastErr error

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := r.cfg.RetryDelay * time.Duration(attempt)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if err := r.publisher.Publish(ctx, ev); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", ev.ID).
				Msg("failed to publish, retrying")
			continue
		}

		if err := r.queries.MarkOutboxSent(ctx, id); err != nil {
			return fmt.Errorf("failed to mark outbox event %s as sent: %w", ev.ID, err)
		}
		r.mu.Lock()
		r.published++
		r.lastPublished = time.Now()
		r.mu.Unlock()

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", ev.ID).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", r.cfg.MaxRetries+1, lastErr)
}

func outboxEvent(id uuid.UUID, roomCode, eventType string, payload json.RawMessage, createdAt time.Time) *events.Event {
	return &events.Event{
		ID:        id.String(),
		RoomCode:  roomCode,
		Type:      events.EventType(eventType),
		Timestamp: createdAt.UTC(),
		Data:      payload,
	}
}
