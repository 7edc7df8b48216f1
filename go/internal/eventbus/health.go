package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/eventbus/db"
)

// pendingWarnThreshold is the backlog size reported as an error without
// failing the check.
const pendingWarnThreshold = 1000

type HealthStatus struct {
	Healthy           bool      `json:"healthy"`
	EventsPublished   uint64    `json:"events_published"`
	LastPublished     time.Time `json:"last_published"`
	PendingEvents     int64     `json:"pending_events"`
	DatabaseConnected bool      `json:"database_connected"`
	NATSConnected     bool      `json:"nats_connected"`
	RelayRunning      bool      `json:"relay_running"`
	Errors            []string  `json:"errors"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

type connectivity interface {
	IsConnected() bool
}

// RelayHealth checks the outbox relay and the connections it depends on.
type RelayHealth struct {
	relay     *Relay
	db        pinger
	queries   db.Querier
	nats      connectivity
	clock     clockwork.Clock
	threshold time.Duration // How long a backlog may sit unpublished
}

func NewRelayHealth(relay *Relay, database pinger, nats connectivity, threshold time.Duration) *RelayHealth {
	return &RelayHealth{
		relay:     relay,
		db:        database,
		queries:   relay.queries,
		nats:      nats,
		clock:     clockwork.NewRealClock(),
		threshold: threshold,
	}
}

func (h *RelayHealth) Check(ctx context.Context) HealthStatus {
	stats := h.relay.Stats()
	status := HealthStatus{
		Healthy:         true,
		EventsPublished: stats.Published,
		LastPublished:   stats.LastPublished,
		RelayRunning:    stats.Running,
		Errors:          []string{},
	}

	if err := h.db.PingContext(ctx); err != nil {
		status.Healthy = false
		status.Errors = append(status.Errors, fmt.Sprintf("database ping failed: %v", err))
	} else {
		status.DatabaseConnected = true
	}

	if h.nats != nil {
		status.NATSConnected = h.nats.IsConnected()
		if !status.NATSConnected {
			status.Healthy = false
			status.Errors = append(status.Errors, "NATS disconnected")
		}
	}

	if !status.RelayRunning {
		status.Healthy = false
		status.Errors = append(status.Errors, "relay not running")
	}

	if status.DatabaseConnected {
		pending, err := h.queries.CountUnsentOutbox(ctx)
		if err != nil {
			status.Errors = append(status.Errors, fmt.Sprintf("failed to count pending events: %v", err))
		} else {
			status.PendingEvents = pending
			if pending > pendingWarnThreshold {
				status.Errors = append(status.Errors, fmt.Sprintf("high pending event count: %d", pending))
			}
		}
	}

	// A backlog with no recent publish means the relay is stuck.
	if status.PendingEvents > 0 && !status.LastPublished.IsZero() {
		idle := h.clock.Since(status.LastPublished)
		if idle > h.threshold {
			status.Healthy = false
			status.Errors = append(status.Errors, fmt.Sprintf("no events published for %s", idle.Round(time.Second)))
		}
	}

	return status
}

// ServeHTTP handles GET /health/relay
func (h *RelayHealth) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")
	if !status.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(status); err != nil {
		log.Error().Err(err).Msg("failed to encode relay health")
	}
}
