package eventbus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/eventbus/db"
	"github.com/mcdev12/planpoker/go/internal/events"
)

// OutboxNotifier records events in room_event_outbox. An insert trigger
// wakes the Relay, which forwards the row to JetStream.
type OutboxNotifier struct {
	queries db.Querier
}

func NewOutboxNotifier(conn db.DBTX) *OutboxNotifier {
	return &OutboxNotifier{queries: db.New(conn)}
}

func (o *OutboxNotifier) Notify(ctx context.Context, ev *events.Event) error {
	id, err := uuid.Parse(ev.ID)
	if err != nil {
		return fmt.Errorf("event id %q is not a uuid: %w", ev.ID, err)
	}
	err = o.queries.InsertOutboxEvent(ctx, db.InsertOutboxEventParams{
		ID:        id,
		RoomCode:  ev.RoomCode,
		EventType: string(ev.Type),
		Payload:   ev.Data,
		CreatedAt: ev.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	log.Debug().
		Str("event_id", ev.ID).
		Str("event_type", string(ev.Type)).
		Str("room_code", ev.RoomCode).
		Msg("event written to outbox")
	return nil
}
