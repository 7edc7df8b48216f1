package eventbus

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/eventbus/db"
	"github.com/mcdev12/planpoker/go/internal/events"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// fakeOutbox is an in-memory room_event_outbox.
type fakeOutbox struct {
	mu      sync.Mutex
	rows    []db.RoomEventOutbox
	deleted []sql.NullTime
}

func (f *fakeOutbox) InsertOutboxEvent(_ context.Context, arg db.InsertOutboxEventParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, db.RoomEventOutbox{
		ID: arg.ID, RoomCode: arg.RoomCode, EventType: arg.EventType,
		Payload: arg.Payload, CreatedAt: arg.CreatedAt,
	})
	return nil
}

func (f *fakeOutbox) FetchOutboxByID(_ context.Context, id uuid.UUID) (db.FetchOutboxByIDRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id && !r.SentAt.Valid {
			return db.FetchOutboxByIDRow{ID: r.ID, RoomCode: r.RoomCode, EventType: r.EventType, Payload: r.Payload, CreatedAt: r.CreatedAt}, nil
		}
	}
	return db.FetchOutboxByIDRow{}, sql.ErrNoRows
}

func (f *fakeOutbox) FetchUnsentOutbox(_ context.Context, limit int32) ([]db.FetchUnsentOutboxRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []db.FetchUnsentOutboxRow
	for _, r := range f.rows {
		if !r.SentAt.Valid && int32(len(out)) < limit {
			out = append(out, db.FetchUnsentOutboxRow{ID: r.ID, RoomCode: r.RoomCode, EventType: r.EventType, Payload: r.Payload, CreatedAt: r.CreatedAt})
		}
	}
	return out, nil
}

func (f *fakeOutbox) MarkOutboxSent(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].ID == id {
			f.rows[i].SentAt = sql.NullTime{Time: now, Valid: true}
		}
	}
	return nil
}

func (f *fakeOutbox) CountUnsentOutbox(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rows {
		if !r.SentAt.Valid {
			n++
		}
	}
	return n, nil
}

func (f *fakeOutbox) DeleteSentOutboxBefore(_ context.Context, sentAt sql.NullTime) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, sentAt)
	return 0, nil
}

// fakePublisher fails the first failures calls.
type fakePublisher struct {
	mu        sync.Mutex
	failures  int
	calls     int
	published []*events.Event
}

func (f *fakePublisher) Publish(_ context.Context, ev *events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures > 0 {
		f.failures--
		return errors.New("nats unavailable")
	}
	f.published = append(f.published, ev)
	return nil
}

func newEvent(t *testing.T, room string, typ events.EventType) *events.Event {
	t.Helper()
	ev, err := events.New(room, typ, events.VotingSessionEndedPayload{SessionID: "s", StoryID: "t"}, now)
	require.NoError(t, err)
	return ev
}

func testRelay(store db.Querier, pub Publisher) *Relay {
	cfg := DefaultRelayConfig()
	cfg.RetryDelay = time.Millisecond
	cfg.MaxRetries = 2
	return &Relay{queries: store, publisher: pub, cfg: cfg}
}

func TestSubjectAndCodec(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	ev := newEvent(t, "abc123", events.EventTypeVotingSessionEnded)

	assert.Equal(t, "poker.events.ABC123.voting_session_ended", cfg.Subject(ev))
	assert.Equal(t, "poker.events.>", cfg.SubjectFilter())

	msg, err := NewMsg(cfg, ev)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, msg.Header.Get(HeaderEventID))
	assert.Equal(t, "voting_session_ended", msg.Header.Get(HeaderEventType))

	decoded, err := DecodeMsg(msg.Data)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, ev.RoomCode, decoded.RoomCode)
	assert.JSONEq(t, string(ev.Data), string(decoded.Data))

	_, err = DecodeMsg([]byte(`{"id":"x"}`))
	assert.Error(t, err)
	_, err = DecodeMsg([]byte(`not json`))
	assert.Error(t, err)
}

func TestLocalBus(t *testing.T) {
	bus := NewLocal()
	var got []events.EventType
	bus.Subscribe(func(ev *events.Event) { got = append(got, ev.Type) })
	bus.Subscribe(func(ev *events.Event) { got = append(got, ev.Type) })

	require.NoError(t, bus.Notify(context.Background(), newEvent(t, "ABC123", events.EventTypeTimerStopped)))
	assert.Equal(t, []events.EventType{events.EventTypeTimerStopped, events.EventTypeTimerStopped}, got)
}

func TestOutboxNotifier(t *testing.T) {
	store := &fakeOutbox{}
	n := &OutboxNotifier{queries: store}
	ev := newEvent(t, "ABC123", events.EventTypeVotingSessionEnded)

	require.NoError(t, n.Notify(context.Background(), ev))
	require.Len(t, store.rows, 1)
	assert.Equal(t, ev.ID, store.rows[0].ID.String())
	assert.Equal(t, "voting_session_ended", store.rows[0].EventType)

	ev.ID = "not-a-uuid"
	assert.Error(t, n.Notify(context.Background(), ev))
}

func TestRelayHandleNotification(t *testing.T) {
	ctx := context.Background()
	store := &fakeOutbox{}
	pub := &fakePublisher{failures: 1}
	ev := newEvent(t, "ABC123", events.EventTypeVotingSessionEnded)
	require.NoError(t, (&OutboxNotifier{queries: store}).Notify(ctx, ev))

	r := testRelay(store, pub)
	require.NoError(t, r.handleNotification(ctx, ev.ID))
	assert.Equal(t, 2, pub.calls)
	require.Len(t, pub.published, 1)
	assert.Equal(t, ev.ID, pub.published[0].ID)
	assert.True(t, store.rows[0].SentAt.Valid)

	// Already sent: nothing to do.
	require.NoError(t, r.handleNotification(ctx, ev.ID))
	assert.Equal(t, 2, pub.calls)

	assert.Error(t, r.handleNotification(ctx, "garbage"))
}

func TestRelayProcessUnsentStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	store := &fakeOutbox{}
	notifier := &OutboxNotifier{queries: store}
	for i := 0; i < 3; i++ {
		require.NoError(t, notifier.Notify(ctx, newEvent(t, "ABC123", events.EventTypeTimerStarted)))
	}

	pub := &fakePublisher{failures: 100}
	r := testRelay(store, pub)
	sent, err := r.processUnsent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Equal(t, 3, pub.calls, "one row retried MaxRetries+1 times, later rows untouched")

	pub.failures = 0
	sent, err = r.processUnsent(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, sent)
	for _, row := range store.rows {
		assert.True(t, row.SentAt.Valid)
	}
}

func TestRelayCleanup(t *testing.T) {
	store := &fakeOutbox{}
	r := testRelay(store, &fakePublisher{})
	_, err := r.cleanup(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, store.deleted, 1)
	assert.Equal(t, now.Add(-24*time.Hour), store.deleted[0].Time)
}
