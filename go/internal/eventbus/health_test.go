package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/eventbus/db"
)

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

type fakeConn bool

func (f fakeConn) IsConnected() bool { return bool(f) }

func newTestHealth(store *fakeOutbox, ping error, connected bool) (*RelayHealth, *Relay, *clockwork.FakeClock) {
	relay := testRelay(store, &fakePublisher{})
	clock := clockwork.NewFakeClockAt(now)
	h := NewRelayHealth(relay, fakePinger{err: ping}, fakeConn(connected), time.Minute)
	h.clock = clock
	return h, relay, clock
}

func TestRelayHealthHealthy(t *testing.T) {
	h, relay, _ := newTestHealth(&fakeOutbox{}, nil, true)
	relay.setRunning(true)

	status := h.Check(context.Background())
	assert.True(t, status.Healthy, status.Errors)
	assert.True(t, status.DatabaseConnected)
	assert.True(t, status.NATSConnected)
	assert.Zero(t, status.PendingEvents)
}

func TestRelayHealthFailures(t *testing.T) {
	h, _, _ := newTestHealth(&fakeOutbox{}, errors.New("connection refused"), false)

	status := h.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.False(t, status.DatabaseConnected)
	assert.False(t, status.NATSConnected)
	assert.False(t, status.RelayRunning)
	assert.Len(t, status.Errors, 3)
}

func TestRelayHealthStuckBacklog(t *testing.T) {
	store := &fakeOutbox{rows: []db.RoomEventOutbox{{ID: uuid.New(), RoomCode: "ABC123", EventType: "vote_submitted", CreatedAt: now}}}
	h, relay, clock := newTestHealth(store, nil, true)
	relay.setRunning(true)
	relay.published = 4
	relay.lastPublished = now

	status := h.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.EqualValues(t, 1, status.PendingEvents)

	clock.Advance(2 * time.Minute)
	status = h.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Errors, "no events published for 2m0s")
}

func TestRelayHealthServeHTTP(t *testing.T) {
	h, _, _ := newTestHealth(&fakeOutbox{}, nil, true)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/relay", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, []string{"relay not running"}, status.Errors)
}
