package voting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestTimerPauseResume(t *testing.T) {
	timer := StartTimer(t0, 60*time.Second)
	require.True(t, TimerRunning(timer))

	at := t0.Add(30 * time.Second)
	assert.Equal(t, 30*time.Second, Remaining(timer, at))

	paused, err := PauseTimer(timer, at)
	require.NoError(t, err)
	assert.False(t, TimerRunning(paused))

	// A paused timer neither counts down nor expires.
	later := at.Add(10 * time.Minute)
	assert.Equal(t, 30*time.Second, Remaining(paused, later))
	assert.False(t, Expired(paused, later))

	resumed, err := ResumeTimer(paused, at.Add(10*time.Second))
	require.NoError(t, err)
	assert.True(t, resumed.EndsAt.Equal(t0.Add(70*time.Second)))
	assert.Equal(t, 10*time.Second, resumed.PausedDuration)
	assert.Equal(t, 30*time.Second, Remaining(resumed, at.Add(10*time.Second)))
}

func TestTimerInvalidTransitions(t *testing.T) {
	_, err := PauseTimer(StopTimer(), t0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	paused, err := PauseTimer(StartTimer(t0, time.Minute), t0)
	require.NoError(t, err)
	_, err = PauseTimer(paused, t0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)

	_, err = ResumeTimer(StartTimer(t0, time.Minute), t0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestTimerExpired(t *testing.T) {
	timer := StartTimer(t0, time.Minute)
	assert.False(t, Expired(timer, t0.Add(time.Minute)))
	assert.True(t, Expired(timer, t0.Add(time.Minute+time.Millisecond)))
	assert.False(t, Expired(StopTimer(), t0.Add(time.Hour)))
	assert.Zero(t, Remaining(timer, t0.Add(2*time.Minute)))
}

type expiryRecorder struct {
	mu    sync.Mutex
	fired []uuid.UUID
	ch    chan uuid.UUID
}

func newExpiryRecorder() *expiryRecorder {
	return &expiryRecorder{ch: make(chan uuid.UUID, 8)}
}

func (r *expiryRecorder) onExpire(_ context.Context, id uuid.UUID) {
	r.mu.Lock()
	r.fired = append(r.fired, id)
	r.mu.Unlock()
	r.ch <- id
}

func (r *expiryRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

func TestExpirySchedulerFires(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	rec := newExpiryRecorder()
	s := NewExpiryScheduler(clock, rec.onExpire)
	t.Cleanup(s.Stop)

	id := uuid.New()
	s.Schedule(id, t0.Add(30*time.Second))
	at, ok := s.Deadline(id)
	require.True(t, ok)
	assert.True(t, at.Equal(t0.Add(30*time.Second)))

	clock.Advance(30 * time.Second)
	select {
	case got := <-rec.ch:
		assert.Equal(t, id, got)
	case <-time.After(2 * time.Second):
		t.Fatal("deadline did not fire")
	}
	assert.Equal(t, 0, s.Pending())
}

func TestExpirySchedulerCancel(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	rec := newExpiryRecorder()
	s := NewExpiryScheduler(clock, rec.onExpire)

	id := uuid.New()
	s.Schedule(id, t0.Add(time.Second))
	s.Cancel(id)
	s.Cancel(id)
	clock.Advance(time.Minute)

	s.Stop()
	assert.Equal(t, 0, rec.count())
}

func TestExpirySchedulerReplace(t *testing.T) {
	clock := clockwork.NewFakeClockAt(t0)
	rec := newExpiryRecorder()
	s := NewExpiryScheduler(clock, rec.onExpire)
	t.Cleanup(s.Stop)

	id := uuid.New()
	s.Schedule(id, t0.Add(10*time.Second))
	s.Schedule(id, t0.Add(40*time.Second))
	assert.Equal(t, 1, s.Pending())

	clock.Advance(20 * time.Second)
	assert.Never(t, func() bool { return rec.count() > 0 }, 100*time.Millisecond, 10*time.Millisecond)

	clock.Advance(20 * time.Second)
	require.Eventually(t, func() bool { return rec.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestExpirySchedulerStopIgnoresSchedule(t *testing.T) {
	s := NewExpiryScheduler(clockwork.NewFakeClockAt(t0), func(context.Context, uuid.UUID) {})
	s.Stop()
	s.Schedule(uuid.New(), t0.Add(time.Second))
	assert.Equal(t, 0, s.Pending())
}
