package voting

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// ExpiryScheduler arms one timer per session deadline and calls onExpire
// when it fires. Deadlines are advisory: the callback re-reads the session
// and decides what expiry means.
type ExpiryScheduler struct {
	clock    clockwork.Clock
	onExpire func(ctx context.Context, sessionID uuid.UUID)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	timers map[uuid.UUID]*deadline
}

type deadline struct {
	timer clockwork.Timer
	at    time.Time
	done  chan struct{}
}

func NewExpiryScheduler(clock clockwork.Clock, onExpire func(ctx context.Context, sessionID uuid.UUID)) *ExpiryScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &ExpiryScheduler{
		clock:    clock,
		onExpire: onExpire,
		ctx:      ctx,
		cancel:   cancel,
		timers:   make(map[uuid.UUID]*deadline),
	}
}

// Schedule arms a deadline for sessionID at at, replacing any earlier one.
func (s *ExpiryScheduler) Schedule(sessionID uuid.UUID, at time.Time) {
	if s.ctx.Err() != nil {
		return
	}
	d := at.Sub(s.clock.Now())
	if d < 0 {
		d = 0
	}
	dl := &deadline{timer: s.clock.NewTimer(d), at: at, done: make(chan struct{})}
	s.replace(sessionID, dl)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		select {
		case <-dl.timer.Chan():
			if !s.remove(sessionID, dl) {
				return
			}
			log.Debug().
				Str("session_id", sessionID.String()).
				Time("deadline", at).
				Msg("session deadline reached")
			s.onExpire(s.ctx, sessionID)
		case <-dl.done:
			stopAndDrainTimer(dl.timer)
		case <-s.ctx.Done():
			stopAndDrainTimer(dl.timer)
		}
	}()

	log.Debug().
		Str("session_id", sessionID.String()).
		Time("deadline", at).
		Dur("duration", d).
		Msg("scheduled session deadline")
}

// Cancel disarms the deadline of sessionID, if any.
func (s *ExpiryScheduler) Cancel(sessionID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dl, ok := s.timers[sessionID]; ok {
		close(dl.done)
		delete(s.timers, sessionID)
	}
}

// Deadline returns the armed deadline of sessionID.
func (s *ExpiryScheduler) Deadline(sessionID uuid.UUID) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dl, ok := s.timers[sessionID]
	if !ok {
		return time.Time{}, false
	}
	return dl.at, true
}

func (s *ExpiryScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop disarms everything and waits for in-flight callbacks.
func (s *ExpiryScheduler) Stop() {
	s.cancel()
	s.mu.Lock()
	s.timers = make(map[uuid.UUID]*deadline)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *ExpiryScheduler) replace(sessionID uuid.UUID, dl *deadline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.timers[sessionID]; ok {
		close(existing.done)
	}
	s.timers[sessionID] = dl
}

// remove deletes dl if it is still the armed deadline for sessionID.
func (s *ExpiryScheduler) remove(sessionID uuid.UUID, dl *deadline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.timers[sessionID]; ok && current == dl {
		delete(s.timers, sessionID)
		return true
	}
	return false
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
