package voting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/events"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// StartTimer (re)starts the countdown of the current round. Without an
// explicit duration the session's configured duration is used.
func (c *Coordinator) StartTimer(ctx context.Context, p auth.Principal, req StartTimerRequest) (*models.TimerState, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	id, err := c.resolve(ctx, req.SessionRef)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}
	if s.VotesRevealed {
		return nil, apperrors.InvalidState("votes are already revealed for this round")
	}

	secs := s.TimerSeconds
	if req.DurationSec != nil {
		secs = *req.DurationSec
	}
	if secs <= 0 {
		return nil, apperrors.InvalidArgument("timer duration must be positive")
	}
	if secs > models.MaxTimerSeconds {
		return nil, apperrors.InvalidArgument(fmt.Sprintf("timer duration cannot exceed %d seconds", models.MaxTimerSeconds))
	}

	now := c.clock.Now()
	next := s.Clone()
	next.TimerSeconds = secs
	next.Timer = StartTimer(now, time.Duration(secs)*time.Second)
	next.UpdatedAt = now
	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist timer start: %w", err)
	}
	c.deadlines.Schedule(s.ID, *next.Timer.EndsAt)

	c.notify(ctx, s.RoomCode, events.EventTypeTimerStarted, events.TimerStartedPayload{
		SessionID:   s.ID.String(),
		StoryID:     s.StoryID.String(),
		DurationSec: secs,
		StartedAt:   *next.Timer.StartedAt,
		EndsAt:      *next.Timer.EndsAt,
	})
	log.Info().Str("session_id", s.ID.String()).Int("duration_sec", secs).Msg("timer started")
	return &next.Timer, nil
}

// StopTimer clears the countdown. Stopping when no timer runs is a no-op.
func (c *Coordinator) StopTimer(ctx context.Context, p auth.Principal, ref SessionRef) error {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return err
	}
	if !s.IsActive {
		return apperrors.InvalidState("voting session is not active")
	}
	if s.Timer.EndsAt == nil {
		return nil
	}

	next := s.Clone()
	next.Timer = StopTimer()
	next.UpdatedAt = c.clock.Now()
	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return fmt.Errorf("failed to persist timer stop: %w", err)
	}
	c.deadlines.Cancel(s.ID)

	c.notify(ctx, s.RoomCode, events.EventTypeTimerStopped, events.TimerStoppedPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
	})
	log.Info().Str("session_id", s.ID.String()).Msg("timer stopped")
	return nil
}

func (c *Coordinator) PauseTimer(ctx context.Context, p auth.Principal, ref SessionRef) (*models.TimerState, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}

	now := c.clock.Now()
	if Expired(s.Timer, now) {
		return nil, apperrors.InvalidState("expired")
	}
	timer, err := PauseTimer(s.Timer, now)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	next.Timer = timer
	next.UpdatedAt = now
	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist timer pause: %w", err)
	}
	c.deadlines.Cancel(s.ID)

	remaining := Remaining(timer, now)
	c.notify(ctx, s.RoomCode, events.EventTypeTimerPaused, events.TimerPausedPayload{
		SessionID:    s.ID.String(),
		StoryID:      s.StoryID.String(),
		PausedAt:     now,
		RemainingSec: int(remaining.Round(time.Second) / time.Second),
	})
	log.Info().Str("session_id", s.ID.String()).Dur("remaining", remaining).Msg("timer paused")
	return &next.Timer, nil
}

// ResumeTimer continues a paused countdown; the deadline moves later by
// the length of the pause.
func (c *Coordinator) ResumeTimer(ctx context.Context, p auth.Principal, ref SessionRef) (*models.TimerState, error) {
	if err := c.authz.RequireAdmin(ctx, p); err != nil {
		return nil, err
	}
	id, err := c.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}

	unlock := c.locks.Lock(id)
	defer unlock()

	s, err := c.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if !s.IsActive {
		return nil, apperrors.InvalidState("voting session is not active")
	}

	now := c.clock.Now()
	timer, err := ResumeTimer(s.Timer, now)
	if err != nil {
		return nil, err
	}

	next := s.Clone()
	next.Timer = timer
	next.UpdatedAt = now
	if err := c.sessions.UpdateSession(ctx, next); err != nil {
		return nil, fmt.Errorf("failed to persist timer resume: %w", err)
	}
	c.deadlines.Schedule(s.ID, *timer.EndsAt)

	c.notify(ctx, s.RoomCode, events.EventTypeTimerResumed, events.TimerResumedPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
		EndsAt:    *timer.EndsAt,
	})
	log.Info().Str("session_id", s.ID.String()).Time("ends_at", *timer.EndsAt).Msg("timer resumed")
	return &next.Timer, nil
}

// HandleDeadline runs when a session's deadline fires. Sessions with the
// timer reveal policy are revealed; the others are told the time is up and
// stop taking votes.
func (c *Coordinator) HandleDeadline(ctx context.Context, sessionID uuid.UUID) {
	unlock := c.locks.Lock(sessionID)
	defer unlock()

	s, err := c.sessions.GetSession(ctx, sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("failed to load session for deadline")
		return
	}
	if !s.IsActive || s.VotesRevealed || !TimerRunning(s.Timer) {
		return
	}
	if !Expired(s.Timer, c.clock.Now()) {
		// The deadline moved since this callback was armed, or it fired on
		// the deadline instant itself, which still accepts votes.
		c.deadlines.Schedule(s.ID, s.Timer.EndsAt.Add(time.Nanosecond))
		return
	}

	log.Info().
		Str("session_id", s.ID.String()).
		Str("reveal_policy", string(s.RevealPolicy)).
		Msg("voting timer expired")

	if s.RevealPolicy == models.RevealPolicyTimer {
		if _, err := c.reveal(ctx, s, true); err != nil {
			log.Error().Err(err).Str("session_id", s.ID.String()).Msg("reveal on expiry failed")
		}
		return
	}
	c.notify(ctx, s.RoomCode, events.EventTypeTimerExpired, events.TimerExpiredPayload{
		SessionID: s.ID.String(),
		StoryID:   s.StoryID.String(),
		ExpiredAt: *s.Timer.EndsAt,
	})
}
