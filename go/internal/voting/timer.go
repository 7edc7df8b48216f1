package voting

import (
	"time"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// Timer math works from wall-clock timestamps only. Pausing records when
// the pause began; resuming shifts the deadline by the length of the pause.

// StartTimer returns a running timer of d starting at now.
func StartTimer(now time.Time, d time.Duration) models.TimerState {
	started := now
	ends := now.Add(d)
	return models.TimerState{
		DurationSec: int(d / time.Second),
		StartedAt:   &started,
		EndsAt:      &ends,
	}
}

// StopTimer returns the cleared timer state.
func StopTimer() models.TimerState {
	return models.TimerState{}
}

// TimerRunning reports whether t has a deadline and is not paused.
func TimerRunning(t models.TimerState) bool {
	return t.EndsAt != nil && !t.Paused
}

func PauseTimer(t models.TimerState, now time.Time) (models.TimerState, error) {
	if t.EndsAt == nil {
		return t, apperrors.InvalidState("no timer is running")
	}
	if t.Paused {
		return t, apperrors.InvalidState("timer is already paused")
	}
	paused := now
	t.Paused = true
	t.PausedAt = &paused
	return t, nil
}

func ResumeTimer(t models.TimerState, now time.Time) (models.TimerState, error) {
	if t.EndsAt == nil || !t.Paused || t.PausedAt == nil {
		return t, apperrors.InvalidState("timer is not paused")
	}
	gap := now.Sub(*t.PausedAt)
	if gap < 0 {
		gap = 0
	}
	ends := t.EndsAt.Add(gap)
	t.EndsAt = &ends
	t.PausedDuration += gap
	t.Paused = false
	t.PausedAt = nil
	return t, nil
}

// Remaining returns the time left on t as of now. A paused timer reports
// what was left when it was paused.
func Remaining(t models.TimerState, now time.Time) time.Duration {
	if t.EndsAt == nil {
		return 0
	}
	ref := now
	if t.Paused && t.PausedAt != nil {
		ref = *t.PausedAt
	}
	left := t.EndsAt.Sub(ref)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the deadline of a running timer has passed. The
// deadline instant itself still accepts votes. Paused timers never expire.
func Expired(t models.TimerState, now time.Time) bool {
	return TimerRunning(t) && now.After(*t.EndsAt)
}
