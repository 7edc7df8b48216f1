package events

import (
	"time"

	"github.com/mcdev12/planpoker/go/internal/models"
)

// Event payload types shared between the voting coordinator and the gateway

type VotingSessionStartedPayload struct {
	Session           *models.VotingSession `json:"session"`
	SupersededSession string                `json:"superseded_session_id,omitempty"`
}

type VoteSubmittedPayload struct {
	SessionID         string `json:"session_id"`
	StoryID           string `json:"story_id"`
	UserID            string `json:"user_id"`
	Round             int    `json:"round"`
	VoteCount         int    `json:"vote_count"`
	TotalParticipants int    `json:"total_participants"`
}

// RevealedVote is a vote made visible by a reveal.
type RevealedVote struct {
	UserID      string    `json:"user_id"`
	Value       string    `json:"value"`
	Confidence  *float64  `json:"confidence,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// VotesRevealedPayload doubles as the hide notification when Revealed is false.
type VotesRevealedPayload struct {
	SessionID string                  `json:"session_id"`
	StoryID   string                  `json:"story_id"`
	Round     int                     `json:"round"`
	Revealed  bool                    `json:"revealed"`
	Automatic bool                    `json:"automatic,omitempty"`
	Votes     []RevealedVote          `json:"votes,omitempty"`
	Consensus *models.ConsensusResult `json:"consensus"`
}

type VotingResetPayload struct {
	SessionID string `json:"session_id"`
	StoryID   string `json:"story_id"`
	Round     int    `json:"round"`
}

type VotingSessionEndedPayload struct {
	SessionID string `json:"session_id"`
	StoryID   string `json:"story_id"`
}

type FinalEstimateSavedPayload struct {
	SessionID     string                  `json:"session_id"`
	StoryID       string                  `json:"story_id"`
	FinalEstimate models.FinalEstimate    `json:"final_estimate"`
	VoteCount     int                     `json:"vote_count"`
	Consensus     *models.ConsensusResult `json:"consensus,omitempty"`
}

type TimerStartedPayload struct {
	SessionID   string    `json:"session_id"`
	StoryID     string    `json:"story_id"`
	DurationSec int       `json:"duration_sec"`
	StartedAt   time.Time `json:"started_at"`
	EndsAt      time.Time `json:"ends_at"`
}

type TimerStoppedPayload struct {
	SessionID string `json:"session_id"`
	StoryID   string `json:"story_id"`
}

type TimerPausedPayload struct {
	SessionID    string    `json:"session_id"`
	StoryID      string    `json:"story_id"`
	PausedAt     time.Time `json:"paused_at"`
	RemainingSec int       `json:"remaining_sec"`
}

type TimerResumedPayload struct {
	SessionID string    `json:"session_id"`
	StoryID   string    `json:"story_id"`
	EndsAt    time.Time `json:"ends_at"`
}

type TimerExpiredPayload struct {
	SessionID string    `json:"session_id"`
	StoryID   string    `json:"story_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

type ParticipantPayload struct {
	Participant *models.Participant `json:"participant"`
}

type ParticipantLeftPayload struct {
	UserID  string `json:"user_id"`
	Removed bool   `json:"removed"`
}

type RoleChangedPayload struct {
	UserID    string      `json:"user_id"`
	Role      models.Role `json:"role"`
	ChangedBy string      `json:"changed_by"`
}

type StoryCreatedPayload struct {
	Story *models.Story `json:"story"`
}

type StoryArchivedPayload struct {
	StoryID string `json:"story_id"`
}

// ErrorPayload is delivered only to the connection whose action failed.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
