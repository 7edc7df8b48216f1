package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionPhase defines the stage a voting session is in.
type SessionPhase string

const (
	SessionPhaseStarting   SessionPhase = "starting"
	SessionPhaseVoting     SessionPhase = "voting"
	SessionPhaseDiscussing SessionPhase = "discussing"
	SessionPhaseFinalizing SessionPhase = "finalizing"
	SessionPhaseCompleted  SessionPhase = "completed"
)

// TimerState is the countdown attached to a session. All fields are zero
// when no timer is configured or the timer was stopped.
type TimerState struct {
	DurationSec    int           `json:"duration_sec,omitempty"`
	StartedAt      *time.Time    `json:"started_at,omitempty"`
	EndsAt         *time.Time    `json:"ends_at,omitempty"`
	Paused         bool          `json:"paused"`
	PausedAt       *time.Time    `json:"paused_at,omitempty"`
	PausedDuration time.Duration `json:"paused_duration_ns,omitempty"`
}

// ConsensusResult is derived from the votes of one round.
type ConsensusResult struct {
	Achieved       bool           `json:"achieved"`
	Percentage     float64        `json:"percentage"`
	FinalEstimate  string         `json:"final_estimate"`
	Confidence     float64        `json:"confidence"`
	AgreeingVoters []uuid.UUID    `json:"agreeing_voters"`
	OutlierVoters  []uuid.UUID    `json:"outlier_voters"`
	VoteCount      int            `json:"vote_count"`
	Distribution   map[string]int `json:"distribution"`
	Average        *float64       `json:"average,omitempty"`
}

// RoundSummary is one entry in a session's round log.
type RoundSummary struct {
	Round             int        `json:"round"`
	VoteCount         int        `json:"vote_count"`
	ConsensusAchieved bool       `json:"consensus_achieved"`
	StartedAt         time.Time  `json:"started_at"`
	RevealedAt        *time.Time `json:"revealed_at,omitempty"`
}

// VotingSession is the durable record of estimation on one story.
type VotingSession struct {
	ID                 uuid.UUID        `json:"id"`
	StoryID            uuid.UUID        `json:"story_id"`
	RoomCode           string           `json:"room_code"`
	Phase              SessionPhase     `json:"phase"`
	Round              int              `json:"round"`
	Deck               Deck             `json:"deck"`
	IsActive           bool             `json:"is_active"`
	VotesRevealed      bool             `json:"votes_revealed"`
	FacilitatorID      uuid.UUID        `json:"facilitator_id"`
	RevealPolicy       RevealPolicy     `json:"reveal_policy"`
	ConsensusThreshold float64          `json:"consensus_threshold"`
	TimerSeconds       int              `json:"timer_seconds,omitempty"`
	Timer              TimerState       `json:"timer"`
	Consensus          *ConsensusResult `json:"consensus,omitempty"`
	Rounds             []RoundSummary   `json:"rounds"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

// CurrentRound returns the log entry for the session's current round.
func (s *VotingSession) CurrentRound() *RoundSummary {
	for i := len(s.Rounds) - 1; i >= 0; i-- {
		if s.Rounds[i].Round == s.Round {
			return &s.Rounds[i]
		}
	}
	return nil
}

// Clone returns a deep copy safe to hand to another goroutine.
func (s *VotingSession) Clone() *VotingSession {
	if s == nil {
		return nil
	}
	c := *s
	c.Deck.Values = append([]string(nil), s.Deck.Values...)
	c.Rounds = append([]RoundSummary(nil), s.Rounds...)
	if s.Consensus != nil {
		cr := *s.Consensus
		cr.AgreeingVoters = append([]uuid.UUID(nil), s.Consensus.AgreeingVoters...)
		cr.OutlierVoters = append([]uuid.UUID(nil), s.Consensus.OutlierVoters...)
		cr.Distribution = make(map[string]int, len(s.Consensus.Distribution))
		for k, v := range s.Consensus.Distribution {
			cr.Distribution[k] = v
		}
		c.Consensus = &cr
	}
	return &c
}

// Vote is an in-flight estimate held by the vote ledger.
type Vote struct {
	SessionID   uuid.UUID `json:"session_id"`
	UserID      uuid.UUID `json:"user_id"`
	Round       int       `json:"round"`
	Value       string    `json:"value"`
	Confidence  *float64  `json:"confidence,omitempty"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// VoteRecord is the immutable durable copy of a vote from a finalized round.
type VoteRecord struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	StoryID        uuid.UUID `json:"story_id"`
	UserID         uuid.UUID `json:"user_id"`
	Round          int       `json:"round"`
	Value          string    `json:"value"`
	Confidence     *float64  `json:"confidence,omitempty"`
	IsRevealedVote bool      `json:"is_revealed_vote"`
	SubmittedAt    time.Time `json:"submitted_at"`
	CreatedAt      time.Time `json:"created_at"`
}
