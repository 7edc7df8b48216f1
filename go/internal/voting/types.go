package voting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/planpoker/go/internal/auth"
	"github.com/mcdev12/planpoker/go/internal/events"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// SessionRepository defines what the coordinator needs from durable
// session storage. Writes are the commit point of every transition.
type SessionRepository interface {
	// CreateSession deactivates any active session of the same story and
	// inserts s, atomically. It returns the ids it deactivated.
	CreateSession(ctx context.Context, s *models.VotingSession) ([]uuid.UUID, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.VotingSession, error)
	GetActiveSessionForStory(ctx context.Context, storyID uuid.UUID) (*models.VotingSession, error)
	ListActiveSessions(ctx context.Context) ([]*models.VotingSession, error)
	ListActiveSessionsForRoom(ctx context.Context, roomCode string) ([]*models.VotingSession, error)
	UpdateSession(ctx context.Context, s *models.VotingSession) error
	// FinalizeSession stores the completed session and its votes together.
	FinalizeSession(ctx context.Context, s *models.VotingSession, votes []models.VoteRecord) error
	ListVotes(ctx context.Context, sessionID uuid.UUID) ([]models.VoteRecord, error)
}

// StoryRegistry is the slice of the room registry the coordinator reads
// and the few story and roster fields it may update.
type StoryRegistry interface {
	GetStory(ctx context.Context, id uuid.UUID) (*models.Story, error)
	GetRoom(ctx context.Context, code string) (*models.Room, error)
	UpdateStoryStatus(ctx context.Context, id uuid.UUID, status models.StoryStatus) error
	SetFinalEstimate(ctx context.Context, id uuid.UUID, estimate models.FinalEstimate) error
	MarkVoted(ctx context.Context, roomCode string, userID uuid.UUID) error
	ResetVoted(ctx context.Context, roomCode string) error
}

// Authorizer answers the admin predicate for a principal.
type Authorizer interface {
	RequireAdmin(ctx context.Context, p auth.Principal) error
}

// Notifier delivers coordinator events to the members of a room.
type Notifier interface {
	Notify(ctx context.Context, event *events.Event) error
}

// SessionRef points at a session directly or through its story's active
// session.
type SessionRef struct {
	SessionID uuid.UUID `json:"session_id"`
	StoryID   uuid.UUID `json:"story_id"`
}

type StartSessionRequest struct {
	StoryID      uuid.UUID       `json:"story_id"`
	DeckType     models.DeckType `json:"deck_type"`
	TimerSeconds *int            `json:"timer_seconds"`
}

type SubmitVoteRequest struct {
	SessionRef
	Value      string   `json:"value"`
	Confidence *float64 `json:"confidence"`
}

type FinalizeRequest struct {
	SessionRef
	Estimate   string   `json:"final_estimate"`
	Confidence *float64 `json:"confidence"`
}

type StartTimerRequest struct {
	SessionRef
	DurationSec *int `json:"duration"`
}

// VoteProgress reports intake progress without exposing vote values.
type VoteProgress struct {
	SessionID         uuid.UUID               `json:"session_id"`
	Round             int                     `json:"round"`
	VoteCount         int                     `json:"vote_count"`
	TotalParticipants int                     `json:"total_participants"`
	Revealed          bool                    `json:"revealed"`
	Consensus         *models.ConsensusResult `json:"consensus,omitempty"`
}

// SessionView is a session as shown to room members. Votes are only
// present once revealed.
type SessionView struct {
	Session      *models.VotingSession `json:"session"`
	VoteCount    int                   `json:"vote_count"`
	Voters       []uuid.UUID           `json:"voters"`
	Votes        []events.RevealedVote `json:"votes,omitempty"`
	RemainingSec *int                  `json:"remaining_sec,omitempty"`
}

// Deadlines arms and disarms timer expiry callbacks.
type Deadlines interface {
	Schedule(sessionID uuid.UUID, at time.Time)
	Cancel(sessionID uuid.UUID)
	Stop()
}
