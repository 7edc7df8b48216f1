package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus defines where a backlog item is in the estimation flow.
type StoryStatus string

const (
	StoryStatusBacklog   StoryStatus = "backlog"
	StoryStatusReady     StoryStatus = "ready"
	StoryStatusVoting    StoryStatus = "voting"
	StoryStatusVoted     StoryStatus = "voted"
	StoryStatusEstimated StoryStatus = "estimated"
	StoryStatusCompleted StoryStatus = "completed"
	StoryStatusArchived  StoryStatus = "archived"
)

func (s StoryStatus) Valid() bool {
	switch s {
	case StoryStatusBacklog, StoryStatusReady, StoryStatusVoting, StoryStatusVoted,
		StoryStatusEstimated, StoryStatusCompleted, StoryStatusArchived:
		return true
	}
	return false
}

// FinalEstimate is the value a room settled on for a story.
type FinalEstimate struct {
	Value       string    `json:"value"`
	Confidence  *float64  `json:"confidence,omitempty"`
	FinalizedBy uuid.UUID `json:"finalized_by"`
	FinalizedAt time.Time `json:"finalized_at"`
}

// Story is a backlog item belonging to one room.
type Story struct {
	ID            uuid.UUID      `json:"id"`
	RoomCode      string         `json:"room_code"`
	Title         string         `json:"title"`
	Description   *string        `json:"description,omitempty"`
	Status        StoryStatus    `json:"status"`
	FinalEstimate *FinalEstimate `json:"final_estimate,omitempty"`
	CreatedBy     uuid.UUID      `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
