package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of room event
type EventType string

const (
	EventTypeVotingSessionStarted EventType = "voting_session_started"
	EventTypeVoteSubmitted        EventType = "vote_submitted"
	EventTypeVotesRevealed        EventType = "votes_revealed"
	EventTypeVotingReset          EventType = "voting_reset"
	EventTypeVotingSessionEnded   EventType = "voting_session_ended"
	EventTypeFinalEstimateSaved   EventType = "final_estimate_saved"
	EventTypeTimerStarted         EventType = "timer_started"
	EventTypeTimerStopped         EventType = "timer_stopped"
	EventTypeTimerPaused          EventType = "timer_paused"
	EventTypeTimerResumed         EventType = "timer_resumed"
	EventTypeTimerExpired         EventType = "timer_expired"

	EventTypeParticipantJoined EventType = "participant_joined"
	EventTypeParticipantLeft   EventType = "participant_left"
	EventTypeRoleChanged       EventType = "role_changed"
	EventTypeStoryCreated      EventType = "story_created"
	EventTypeStoryArchived     EventType = "story_archived"

	// Sent only to the requesting connection.
	EventTypeRoomState EventType = "room_state"
	EventTypeError     EventType = "error"
)

// Event is the envelope delivered to room members.
type Event struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// New marshals payload into a fresh event for roomCode.
func New(roomCode string, eventType EventType, payload any, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &Event{
		ID:        uuid.New().String(),
		RoomCode:  roomCode,
		Type:      eventType,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Known reports whether t is an event type this service emits.
func Known(t EventType) bool {
	switch t {
	case EventTypeVotingSessionStarted, EventTypeVoteSubmitted, EventTypeVotesRevealed,
		EventTypeVotingReset, EventTypeVotingSessionEnded, EventTypeFinalEstimateSaved,
		EventTypeTimerStarted, EventTypeTimerStopped, EventTypeTimerPaused,
		EventTypeTimerResumed, EventTypeTimerExpired,
		EventTypeParticipantJoined, EventTypeParticipantLeft, EventTypeRoleChanged,
		EventTypeStoryCreated, EventTypeStoryArchived, EventTypeRoomState, EventTypeError:
		return true
	}
	return false
}
