package models

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxParticipants caps the roster of a single room.
	MaxParticipants = 30
	// DefaultRoomRetention is how long a room survives without activity.
	DefaultRoomRetention = 7 * 24 * time.Hour
	// DefaultConsensusThreshold is the agreement percentage needed for consensus.
	DefaultConsensusThreshold = 66.7
	// MaxTimerSeconds bounds every voting countdown.
	MaxTimerSeconds = 24 * 60 * 60
)

var roomCodePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// ValidRoomCode reports whether code is a well-formed room code.
func ValidRoomCode(code string) bool {
	return roomCodePattern.MatchString(code)
}

// Role defines what a participant may do in a room.
type Role string

const (
	RoleHost        Role = "host"
	RoleFacilitator Role = "facilitator"
	RoleParticipant Role = "participant"
)

// IsAdmin reports whether the role may administer voting sessions.
func (r Role) IsAdmin() bool {
	return r == RoleHost || r == RoleFacilitator
}

func (r Role) Valid() bool {
	switch r {
	case RoleHost, RoleFacilitator, RoleParticipant:
		return true
	}
	return false
}

// RevealPolicy decides when a round reveals without an explicit request.
type RevealPolicy string

const (
	// RevealPolicyAllVoted reveals once every online participant has voted.
	RevealPolicyAllVoted RevealPolicy = "all_voted"
	// RevealPolicyTimer behaves like all_voted and also reveals on timer expiry.
	RevealPolicyTimer RevealPolicy = "timer"
	// RevealPolicyManual never reveals automatically.
	RevealPolicyManual RevealPolicy = "manual"
)

func (p RevealPolicy) Valid() bool {
	switch p {
	case RevealPolicyAllVoted, RevealPolicyTimer, RevealPolicyManual:
		return true
	}
	return false
}

// RoomSettings holds JSONB configuration for rooms.
type RoomSettings struct {
	DeckType           DeckType     `json:"deck_type"`
	TimerSeconds       int          `json:"timer_seconds,omitempty"`
	RevealPolicy       RevealPolicy `json:"reveal_policy"`
	ConsensusThreshold float64      `json:"consensus_threshold"`
}

// DefaultRoomSettings returns the settings used when a host supplies none.
func DefaultRoomSettings() RoomSettings {
	return RoomSettings{
		DeckType:           DeckFibonacci,
		RevealPolicy:       RevealPolicyAllVoted,
		ConsensusThreshold: DefaultConsensusThreshold,
	}
}

// Participant is a member of a room roster.
type Participant struct {
	UserID         uuid.UUID `json:"user_id"`
	RoomCode       string    `json:"room_code"`
	DisplayName    string    `json:"display_name"`
	Role           Role      `json:"role"`
	Online         bool      `json:"online"`
	HasVoted       bool      `json:"has_voted"`
	JoinedAt       time.Time `json:"joined_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// Room is a planning room identified by its short code.
type Room struct {
	Code           string         `json:"code"`
	HostID         uuid.UUID      `json:"host_id"`
	Settings       RoomSettings   `json:"settings"`
	Participants   []*Participant `json:"participants"`
	CreatedAt      time.Time      `json:"created_at"`
	LastActivityAt time.Time      `json:"last_activity_at"`
}

// Participant returns the roster entry for userID, or nil.
func (r *Room) Participant(userID uuid.UUID) *Participant {
	for _, p := range r.Participants {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// OnlineCount returns the number of participants currently connected.
func (r *Room) OnlineCount() int {
	n := 0
	for _, p := range r.Participants {
		if p.Online {
			n++
		}
	}
	return n
}

// ExpiresAt returns when the room becomes eligible for purging.
func (r *Room) ExpiresAt(retention time.Duration) time.Time {
	return r.LastActivityAt.Add(retention)
}
