package gateway

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/mcdev12/planpoker/go/internal/models"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

// Action names a client request sent over the WebSocket.
type Action string

const (
	ActionJoinRoom    Action = "join_room"
	ActionLeaveRoom   Action = "leave_room"
	ActionSetRole     Action = "set_role"
	ActionGetState    Action = "get_state"
	ActionCreateStory Action = "create_story"
	ActionArchive     Action = "archive_story"

	ActionStartSession  Action = "start_voting_session"
	ActionSubmitVote    Action = "submit_vote"
	ActionRevealVotes   Action = "reveal_votes"
	ActionHideVotes     Action = "hide_votes"
	ActionResetVoting   Action = "reset_voting"
	ActionEndSession    Action = "end_voting_session"
	ActionFinalEstimate Action = "save_final_estimate"

	ActionStartTimer  Action = "start_timer"
	ActionStopTimer   Action = "stop_timer"
	ActionPauseTimer  Action = "pause_timer"
	ActionResumeTimer Action = "resume_timer"
)

// ClientMessage is the frame a client sends.
type ClientMessage struct {
	Action    Action          `json:"action"`
	RequestID string          `json:"request_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type JoinRoomData struct {
	RoomCode    string `json:"room_code"`
	DisplayName string `json:"display_name"`
	Token       string `json:"token,omitempty"`
}

type SetRoleData struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   models.Role `json:"role"`
}

type ArchiveStoryData struct {
	StoryID uuid.UUID `json:"story_id"`
}

// RoomState is the snapshot a member receives after joining and from the
// state endpoint.
type RoomState struct {
	Room     *models.Room         `json:"room"`
	Stories  []*models.Story      `json:"stories"`
	Sessions []voting.SessionView `json:"sessions"`
	Decks    []string             `json:"decks"`
}

// JoinedState is RoomState plus what only the joining member should see.
type JoinedState struct {
	RoomState
	You   *models.Participant `json:"you"`
	Token string              `json:"token"`
}
