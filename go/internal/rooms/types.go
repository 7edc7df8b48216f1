package rooms

import (
	"github.com/google/uuid"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// CreateRoomRequest represents a request to open a new room
type CreateRoomRequest struct {
	HostName string               `json:"host_name"`
	Settings *models.RoomSettings `json:"settings,omitempty"`
}

// JoinRoomRequest represents a request to join or rejoin a room. UserID is
// set when the caller presented a valid join token for the room.
type JoinRoomRequest struct {
	Code        string    `json:"room_code"`
	DisplayName string    `json:"display_name"`
	UserID      uuid.UUID `json:"-"`
}

// CreateStoryRequest represents a request to add a backlog item
type CreateStoryRequest struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}
