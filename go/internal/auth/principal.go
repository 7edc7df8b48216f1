package auth

import (
	"github.com/google/uuid"
)

// Principal is the identity bound to a connection once it has joined a
// room. Every coordinator call receives one.
type Principal struct {
	UserID       uuid.UUID `json:"user_id"`
	RoomCode     string    `json:"room_code"`
	DisplayName  string    `json:"display_name,omitempty"`
	ConnectionID string    `json:"connection_id,omitempty"`
}

// Authenticated reports whether p names a user in a room.
func (p Principal) Authenticated() bool {
	return p.UserID != uuid.Nil && p.RoomCode != ""
}
