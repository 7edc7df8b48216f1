package gateway

import (
	"context"
	"fmt"

	"github.com/mcdev12/planpoker/go/internal/rooms"
	"github.com/mcdev12/planpoker/go/internal/voting"
)

// StateProvider assembles room snapshots.
type StateProvider struct {
	rooms       *rooms.App
	coordinator *voting.Coordinator
}

func NewStateProvider(roomsApp *rooms.App, coordinator *voting.Coordinator) *StateProvider {
	return &StateProvider{rooms: roomsApp, coordinator: coordinator}
}

// RoomState returns the room, its stories and its active sessions. Vote
// values appear only for revealed sessions.
func (s *StateProvider) RoomState(ctx context.Context, code string) (*RoomState, error) {
	room, err := s.rooms.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	stories, err := s.rooms.ListStories(ctx, code)
	if err != nil {
		return nil, err
	}
	sessions, err := s.coordinator.ActiveSessions(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to load active sessions: %w", err)
	}
	return &RoomState{
		Room:     room,
		Stories:  stories,
		Sessions: sessions,
		Decks:    s.rooms.Decks().Names(),
	}, nil
}
