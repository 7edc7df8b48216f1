package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// RosterReader is what the gatekeeper needs from the room registry.
type RosterReader interface {
	GetParticipant(ctx context.Context, roomCode string, userID uuid.UUID) (*models.Participant, error)
}

// Gatekeeper maps connections to durable identities and answers whether an
// identity may administer a room.
type Gatekeeper struct {
	roster RosterReader

	mu          sync.RWMutex
	connections map[string]Principal
}

func NewGatekeeper(roster RosterReader) *Gatekeeper {
	return &Gatekeeper{
		roster:      roster,
		connections: make(map[string]Principal),
	}
}

// Bind records the identity established by a successful room join.
func (g *Gatekeeper) Bind(connectionID string, p Principal) {
	p.ConnectionID = connectionID
	g.mu.Lock()
	g.connections[connectionID] = p
	g.mu.Unlock()
}

// Unbind forgets a closed connection and returns the identity it held.
func (g *Gatekeeper) Unbind(connectionID string) (Principal, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.connections[connectionID]
	delete(g.connections, connectionID)
	return p, ok
}

// Resolve returns the identity bound to connectionID. Unmapped connections
// are unauthorized.
func (g *Gatekeeper) Resolve(connectionID string) (Principal, error) {
	g.mu.RLock()
	p, ok := g.connections[connectionID]
	g.mu.RUnlock()
	if !ok || !p.Authenticated() {
		return Principal{}, apperrors.Unauthorized("join a room first")
	}
	return p, nil
}

// ConnectionsFor counts live connections of userID in roomCode.
func (g *Gatekeeper) ConnectionsFor(roomCode string, userID uuid.UUID) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n := 0
	for _, p := range g.connections {
		if p.RoomCode == roomCode && p.UserID == userID {
			n++
		}
	}
	return n
}

// IsAdmin reports whether userID holds the host or facilitator role in
// roomCode.
func (g *Gatekeeper) IsAdmin(ctx context.Context, userID uuid.UUID, roomCode string) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	participant, err := g.roster.GetParticipant(ctx, roomCode, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load participant: %w", err)
	}
	return participant.Role.IsAdmin(), nil
}

// RequireAdmin fails closed with Unauthorized unless p administers its room.
func (g *Gatekeeper) RequireAdmin(ctx context.Context, p Principal) error {
	if !p.Authenticated() {
		return apperrors.Unauthorized("join a room first")
	}
	ok, err := g.IsAdmin(ctx, p.UserID, p.RoomCode)
	if err != nil {
		return err
	}
	if !ok {
		log.Debug().
			Str("user_id", p.UserID.String()).
			Str("room_code", p.RoomCode).
			Msg("admin action denied")
		return apperrors.Unauthorized("only the host or a facilitator can do that")
	}
	return nil
}
