// Package memstore keeps rooms, stories and voting sessions in process
// memory. It backs STORE=memory deployments and the package tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// Rooms implements rooms.Repository.
type Rooms struct {
	mu      sync.RWMutex
	rooms   map[string]*models.Room
	stories map[uuid.UUID]*models.Story
}

func NewRooms() *Rooms {
	return &Rooms{
		rooms:   make(map[string]*models.Room),
		stories: make(map[uuid.UUID]*models.Story),
	}
}

func (r *Rooms) CreateRoom(_ context.Context, room *models.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.rooms[room.Code]; exists {
		return apperrors.Conflict("room code already in use")
	}
	r.rooms[room.Code] = cloneRoom(room)
	return nil
}

func (r *Rooms) GetRoom(_ context.Context, code string) (*models.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[code]
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	return cloneRoom(room), nil
}

func (r *Rooms) TouchRoom(_ context.Context, code string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	if at.After(room.LastActivityAt) {
		room.LastActivityAt = at
	}
	return nil
}

func (r *Rooms) DeleteRoomsInactiveSince(_ context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var codes []string
	for code, room := range r.rooms {
		if room.LastActivityAt.Before(before) {
			codes = append(codes, code)
			delete(r.rooms, code)
		}
	}
	for id, s := range r.stories {
		for _, code := range codes {
			if s.RoomCode == code {
				delete(r.stories, id)
			}
		}
	}
	sort.Strings(codes)
	return codes, nil
}

func (r *Rooms) AddParticipant(_ context.Context, p *models.Participant, max int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[p.RoomCode]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	if room.Participant(p.UserID) != nil {
		return apperrors.Conflict("participant already in room")
	}
	if len(room.Participants) >= max {
		return apperrors.Conflict("room is full")
	}
	cp := *p
	room.Participants = append(room.Participants, &cp)
	return nil
}

func (r *Rooms) GetParticipant(_ context.Context, code string, userID uuid.UUID) (*models.Participant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, err := r.participant(code, userID)
	if err != nil {
		return nil, err
	}
	cp := *p
	return &cp, nil
}

func (r *Rooms) UpdatePresence(_ context.Context, code string, userID uuid.UUID, online bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.participant(code, userID)
	if err != nil {
		return err
	}
	p.Online = online
	p.LastActivityAt = at
	return nil
}

func (r *Rooms) UpdateRole(_ context.Context, code string, userID uuid.UUID, role models.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.participant(code, userID)
	if err != nil {
		return err
	}
	p.Role = role
	return nil
}

func (r *Rooms) SetHasVoted(_ context.Context, code string, userID uuid.UUID, voted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, err := r.participant(code, userID)
	if err != nil {
		return err
	}
	p.HasVoted = voted
	return nil
}

func (r *Rooms) ResetHasVoted(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	for _, p := range room.Participants {
		p.HasVoted = false
	}
	return nil
}

func (r *Rooms) RemoveParticipant(_ context.Context, code string, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.rooms[code]
	if !ok {
		return apperrors.NotFound("room not found")
	}
	for i, p := range room.Participants {
		if p.UserID == userID {
			room.Participants = append(room.Participants[:i], room.Participants[i+1:]...)
			return nil
		}
	}
	return apperrors.NotFound("participant not found")
}

func (r *Rooms) CreateStory(_ context.Context, s *models.Story) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[s.RoomCode]; !ok {
		return apperrors.NotFound("room not found")
	}
	r.stories[s.ID] = cloneStory(s)
	return nil
}

func (r *Rooms) GetStory(_ context.Context, id uuid.UUID) (*models.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stories[id]
	if !ok {
		return nil, apperrors.NotFound("story not found")
	}
	return cloneStory(s), nil
}

func (r *Rooms) ListStories(_ context.Context, code string) ([]*models.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.Story
	for _, s := range r.stories {
		if s.RoomCode == code {
			out = append(out, cloneStory(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Rooms) UpdateStoryStatus(_ context.Context, id uuid.UUID, status models.StoryStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stories[id]
	if !ok {
		return apperrors.NotFound("story not found")
	}
	s.Status = status
	s.UpdatedAt = at
	return nil
}

func (r *Rooms) SetFinalEstimate(_ context.Context, id uuid.UUID, estimate models.FinalEstimate, status models.StoryStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.stories[id]
	if !ok {
		return apperrors.NotFound("story not found")
	}
	est := estimate
	s.FinalEstimate = &est
	s.Status = status
	s.UpdatedAt = at
	return nil
}

func (r *Rooms) participant(code string, userID uuid.UUID) (*models.Participant, error) {
	room, ok := r.rooms[code]
	if !ok {
		return nil, apperrors.NotFound("room not found")
	}
	p := room.Participant(userID)
	if p == nil {
		return nil, apperrors.NotFound("participant not found")
	}
	return p, nil
}

func cloneRoom(room *models.Room) *models.Room {
	c := *room
	c.Participants = make([]*models.Participant, 0, len(room.Participants))
	for _, p := range room.Participants {
		cp := *p
		c.Participants = append(c.Participants, &cp)
	}
	return &c
}

func cloneStory(s *models.Story) *models.Story {
	c := *s
	if s.Description != nil {
		d := *s.Description
		c.Description = &d
	}
	if s.FinalEstimate != nil {
		fe := *s.FinalEstimate
		c.FinalEstimate = &fe
	}
	return &c
}
