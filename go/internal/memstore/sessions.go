package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

// Sessions implements voting.SessionRepository.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.VotingSession
	votes    map[uuid.UUID][]models.VoteRecord
}

func NewSessions() *Sessions {
	return &Sessions{
		sessions: make(map[uuid.UUID]*models.VotingSession),
		votes:    make(map[uuid.UUID][]models.VoteRecord),
	}
}

func (s *Sessions) CreateSession(_ context.Context, vs *models.VotingSession) ([]uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[vs.ID]; exists {
		return nil, apperrors.Conflict("session already exists")
	}
	var superseded []uuid.UUID
	for id, existing := range s.sessions {
		if existing.StoryID == vs.StoryID && existing.IsActive {
			existing.IsActive = false
			completed := vs.CreatedAt
			existing.CompletedAt = &completed
			existing.UpdatedAt = vs.CreatedAt
			superseded = append(superseded, id)
		}
	}
	s.sessions[vs.ID] = vs.Clone()
	return superseded, nil
}

func (s *Sessions) GetSession(_ context.Context, id uuid.UUID) (*models.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	vs, ok := s.sessions[id]
	if !ok {
		return nil, apperrors.NotFound("voting session not found")
	}
	return vs.Clone(), nil
}

func (s *Sessions) GetActiveSessionForStory(_ context.Context, storyID uuid.UUID) (*models.VotingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, vs := range s.sessions {
		if vs.StoryID == storyID && vs.IsActive {
			return vs.Clone(), nil
		}
	}
	return nil, apperrors.NotFound("no active voting session for story")
}

func (s *Sessions) ListActiveSessions(_ context.Context) ([]*models.VotingSession, error) {
	return s.list(func(vs *models.VotingSession) bool { return vs.IsActive }), nil
}

func (s *Sessions) ListActiveSessionsForRoom(_ context.Context, roomCode string) ([]*models.VotingSession, error) {
	return s.list(func(vs *models.VotingSession) bool {
		return vs.IsActive && vs.RoomCode == roomCode
	}), nil
}

func (s *Sessions) UpdateSession(_ context.Context, vs *models.VotingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[vs.ID]; !ok {
		return apperrors.NotFound("voting session not found")
	}
	s.sessions[vs.ID] = vs.Clone()
	return nil
}

func (s *Sessions) FinalizeSession(_ context.Context, vs *models.VotingSession, votes []models.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[vs.ID]; !ok {
		return apperrors.NotFound("voting session not found")
	}
	seen := make(map[uuid.UUID]bool, len(votes))
	for _, v := range s.votes[vs.ID] {
		if v.Round == vs.Round {
			seen[v.UserID] = true
		}
	}
	for _, v := range votes {
		if seen[v.UserID] {
			return apperrors.Conflict("vote already recorded for this round")
		}
		seen[v.UserID] = true
	}
	s.sessions[vs.ID] = vs.Clone()
	s.votes[vs.ID] = append(s.votes[vs.ID], votes...)
	return nil
}

func (s *Sessions) ListVotes(_ context.Context, sessionID uuid.UUID) ([]models.VoteRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.VoteRecord(nil), s.votes[sessionID]...), nil
}

// DeleteRoom drops every session of a purged room.
func (s *Sessions) DeleteRoom(_ context.Context, roomCode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, vs := range s.sessions {
		if vs.RoomCode == roomCode {
			delete(s.sessions, id)
			delete(s.votes, id)
		}
	}
	return nil
}

func (s *Sessions) list(keep func(*models.VotingSession) bool) []*models.VotingSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.VotingSession
	for _, vs := range s.sessions {
		if keep(vs) {
			out = append(out, vs.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
