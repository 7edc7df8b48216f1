package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

var now = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestRoomsReturnCopies(t *testing.T) {
	ctx := context.Background()
	r := NewRooms()
	host := &models.Participant{UserID: uuid.New(), RoomCode: "ABC123", Role: models.RoleHost}
	require.NoError(t, r.CreateRoom(ctx, &models.Room{Code: "ABC123", Participants: []*models.Participant{host}, LastActivityAt: now}))

	room, err := r.GetRoom(ctx, "ABC123")
	require.NoError(t, err)
	room.Participants[0].Role = models.RoleParticipant

	p, err := r.GetParticipant(ctx, "ABC123", host.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleHost, p.Role)

	err = r.CreateRoom(ctx, &models.Room{Code: "ABC123"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRoomsPurgeDropsStories(t *testing.T) {
	ctx := context.Background()
	r := NewRooms()
	require.NoError(t, r.CreateRoom(ctx, &models.Room{Code: "OLD111", LastActivityAt: now.Add(-48 * time.Hour)}))
	require.NoError(t, r.CreateRoom(ctx, &models.Room{Code: "NEW222", LastActivityAt: now}))
	story := &models.Story{ID: uuid.New(), RoomCode: "OLD111", Title: "t"}
	require.NoError(t, r.CreateStory(ctx, story))

	codes, err := r.DeleteRoomsInactiveSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"OLD111"}, codes)

	_, err = r.GetStory(ctx, story.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func newSession(storyID uuid.UUID, at time.Time) *models.VotingSession {
	return &models.VotingSession{
		ID:        uuid.New(),
		StoryID:   storyID,
		RoomCode:  "ABC123",
		Round:     1,
		IsActive:  true,
		Deck:      models.Deck{Type: models.DeckTShirt, Values: []string{"S", "M"}},
		CreatedAt: at,
	}
}

func TestSessionsCreateSupersedes(t *testing.T) {
	ctx := context.Background()
	s := NewSessions()
	story := uuid.New()

	first := newSession(story, now)
	superseded, err := s.CreateSession(ctx, first)
	require.NoError(t, err)
	assert.Empty(t, superseded)

	second := newSession(story, now.Add(time.Minute))
	superseded, err = s.CreateSession(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{first.ID}, superseded)

	active, err := s.GetActiveSessionForStory(ctx, story)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)

	old, err := s.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsActive)
	require.NotNil(t, old.CompletedAt)
}

func TestSessionsFinalizeRejectsDuplicateVotes(t *testing.T) {
	ctx := context.Background()
	s := NewSessions()
	vs := newSession(uuid.New(), now)
	_, err := s.CreateSession(ctx, vs)
	require.NoError(t, err)

	user := uuid.New()
	votes := []models.VoteRecord{
		{ID: uuid.New(), SessionID: vs.ID, UserID: user, Round: 1, Value: "M"},
		{ID: uuid.New(), SessionID: vs.ID, UserID: user, Round: 1, Value: "S"},
	}
	err = s.FinalizeSession(ctx, vs, votes)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	require.NoError(t, s.FinalizeSession(ctx, vs, votes[:1]))
	stored, err := s.ListVotes(ctx, vs.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSessionsDeleteRoom(t *testing.T) {
	ctx := context.Background()
	s := NewSessions()
	vs := newSession(uuid.New(), now)
	_, err := s.CreateSession(ctx, vs)
	require.NoError(t, err)

	require.NoError(t, s.DeleteRoom(ctx, "ABC123"))
	_, err = s.GetSession(ctx, vs.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
