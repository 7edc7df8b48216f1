package rooms

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/memstore"
	"github.com/mcdev12/planpoker/go/internal/models"
)

func newTestApp(t *testing.T) (*App, *memstore.Rooms, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))
	repo := memstore.NewRooms()
	return NewApp(repo, nil, clock, 24*time.Hour), repo, clock
}

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		assert.True(t, models.ValidRoomCode(code), code)
	}
}

func TestCreateRoom(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	room, host, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "  Dana  "})
	require.NoError(t, err)
	assert.True(t, models.ValidRoomCode(room.Code))
	assert.Equal(t, "Dana", host.DisplayName)
	assert.Equal(t, models.RoleHost, host.Role)
	assert.Equal(t, host.UserID, room.HostID)
	assert.Equal(t, models.DefaultRoomSettings(), room.Settings)

	stored, err := app.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Len(t, stored.Participants, 1)
}

func TestCreateRoomValidation(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRoomRequest
	}{
		{"missing name", CreateRoomRequest{HostName: " "}},
		{"long name", CreateRoomRequest{HostName: strings.Repeat("x", 41)}},
		{"unknown deck", CreateRoomRequest{HostName: "Dana", Settings: &models.RoomSettings{DeckType: "tarot"}}},
		{"unknown policy", CreateRoomRequest{HostName: "Dana", Settings: &models.RoomSettings{RevealPolicy: "vibes"}}},
		{"threshold over 100", CreateRoomRequest{HostName: "Dana", Settings: &models.RoomSettings{ConsensusThreshold: 120}}},
		{"negative timer", CreateRoomRequest{HostName: "Dana", Settings: &models.RoomSettings{TimerSeconds: -1}}},
		{"timer over a day", CreateRoomRequest{HostName: "Dana", Settings: &models.RoomSettings{TimerSeconds: models.MaxTimerSeconds + 1}}},
		{"timer overflowing duration", CreateRoomRequest{HostName: "Dana", Settings: &models.RoomSettings{TimerSeconds: 10_000_000_000}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := app.CreateRoom(ctx, tt.req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		})
	}
}

func TestCreateRoomRetriesCodeCollision(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()

	codes := []string{"AAAAAA", "AAAAAA", "BBBBBB"}
	app.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	first, _, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "One"})
	require.NoError(t, err)
	second, _, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Two"})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", first.Code)
	assert.Equal(t, "BBBBBB", second.Code)
}

func TestJoinRoom(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	room, _, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)

	joined, p, err := app.JoinRoom(ctx, JoinRoomRequest{Code: strings.ToLower(room.Code), DisplayName: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleParticipant, p.Role)
	assert.True(t, p.Online)
	assert.Len(t, joined.Participants, 2)

	// Rejoining with the same identity does not add a roster entry.
	require.NoError(t, app.SetPresence(ctx, room.Code, p.UserID, false))
	rejoined, again, err := app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, UserID: p.UserID})
	require.NoError(t, err)
	assert.Equal(t, p.UserID, again.UserID)
	assert.True(t, again.Online)
	assert.Len(t, rejoined.Participants, 2)

	_, _, err = app.JoinRoom(ctx, JoinRoomRequest{Code: "bad", DisplayName: "Sam"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	_, _, err = app.JoinRoom(ctx, JoinRoomRequest{Code: "ZZZ999", DisplayName: "Sam"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestJoinRoomCapacity(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	room, _, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)

	for i := 1; i < models.MaxParticipants; i++ {
		_, _, err := app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, DisplayName: "Guest"})
		require.NoError(t, err)
	}
	_, _, err = app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, DisplayName: "Late"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestRoomExpiry(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()
	room, _, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)

	clock.Advance(23 * time.Hour)
	app.Touch(ctx, room.Code)
	clock.Advance(23 * time.Hour)
	_, err = app.GetRoom(ctx, room.Code)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = app.GetRoom(ctx, room.Code)
	assert.ErrorIs(t, err, apperrors.ErrExpired)

	codes, err := app.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{room.Code}, codes)
	_, err = app.GetRoom(ctx, room.Code)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestLeaveRoom(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	room, host, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)
	_, guest, err := app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, DisplayName: "Guest"})
	require.NoError(t, err)

	removed, err := app.LeaveRoom(ctx, room.Code, guest.UserID)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = app.GetParticipant(ctx, room.Code, guest.UserID)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	removed, err = app.LeaveRoom(ctx, room.Code, host.UserID)
	require.NoError(t, err)
	assert.False(t, removed)
	p, err := app.GetParticipant(ctx, room.Code, host.UserID)
	require.NoError(t, err)
	assert.False(t, p.Online)
}

func TestChangeRole(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	room, host, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)
	_, guest, err := app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, DisplayName: "Guest"})
	require.NoError(t, err)
	_, other, err := app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, DisplayName: "Other"})
	require.NoError(t, err)

	p, err := app.ChangeRole(ctx, room.Code, host.UserID, guest.UserID, models.RoleFacilitator)
	require.NoError(t, err)
	assert.Equal(t, models.RoleFacilitator, p.Role)

	// Facilitators administer sessions but cannot hand out roles.
	_, err = app.ChangeRole(ctx, room.Code, guest.UserID, other.UserID, models.RoleFacilitator)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = app.ChangeRole(ctx, room.Code, host.UserID, guest.UserID, models.RoleHost)
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	_, err = app.ChangeRole(ctx, room.Code, host.UserID, host.UserID, models.RoleParticipant)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
}

func TestStories(t *testing.T) {
	app, _, clock := newTestApp(t)
	ctx := context.Background()
	room, host, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)
	_, guest, err := app.JoinRoom(ctx, JoinRoomRequest{Code: room.Code, DisplayName: "Guest"})
	require.NoError(t, err)

	_, err = app.CreateStory(ctx, room.Code, guest.UserID, CreateStoryRequest{Title: "Login page"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = app.CreateStory(ctx, room.Code, host.UserID, CreateStoryRequest{Title: "  "})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)

	first, err := app.CreateStory(ctx, room.Code, host.UserID, CreateStoryRequest{Title: "Login page"})
	require.NoError(t, err)
	assert.Equal(t, models.StoryStatusBacklog, first.Status)
	clock.Advance(time.Second)
	second, err := app.CreateStory(ctx, room.Code, host.UserID, CreateStoryRequest{Title: "Signup page"})
	require.NoError(t, err)

	stories, err := app.ListStories(ctx, room.Code)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, first.ID, stories[0].ID)
	assert.Equal(t, second.ID, stories[1].ID)

	require.NoError(t, app.UpdateStoryStatus(ctx, first.ID, models.StoryStatusVoting))
	err = app.ArchiveStory(ctx, room.Code, host.UserID, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	require.NoError(t, app.ArchiveStory(ctx, room.Code, host.UserID, second.ID))

	conf := 0.8
	require.NoError(t, app.SetFinalEstimate(ctx, first.ID, models.FinalEstimate{
		Value: "8", Confidence: &conf, FinalizedBy: host.UserID, FinalizedAt: clock.Now(),
	}))
	got, err := app.GetStory(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StoryStatusEstimated, got.Status)
	require.NotNil(t, got.FinalEstimate)
	assert.Equal(t, "8", got.FinalEstimate.Value)

	err = app.UpdateStoryStatus(ctx, first.ID, "lost")
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
}

func TestVotedFlags(t *testing.T) {
	app, _, _ := newTestApp(t)
	ctx := context.Background()
	room, host, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)

	require.NoError(t, app.MarkVoted(ctx, room.Code, host.UserID))
	p, err := app.GetParticipant(ctx, room.Code, host.UserID)
	require.NoError(t, err)
	assert.True(t, p.HasVoted)

	require.NoError(t, app.ResetVoted(ctx, room.Code))
	p, err = app.GetParticipant(ctx, room.Code, host.UserID)
	require.NoError(t, err)
	assert.False(t, p.HasVoted)

	err = app.MarkVoted(ctx, room.Code, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestDefaultThreshold(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.WithDefaultThreshold(80)
	ctx := context.Background()

	room, _, err := app.CreateRoom(ctx, CreateRoomRequest{HostName: "Host"})
	require.NoError(t, err)
	assert.Equal(t, 80.0, room.Settings.ConsensusThreshold)

	room, _, err = app.CreateRoom(ctx, CreateRoomRequest{
		HostName: "Host",
		Settings: &models.RoomSettings{ConsensusThreshold: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, room.Settings.ConsensusThreshold)
}
