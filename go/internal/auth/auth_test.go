package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
	"github.com/mcdev12/planpoker/go/internal/models"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubRoster map[uuid.UUID]models.Role

func (s stubRoster) GetParticipant(_ context.Context, roomCode string, userID uuid.UUID) (*models.Participant, error) {
	role, ok := s[userID]
	if !ok {
		return nil, apperrors.NotFound("participant not found")
	}
	return &models.Participant{UserID: userID, RoomCode: roomCode, Role: role}, nil
}

func TestTokenRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer, err := NewTokenIssuer(testSecret, time.Hour, clock)
	require.NoError(t, err)

	userID := uuid.New()
	token, err := issuer.Issue(userID, "ABC123")
	require.NoError(t, err)

	claims, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ABC123", claims.RoomCode)
	assert.True(t, claims.Expires.Equal(clock.Now().Add(time.Hour)))
}

func TestTokenExpired(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	issuer, err := NewTokenIssuer(testSecret, time.Minute, clock)
	require.NoError(t, err)

	token, err := issuer.Issue(uuid.New(), "ABC123")
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	_, err = issuer.Verify(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrExpired)
}

func TestTokenRejectsOtherSecret(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, err := NewTokenIssuer(testSecret, time.Hour, clock)
	require.NoError(t, err)
	b, err := NewTokenIssuer("ffffffffffffffffffffffffffffffff", time.Hour, clock)
	require.NoError(t, err)

	token, err := a.Issue(uuid.New(), "ABC123")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	_, err = a.Verify("")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = a.Verify("not.a.token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestNewTokenIssuerValidation(t *testing.T) {
	_, err := NewTokenIssuer("short", time.Hour, nil)
	assert.Error(t, err)
	_, err = NewTokenIssuer(testSecret, 0, nil)
	assert.Error(t, err)
}

func TestGatekeeperIsAdmin(t *testing.T) {
	host, facilitator, voter, stranger := uuid.New(), uuid.New(), uuid.New(), uuid.New()
	g := NewGatekeeper(stubRoster{
		host:        models.RoleHost,
		facilitator: models.RoleFacilitator,
		voter:       models.RoleParticipant,
	})
	ctx := context.Background()

	tests := []struct {
		name string
		user uuid.UUID
		want bool
	}{
		{"host", host, true},
		{"facilitator", facilitator, true},
		{"participant", voter, false},
		{"not in roster", stranger, false},
		{"nil user", uuid.Nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := g.IsAdmin(ctx, tt.user, "ABC123")
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestGatekeeperRequireAdmin(t *testing.T) {
	host, voter := uuid.New(), uuid.New()
	g := NewGatekeeper(stubRoster{host: models.RoleHost, voter: models.RoleParticipant})
	ctx := context.Background()

	assert.NoError(t, g.RequireAdmin(ctx, Principal{UserID: host, RoomCode: "ABC123"}))
	assert.ErrorIs(t, g.RequireAdmin(ctx, Principal{UserID: voter, RoomCode: "ABC123"}), apperrors.ErrUnauthorized)
	assert.ErrorIs(t, g.RequireAdmin(ctx, Principal{}), apperrors.ErrUnauthorized)
}

func TestGatekeeperConnectionBinding(t *testing.T) {
	g := NewGatekeeper(stubRoster{})
	userID := uuid.New()

	_, err := g.Resolve("conn-1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	g.Bind("conn-1", Principal{UserID: userID, RoomCode: "ABC123"})
	g.Bind("conn-2", Principal{UserID: userID, RoomCode: "ABC123"})

	p, err := g.Resolve("conn-1")
	require.NoError(t, err)
	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, "conn-1", p.ConnectionID)
	assert.Equal(t, 2, g.ConnectionsFor("ABC123", userID))

	_, ok := g.Unbind("conn-1")
	assert.True(t, ok)
	assert.Equal(t, 1, g.ConnectionsFor("ABC123", userID))
	_, err = g.Resolve("conn-1")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
