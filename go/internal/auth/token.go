package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/planpoker/go/internal/apperrors"
)

const tokenIssuer = "planpoker"

// JoinClaims binds a durable user id to the room it joined.
type JoinClaims struct {
	UserID   uuid.UUID
	RoomCode string
	IssuedAt time.Time
	Expires  time.Time
}

// joinTokenClaims is the wire form used for JWT parsing.
type joinTokenClaims struct {
	jwt.RegisteredClaims
	RoomCode string `json:"room_code"`
}

// TokenIssuer signs and verifies room join tokens. A client presents its
// token on reconnect to keep the same identity and role.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	clock  clockwork.Clock
}

func NewTokenIssuer(secret string, ttl time.Duration, clock clockwork.Clock) (*TokenIssuer, error) {
	if len(strings.TrimSpace(secret)) < 16 {
		return nil, fmt.Errorf("join token secret must be at least 16 characters")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("join token ttl must be positive")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, clock: clock}, nil
}

// Issue returns a signed token for userID in roomCode.
func (i *TokenIssuer) Issue(userID uuid.UUID, roomCode string) (string, error) {
	now := i.clock.Now()
	claims := joinTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		RoomCode: roomCode,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign join token: %w", err)
	}
	return signed, nil
}

// Verify validates token and returns its claims.
func (i *TokenIssuer) Verify(token string) (*JoinClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.Unauthorized("join token is required")
	}

	var parsed joinTokenClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	userID, err := uuid.Parse(parsed.Subject)
	if err != nil {
		return nil, apperrors.Unauthorized("join token subject is invalid")
	}
	if parsed.RoomCode == "" {
		return nil, apperrors.Unauthorized("join token has no room")
	}

	claims := &JoinClaims{
		UserID:   userID,
		RoomCode: parsed.RoomCode,
		Expires:  parsed.ExpiresAt.Time,
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.Wrap(apperrors.CodeExpired, "join token is expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.Wrap(apperrors.CodeUnauthorized, "join token signature is invalid", err)
	default:
		return apperrors.Wrap(apperrors.CodeUnauthorized, "join token is invalid", err)
	}
}
