package sqlutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullRawMessageRoundTrip(t *testing.T) {
	type estimate struct {
		Value string `json:"value"`
	}

	null, err := ToNullRawMessage[estimate](nil)
	require.NoError(t, err)
	assert.False(t, null.Valid)
	got, err := FromNullRawMessage[estimate](null)
	require.NoError(t, err)
	assert.Nil(t, got)

	raw, err := ToNullRawMessage(&estimate{Value: "8"})
	require.NoError(t, err)
	assert.True(t, raw.Valid)
	got, err = FromNullRawMessage[estimate](raw)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "8", got.Value)
}

func TestNullScalars(t *testing.T) {
	assert.Nil(t, FromSqlFloat64(ToSqlFloat64(nil)))
	f := 0.75
	assert.Equal(t, 0.75, *FromSqlFloat64(ToSqlFloat64(&f)))

	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	assert.True(t, FromSqlTime(ToSqlTime(&now)).Equal(now))
	assert.Nil(t, FromSqlStringPtr(ToSqlString(nil)))
}

func TestIsUniqueViolation(t *testing.T) {
	err := fmt.Errorf("insert: %w", &pq.Error{Code: "23505", Constraint: "uq_voting_sessions_active_story"})
	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(err, "uq_voting_sessions_active_story"))
	assert.False(t, IsUniqueViolation(err, "rooms_pkey"))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(fmt.Errorf("boom")))
}
