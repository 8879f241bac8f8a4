package tokenizer

import (
	"testing"
	"time"

	"github.com/layer-3/stockflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession(now time.Time) *core.Session {
	return &core.Session{
		ID:            "sess-1",
		Subject:       "Alpha",
		Role:          "admin",
		IssuedAt:      now,
		AccessExpiry:  now.Add(30 * time.Minute),
		RefreshExpiry: now.Add(120 * time.Hour),
		RefreshID:     "refresh-1",
	}
}

func TestJWTTokenizer_RoundTrip(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	tok := NewJWTTokenizer([]byte("secret"), func() time.Time { return now })
	session := testSession(now)

	access, err := tok.SessionToAccessToken(session)
	require.NoError(t, err)
	refresh, err := tok.SessionToRefreshToken(session)
	require.NoError(t, err)

	got, err := tok.AccessTokenToSession(access)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Subject)
	assert.Equal(t, "admin", got.Role)
	assert.Equal(t, "refresh-1", got.RefreshID)
	assert.True(t, got.AccessExpiry.Equal(session.AccessExpiry))

	got, err = tok.RefreshTokenToSession(refresh)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", got.RefreshID)
	assert.True(t, got.RefreshExpiry.Equal(session.RefreshExpiry))
}

func TestJWTTokenizer_Expired(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	clock := now
	tok := NewJWTTokenizer([]byte("secret"), func() time.Time { return clock })
	session := testSession(now)

	access, err := tok.SessionToAccessToken(session)
	require.NoError(t, err)
	refresh, err := tok.SessionToRefreshToken(session)
	require.NoError(t, err)

	clock = now.Add(time.Hour)

	_, err = tok.AccessTokenToSession(access)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	_, err = tok.RefreshTokenToSession(refresh)
	assert.NoError(t, err)
}

func TestJWTTokenizer_Rejects(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	tok := NewJWTTokenizer([]byte("secret"), nil)
	other := NewJWTTokenizer([]byte("other"), nil)
	session := testSession(now)

	refresh, err := tok.SessionToRefreshToken(session)
	require.NoError(t, err)
	access, err := tok.SessionToAccessToken(session)
	require.NoError(t, err)

	_, err = tok.AccessTokenToSession(refresh)
	assert.ErrorIs(t, err, core.ErrInvalidToken, "refresh token must not pass as access token")

	_, err = other.AccessTokenToSession(access)
	assert.ErrorIs(t, err, core.ErrInvalidToken)

	_, err = tok.AccessTokenToSession("not-a-jwt")
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}
