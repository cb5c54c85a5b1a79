package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	t.Parallel()

	svc := NewJWTService("secret", "kos-taxi", 15*time.Minute, 7*24*time.Hour)

	pair, err := svc.GeneratePair(42, "driver@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.Equal(t, int64(900), pair.ExpiresIn)

	claims, err := svc.Validate(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.DriverID)
	assert.Equal(t, "driver@example.com", claims.Email)
	assert.Equal(t, "42", claims.Subject)

	claims, err = svc.Validate(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.DriverID)
}

func TestJWTService_RejectsWrongType(t *testing.T) {
	t.Parallel()

	svc := NewJWTService("secret", "kos-taxi", time.Minute, time.Hour)
	pair, err := svc.GeneratePair(1, "a@example.com")
	require.NoError(t, err)

	_, err = svc.Validate(pair.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_RejectsForeignAndExpired(t *testing.T) {
	t.Parallel()

	svc := NewJWTService("secret", "kos-taxi", time.Minute, time.Hour)
	other := NewJWTService("other-secret", "kos-taxi", time.Minute, time.Hour)

	pair, err := other.GeneratePair(1, "a@example.com")
	require.NoError(t, err)
	_, err = svc.Validate(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	pair, err = svc.GeneratePair(1, "a@example.com")
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = svc.Validate(pair.AccessToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrExpiredToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("not-a-token", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHashing(t *testing.T) {
	t.Parallel()

	hash, err := HashPassword("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "s3cret"))
}
