package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", "clinic-api", time.Hour)
	id := uuid.New()

	token, err := svc.GenerateAccessToken(id)
	require.NoError(t, err)

	got, err := svc.PrincipalID(token)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := NewJWTService("secret", "clinic-api", time.Hour)
	token, err := svc.GenerateAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = NewJWTService("other", "clinic-api", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = NewJWTService("secret", "someone-else", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := &jwtService{secret: []byte("secret"), issuer: "clinic-api", ttl: time.Minute, now: func() time.Time { return time.Now().Add(-time.Hour) }}
	old, err := expired.GenerateAccessToken(uuid.New())
	require.NoError(t, err)
	_, err = svc.ValidateToken(old)
	assert.ErrorIs(t, err, ErrExpiredToken)
}
