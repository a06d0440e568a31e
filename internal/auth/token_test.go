package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vytor/studyflash/internal/auth"
)

const secret = "test-secret-0123456789"

func TestIssueAndParse(t *testing.T) {
	iss := auth.NewIssuer(secret)

	tok, err := iss.Issue(42, time.Hour)
	require.NoError(t, err)

	userID, err := iss.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestParse_Rejects(t *testing.T) {
	iss := auth.NewIssuer(secret)

	expired, err := iss.Issue(42, -time.Minute)
	require.NoError(t, err)

	foreign, err := auth.NewIssuer("another-secret-9876543210").Issue(42, time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "42", Issuer: "studyflash",
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "alice", Issuer: "studyflash", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"expired":     expired,
		"wrong key":   foreign,
		"no expiry":   noExpiry,
		"bad subject": badSubject,
		"garbage":     "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(tok)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestContext(t *testing.T) {
	_, ok := auth.UserID(context.Background())
	assert.False(t, ok)

	id, ok := auth.UserID(auth.NewContext(context.Background(), 7))
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}
