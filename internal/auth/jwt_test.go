package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndParse(t *testing.T) {
	v := NewVerifier("s3cret", "wholikeme")

	token, err := v.Issue("user-a", "alice@x.com", time.Hour)
	require.NoError(t, err)

	claims, err := v.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "user-a", claims.UserID)
	assert.Equal(t, "alice@x.com", claims.Email)
}

func TestParse_Rejects(t *testing.T) {
	v := NewVerifier("s3cret", "wholikeme")

	expired, err := v.Issue("user-a", "", -time.Minute)
	require.NoError(t, err)
	_, err = v.Parse(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherKey, err := NewVerifier("other", "wholikeme").Issue("user-a", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Parse(otherKey)
	assert.ErrorIs(t, err, ErrInvalidToken)

	otherIssuer, err := NewVerifier("s3cret", "someone-else").Issue("user-a", "", time.Hour)
	require.NoError(t, err)
	_, err = v.Parse(otherIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = v.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestParse_SubjectFallback(t *testing.T) {
	v := NewVerifier("s3cret", "")

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "user-b",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := tok.SignedString([]byte("s3cret"))
	require.NoError(t, err)

	claims, err := v.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-b", claims.UserID)
}

func TestParse_RejectsNoneAlg(t *testing.T) {
	v := NewVerifier("s3cret", "")

	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"user_id": "user-a",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Parse(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
