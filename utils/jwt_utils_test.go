package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestVisitorJWT_RoundTrip(t *testing.T) {
	token, err := GenerateVisitorJWT(secret, "v-123", time.Now())
	require.NoError(t, err)

	claims, err := ValidateVisitorJWT(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "v-123", claims.VisitorID)
	assert.Equal(t, "v-123", claims.Subject)
}

func TestVisitorJWT_Rejects(t *testing.T) {
	expired, err := GenerateVisitorJWT(secret, "v-1", time.Now().Add(-2*VisitorTokenTTL))
	require.NoError(t, err)
	_, err = ValidateVisitorJWT(secret, expired)
	assert.Error(t, err)

	other, err := GenerateVisitorJWT([]byte("other"), "v-1", time.Now())
	require.NoError(t, err)
	_, err = ValidateVisitorJWT(secret, other)
	assert.Error(t, err)

	anonymous, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateVisitorJWT(secret, anonymous)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{VisitorID: "v-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ValidateVisitorJWT(secret, none)
	assert.Error(t, err)

	_, err = ValidateVisitorJWT(secret, "garbage")
	assert.Error(t, err)
}
