package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestAPIToken_RoundTrip(t *testing.T) {
	now := time.Now()
	token, err := GenerateAPIToken("key-42", "ci", now, now.Add(time.Hour), secret)
	require.NoError(t, err)

	claims, err := ParseAPIToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "key-42", claims.Subject)
	assert.Equal(t, "ci", claims.Name)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestAPIToken_NoExpiry(t *testing.T) {
	token, err := GenerateAPIToken("key-1", "", time.Now(), time.Time{}, secret)
	require.NoError(t, err)

	claims, err := ParseAPIToken(token, secret)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestParseAPIToken_Rejects(t *testing.T) {
	now := time.Now()
	valid, err := GenerateAPIToken("key-1", "", now, now.Add(time.Hour), secret)
	require.NoError(t, err)
	expired, err := GenerateAPIToken("key-1", "", now.Add(-2*time.Hour), now.Add(-time.Hour), secret)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "key-1", Issuer: Issuer})
	none.Header["kid"] = KeyID
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		token  string
		secret []byte
	}{
		{"wrong secret", valid, []byte("other")},
		{"expired", expired, secret},
		{"alg none", unsigned, secret},
		{"garbage", "not.a.token", secret},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAPIToken(tt.token, tt.secret)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidToken))
		})
	}
}

func TestGenerateAPIToken_Validation(t *testing.T) {
	_, err := GenerateAPIToken("", "", time.Now(), time.Time{}, secret)
	assert.Error(t, err)
	_, err = GenerateAPIToken("key", "", time.Now(), time.Time{}, nil)
	assert.Error(t, err)
}

func TestExtractBearerToken(t *testing.T) {
	token, ok := ExtractBearerToken("Bearer abc.def")
	assert.True(t, ok)
	assert.Equal(t, "abc.def", token)

	token, ok = ExtractBearerToken("bearer xyz")
	assert.True(t, ok)
	assert.Equal(t, "xyz", token)

	_, ok = ExtractBearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = ExtractBearerToken("Bearer ")
	assert.False(t, ok)
}
