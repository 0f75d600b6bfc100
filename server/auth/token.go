// Package auth issues and verifies API tokens.
//
// A token is an HS256 JWT whose subject is the API key ID. The key ID is also
// the rate-limit key, so one caller shares one bucket across tokens.
package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const (
	// Issuer is the issuer of API tokens.
	Issuer = "timemeaning"
	// KeyID is the key id used to sign the token.
	KeyID = "v1"
	// AccessTokenAudienceName is the audience name of API tokens.
	AccessTokenAudienceName = "timemeaning.api"
	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("invalid API token")

// ClaimsMessage are the claims of an API token.
type ClaimsMessage struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// GenerateAPIToken issues a token for keyID. A zero expiresAt never expires.
func GenerateAPIToken(keyID, name string, issuedAt, expiresAt time.Time, secret []byte) (string, error) {
	if keyID == "" {
		return "", errors.New("key id is required")
	}
	if len(secret) == 0 {
		return "", errors.New("signing secret is required")
	}
	claims := &ClaimsMessage{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   Issuer,
			Audience: jwt.ClaimStrings{AccessTokenAudienceName},
			Subject:  keyID,
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = jwt.NewNumericDate(expiresAt)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = KeyID

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign API token")
	}
	return signed, nil
}

// ParseAPIToken verifies a token and returns its claims.
func ParseAPIToken(tokenString string, secret []byte) (*ClaimsMessage, error) {
	claims := &ClaimsMessage{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if kid, ok := t.Header["kid"].(string); !ok || kid != KeyID {
			return nil, errors.Errorf("unexpected key id %v", t.Header["kid"])
		}
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(AccessTokenAudienceName),
	)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidToken, err.Error())
	}
	if claims.Subject == "" {
		return nil, errors.Wrap(ErrInvalidToken, "token has no subject")
	}
	return claims, nil
}

// ExtractBearerToken returns the token in an Authorization header value.
func ExtractBearerToken(header string) (string, bool) {
	if len(header) <= len(BearerPrefix) || !strings.EqualFold(header[:len(BearerPrefix)], BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(BearerPrefix):])
	return token, token != ""
}
