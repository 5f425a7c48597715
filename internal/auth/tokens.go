package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"readersync/internal/clock"
)

var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer mints and verifies the bearer tokens that carry the owner
// identity between devices and the API.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
	clock  clock.Clock
}

// NewTokenIssuer creates a token issuer signing with secret.
func NewTokenIssuer(secret []byte, expiry time.Duration, clk clock.Clock) *TokenIssuer {
	return &TokenIssuer{secret: secret, expiry: expiry, clock: clk}
}

// Issue creates a signed bearer token for an account email.
func (i *TokenIssuer) Issue(email string) (string, error) {
	now := i.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a bearer token and returns the account email it was issued
// for. Expired, malformed, or foreign-signed tokens all come back as
// ErrInvalidToken.
func (i *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

// GenerateSecret creates a random 32-byte signing secret, hex-encoded.
func GenerateSecret() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// generateResetToken creates the random plaintext token mailed to the user
// during a password reset.
func generateResetToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
