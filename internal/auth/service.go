// Package auth issues and verifies the bearer credentials the request layer
// uses to resolve an owner scope, and exposes the signup/login/reset HTTP
// endpoints built on the users credential store.
package auth

import (
	"errors"
	"fmt"
	"log"
	"time"

	"readersync/internal/clock"
	"readersync/internal/database/users"
)

var (
	ErrEmailInvalid       = errors.New("invalid email address")
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters", users.MinPasswordLength)
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// CredentialStore is the slice of the users repository the service needs.
type CredentialStore interface {
	CreateAccount(email, password string) (bool, error)
	VerifyCredentials(email, password string) (bool, error)
	AccountExists(email string) (bool, error)
	SetPassword(email, newPassword string) (bool, error)
	CreateResetToken(email, tokenHash string, expiresAt time.Time) (bool, error)
	ConsumeResetToken(email, tokenPlain string) (bool, error)
}

// Service handles account signup, login and password resets.
type Service struct {
	store       CredentialStore
	issuer      *TokenIssuer
	mailer      Mailer
	resetExpiry time.Duration
	clock       clock.Clock
}

// NewService creates a new authentication service.
func NewService(store CredentialStore, issuer *TokenIssuer, mailer Mailer, resetExpiry time.Duration, clk clock.Clock) *Service {
	return &Service{
		store:       store,
		issuer:      issuer,
		mailer:      mailer,
		resetExpiry: resetExpiry,
		clock:       clk,
	}
}

// SignUp creates an account and returns a bearer token for it.
func (s *Service) SignUp(email, password string) (string, error) {
	if !users.ValidEmail(email) {
		return "", ErrEmailInvalid
	}
	if len(password) < users.MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	created, err := s.store.CreateAccount(email, password)
	if err != nil {
		return "", fmt.Errorf("failed to create account: %w", err)
	}
	if !created {
		return "", ErrAccountExists
	}
	return s.issuer.Issue(users.NormalizeEmail(email))
}

// LogIn verifies credentials and returns a bearer token.
func (s *Service) LogIn(email, password string) (string, error) {
	ok, err := s.store.VerifyCredentials(email, password)
	if err != nil {
		return "", fmt.Errorf("failed to verify credentials: %w", err)
	}
	if !ok {
		return "", ErrInvalidCredentials
	}
	return s.issuer.Issue(users.NormalizeEmail(email))
}

// RequestPasswordReset stores a reset token and mails its plaintext to the
// account. Unknown emails are silently ignored so the endpoint cannot be
// used to enumerate accounts.
func (s *Service) RequestPasswordReset(email string) error {
	email = users.NormalizeEmail(email)

	exists, err := s.store.AccountExists(email)
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if !exists {
		return nil
	}

	token, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := s.clock.Now().Add(s.resetExpiry)
	created, err := s.store.CreateResetToken(email, users.HashToken(token), expiresAt)
	if err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	if !created {
		// Hash collision on 32 random bytes; treat as delivered.
		log.Printf("reset token collision for %s", email)
		return nil
	}

	if err := s.mailer.SendPasswordReset(email, token); err != nil {
		return fmt.Errorf("failed to deliver reset mail: %w", err)
	}
	return nil
}

// ResetPassword consumes a reset token, sets the new password and returns a
// fresh bearer token.
func (s *Service) ResetPassword(email, token, newPassword string) (string, error) {
	if len(newPassword) < users.MinPasswordLength {
		return "", ErrPasswordTooShort
	}

	email = users.NormalizeEmail(email)
	consumed, err := s.store.ConsumeResetToken(email, token)
	if err != nil {
		return "", fmt.Errorf("failed to consume reset token: %w", err)
	}
	if !consumed {
		return "", ErrInvalidResetToken
	}

	ok, err := s.store.SetPassword(email, newPassword)
	if err != nil {
		return "", fmt.Errorf("failed to set password: %w", err)
	}
	if !ok {
		return "", ErrInvalidResetToken
	}
	return s.issuer.Issue(email)
}
