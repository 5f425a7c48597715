// Package users implements the identity and credential store: account
// creation, password verification, and the password-reset token lifecycle.
//
// It shares the storage engine's transactional discipline (every mutation
// is a retried transaction on the same sqlite file) but is otherwise
// independent of document sync.
//
// # Usage
//
//	repo := users.NewRepository(db, clock.UTC{})
//	created, err := repo.CreateAccount(email, password)
package users

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"readersync/internal/clock"
	"readersync/internal/database"
	"readersync/internal/entities"
)

// Repository handles all account and reset-token database operations.
type Repository struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB, clk clock.Clock) *Repository {
	return &Repository{db: db, clock: clk}
}

// NormalizeEmail trims and lower-cases an email address. Accounts are keyed
// by the normalized form, so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is acceptable for an account.
func ValidEmail(email string) bool {
	email = NormalizeEmail(email)
	return email != "" && strings.Contains(email, "@")
}

// CreateAccount creates an account with a fresh salt and a slow salted hash
// of the password. Returns false without error for invalid input or a
// duplicate email.
func (r *Repository) CreateAccount(email, password string) (bool, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) || len(password) < MinPasswordLength {
		return false, nil
	}

	salt, err := newSalt()
	if err != nil {
		return false, err
	}

	now := r.clock.Now()
	user := entities.User{
		Email:        email,
		PasswordHash: hashPassword(password, salt),
		Salt:         salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = database.WithRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&entities.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return gorm.ErrDuplicatedKey
			}
			return tx.Create(&user).Error
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// VerifyCredentials recomputes the stored hash and compares in constant
// time. An unknown account is an ordinary false, indistinguishable from a
// wrong password.
func (r *Repository) VerifyCredentials(email, password string) (bool, error) {
	email = NormalizeEmail(email)

	var user entities.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return verifyPassword(password, user.Salt, user.PasswordHash), nil
}

// AccountExists checks whether an account exists for the email.
func (r *Repository) AccountExists(email string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Count(&count).Error
	return count > 0, err
}

// SetPassword replaces an account's password, generating a fresh salt.
// Returns false when the password is too short or the account is unknown.
func (r *Repository) SetPassword(email, newPassword string) (bool, error) {
	email = NormalizeEmail(email)
	if len(newPassword) < MinPasswordLength {
		return false, nil
	}

	salt, err := newSalt()
	if err != nil {
		return false, err
	}

	now := r.clock.Now()
	var affected int64
	err = database.WithRetry(func() error {
		res := r.db.Model(&entities.User{}).
			Where("email = ?", email).
			Updates(map[string]any{
				"password_hash": hashPassword(newPassword, salt),
				"salt":          salt,
				"updated_at":    now,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

// CreateResetToken stores a reset token hash with its expiry. Returns false
// when the same (email, token hash) pair already exists.
func (r *Repository) CreateResetToken(email, tokenHash string, expiresAt time.Time) (bool, error) {
	email = NormalizeEmail(email)

	token := entities.ResetToken{
		Email:     email,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: r.clock.Now(),
	}

	err := database.WithRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			var count int64
			err := tx.Model(&entities.ResetToken{}).
				Where("email = ? AND token_hash = ?", email, tokenHash).
				Count(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				return gorm.ErrDuplicatedKey
			}
			return tx.Create(&token).Error
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConsumeResetToken marks a matching unused, unexpired token as used.
// The single conditional UPDATE makes consumption exactly-once: of two
// concurrent attempts only one sees used_at IS NULL.
func (r *Repository) ConsumeResetToken(email, tokenPlain string) (bool, error) {
	email = NormalizeEmail(email)
	now := r.clock.Now()

	var affected int64
	err := database.WithRetry(func() error {
		res := r.db.Model(&entities.ResetToken{}).
			Where("email = ? AND token_hash = ? AND used_at IS NULL AND expires_at > ?",
				email, HashToken(tokenPlain), now).
			Update("used_at", now)
		affected = res.RowsAffected
		return res.Error
	})
	return affected == 1, err
}
