package entities

import "time"

// User is one account, keyed by normalized email.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	Email        string    `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string    `gorm:"size:128" json:"-"`
	Salt         string    `gorm:"size:64" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// ResetToken is a single-use password reset grant. Only the SHA-256 of the
// token leaves the mailer; the plaintext is never stored.
type ResetToken struct {
	ID        uint       `gorm:"primaryKey" json:"-"`
	Email     string     `gorm:"size:255;uniqueIndex:idx_reset_tokens_email_hash" json:"email"`
	TokenHash string     `gorm:"size:64;uniqueIndex:idx_reset_tokens_email_hash" json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func (ResetToken) TableName() string {
	return "reset_tokens"
}
