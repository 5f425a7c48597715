package entities

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

type DocumentFormat = string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatEPUB DocumentFormat = "epub"
)

// Owner scopes a row to the account that wrote it. The zero value is the
// legacy scope: rows written before accounts existed carry a NULL owner and
// stay visible to unscoped queries only.
type Owner struct {
	Email string
	Valid bool
}

// OwnerOf returns the scope for an account email.
func OwnerOf(email string) Owner {
	return Owner{Email: email, Valid: true}
}

// Legacy returns the unscoped owner matching pre-account rows.
func Legacy() Owner {
	return Owner{}
}

func (o Owner) Value() (driver.Value, error) {
	if !o.Valid {
		return nil, nil
	}
	return o.Email, nil
}

func (o *Owner) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*o = Owner{}
	case string:
		*o = Owner{Email: v, Valid: true}
	case []byte:
		*o = Owner{Email: string(v), Valid: true}
	default:
		return fmt.Errorf("cannot scan %T into Owner", src)
	}
	return nil
}

// Document is one uploaded file together with its per-device reading state.
// Position, voice and highlights carry independent timestamps so syncing
// clients can merge each field on its own last-writer-wins clock.
type Document struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	Owner         Owner  `gorm:"type:text;uniqueIndex:idx_documents_owner_file" json:"-"`
	FileID        string `gorm:"size:512;uniqueIndex:idx_documents_owner_file" json:"filename"`
	CanonicalName string `gorm:"size:512;index" json:"-"`
	Title         string `gorm:"size:512" json:"title"`
	Format        string `gorm:"size:10" json:"format"`
	Data          []byte `gorm:"type:blob" json:"-"`

	ReadingPosition *string `json:"reading_position"`
	Voice           *string `json:"voice"`

	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime:false" json:"updated_at"`
	PositionUpdatedAt   time.Time `json:"position_updated_at"`
	HighlightsUpdatedAt time.Time `json:"highlights_updated_at"`
	VoiceUpdatedAt      time.Time `json:"voice_updated_at"`
}

func (Document) TableName() string {
	return "documents"
}

// CanonicalDocumentName strips the upload-session encoding from a file id.
// Clients build keys as "file::<name>::<size>::<mtime>", so the same logical
// document can arrive under several key variants; everything that correlates
// documents across uploads (deletes, tombstones) goes through this name.
func CanonicalDocumentName(fileID string) string {
	if !strings.HasPrefix(fileID, "file::") {
		return fileID
	}
	parts := strings.Split(fileID, "::")
	if len(parts) >= 2 {
		return parts[1]
	}
	return fileID
}
