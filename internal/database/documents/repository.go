// Package documents implements the owner-scoped storage engine for uploaded
// documents and the reconciliation rules reader clients sync against.
//
// Position, voice and highlights each carry their own *_updated_at column so
// a stale write to one field never regresses another; a syncing client
// compares its per-field timestamp against the server's before pushing or
// pulling that field. Existence is itself a mergeable field with a one-way
// ratchet: once a canonical document is deleted its tombstone blocks every
// re-upload, whatever key variant the upload arrives under.
//
// # Usage
//
//	repo := documents.NewRepository(db, clock.UTC{})
//	_, err := repo.PutDocument(owner, fileID, title, format, data, nil)
package documents

import (
	"errors"

	"gorm.io/gorm"

	"readersync/internal/clock"
	"readersync/internal/database"
	"readersync/internal/entities"
)

// ErrDocumentDeleted is returned when an upload targets a canonical name
// that carries a tombstone. Clients are expected to discard their local copy
// rather than retry; deletion is terminal.
var ErrDocumentDeleted = errors.New("document has been deleted")

// Repository handles all document, highlight and tombstone operations.
type Repository struct {
	db    *gorm.DB
	clock clock.Clock
}

// NewRepository creates a new documents repository.
func NewRepository(db *gorm.DB, clk clock.Clock) *Repository {
	return &Repository{db: db, clock: clk}
}

// scoped narrows a query to one owner. Legacy rows (owner IS NULL) are only
// reachable through the legacy scope; they never leak into account queries.
func scoped(tx *gorm.DB, owner entities.Owner) *gorm.DB {
	if owner.Valid {
		return tx.Where("owner = ?", owner.Email)
	}
	return tx.Where("owner IS NULL")
}

// PutDocument inserts or updates a document by (owner, fileID).
//
// On update, title, format and content are overwritten unconditionally;
// voice only when a non-nil voice is supplied, and voice_updated_at only
// when that voice differs from the stored one. On insert all four per-field
// timestamps start equal to created_at.
//
// Returns ErrDocumentDeleted without writing anything if a tombstone exists
// for the owner and the key's canonical name.
func (r *Repository) PutDocument(owner entities.Owner, fileID, title, format string, data []byte, voice *string) (string, error) {
	if fileID == "" {
		return "", errors.New("file id is required")
	}

	canonical := entities.CanonicalDocumentName(fileID)
	now := r.clock.Now()

	err := database.WithRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			var tombstones int64
			err := scoped(tx.Model(&entities.Tombstone{}), owner).
				Where("canonical_name = ?", canonical).
				Count(&tombstones).Error
			if err != nil {
				return err
			}
			if tombstones > 0 {
				return ErrDocumentDeleted
			}

			var existing entities.Document
			err = scoped(tx.Select("id", "voice"), owner).
				Where("file_id = ?", fileID).
				First(&existing).Error
			switch {
			case err == nil:
				updates := map[string]any{
					"title":          title,
					"format":         format,
					"data":           data,
					"canonical_name": canonical,
					"updated_at":     now,
				}
				if voice != nil {
					updates["voice"] = *voice
					if existing.Voice == nil || *existing.Voice != *voice {
						updates["voice_updated_at"] = now
					}
				}
				return tx.Model(&entities.Document{}).
					Where("id = ?", existing.ID).
					Updates(updates).Error

			case errors.Is(err, gorm.ErrRecordNotFound):
				doc := entities.Document{
					Owner:               owner,
					FileID:              fileID,
					CanonicalName:       canonical,
					Title:               title,
					Format:              format,
					Data:                data,
					Voice:               voice,
					CreatedAt:           now,
					UpdatedAt:           now,
					PositionUpdatedAt:   now,
					HighlightsUpdatedAt: now,
					VoiceUpdatedAt:      now,
				}
				return tx.Create(&doc).Error

			default:
				return err
			}
		})
	})
	if err != nil {
		return "", err
	}
	return fileID, nil
}

// GetDocument retrieves a document's metadata (content excluded).
func (r *Repository) GetDocument(owner entities.Owner, fileID string) (*entities.Document, error) {
	var doc entities.Document
	err := scoped(r.db.Omit("data"), owner).
		Where("file_id = ?", fileID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// DocumentExists checks whether a document exists for the owner.
func (r *Repository) DocumentExists(owner entities.Owner, fileID string) (bool, error) {
	var count int64
	err := scoped(r.db.Model(&entities.Document{}), owner).
		Where("file_id = ?", fileID).
		Count(&count).Error
	return count > 0, err
}

// GetBlob retrieves the stored binary content of a document.
func (r *Repository) GetBlob(owner entities.Owner, fileID string) ([]byte, error) {
	var doc entities.Document
	err := scoped(r.db.Select("id", "data"), owner).
		Where("file_id = ?", fileID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return doc.Data, nil
}

// ListDocuments returns all documents for the owner, newest first,
// content excluded.
func (r *Repository) ListDocuments(owner entities.Owner) ([]entities.Document, error) {
	var docs []entities.Document
	err := scoped(r.db.Omit("data"), owner).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// UpdatePosition sets the reading position, touching updated_at and
// position_updated_at in the same statement. Returns false when no document
// matches.
func (r *Repository) UpdatePosition(owner entities.Owner, fileID, position string) (bool, error) {
	now := r.clock.Now()
	var affected int64
	err := database.WithRetry(func() error {
		res := scoped(r.db.Model(&entities.Document{}), owner).
			Where("file_id = ?", fileID).
			Updates(map[string]any{
				"reading_position":    position,
				"updated_at":          now,
				"position_updated_at": now,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

// UpdateVoice sets the narration voice, touching updated_at and
// voice_updated_at. Returns false when no document matches.
func (r *Repository) UpdateVoice(owner entities.Owner, fileID, voice string) (bool, error) {
	now := r.clock.Now()
	var affected int64
	err := database.WithRetry(func() error {
		res := scoped(r.db.Model(&entities.Document{}), owner).
			Where("file_id = ?", fileID).
			Updates(map[string]any{
				"voice":            voice,
				"updated_at":       now,
				"voice_updated_at": now,
			})
		affected = res.RowsAffected
		return res.Error
	})
	return affected > 0, err
}

// DeleteDocument removes every stored key variant sharing the canonical name
// of fileID, along with their highlights, and upserts a tombstone for the
// canonical name, all in one transaction. Repeating the delete just
// refreshes the tombstone's deleted_at, so it returns true even when nothing
// is left to remove; false only for a key whose canonical name is empty.
func (r *Repository) DeleteDocument(owner entities.Owner, fileID string) (bool, error) {
	canonical := entities.CanonicalDocumentName(fileID)
	if canonical == "" {
		return false, nil
	}

	now := r.clock.Now()
	err := database.WithRetry(func() error {
		return r.db.Transaction(func(tx *gorm.DB) error {
			var variants []entities.Document
			err := scoped(tx.Select("id", "file_id"), owner).
				Where("canonical_name = ?", canonical).
				Find(&variants).Error
			if err != nil {
				return err
			}

			if len(variants) > 0 {
				keys := make([]string, 0, len(variants))
				for _, v := range variants {
					keys = append(keys, v.FileID)
				}
				err = scoped(tx.Where("file_id IN ?", keys), owner).
					Delete(&entities.Highlight{}).Error
				if err != nil {
					return err
				}
				err = scoped(tx.Where("file_id IN ?", keys), owner).
					Delete(&entities.Document{}).Error
				if err != nil {
					return err
				}
			}

			// Upsert done by hand: sqlite treats NULL owners as distinct in
			// the unique index, so ON CONFLICT never fires for legacy rows.
			var tombstone entities.Tombstone
			err = scoped(tx, owner).
				Where("canonical_name = ?", canonical).
				First(&tombstone).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				tombstone = entities.Tombstone{
					Owner:         owner,
					CanonicalName: canonical,
					DeletedAt:     now,
				}
				return tx.Create(&tombstone).Error
			}
			if err != nil {
				return err
			}
			return tx.Model(&entities.Tombstone{}).
				Where("id = ?", tombstone.ID).
				Update("deleted_at", now).Error
		})
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsDeleted checks whether a tombstone exists for the key's canonical name.
func (r *Repository) IsDeleted(owner entities.Owner, fileID string) (bool, error) {
	canonical := entities.CanonicalDocumentName(fileID)
	if canonical == "" {
		return false, nil
	}
	var count int64
	err := scoped(r.db.Model(&entities.Tombstone{}), owner).
		Where("canonical_name = ?", canonical).
		Count(&count).Error
	return count > 0, err
}

// ListTombstones returns the owner's tombstones.
func (r *Repository) ListTombstones(owner entities.Owner) ([]entities.Tombstone, error) {
	var tombstones []entities.Tombstone
	err := scoped(r.db, owner).
		Order("canonical_name ASC").
		Find(&tombstones).Error
	return tombstones, err
}
