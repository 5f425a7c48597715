package documents

import (
	"encoding/json"
	"strconv"

	"gorm.io/gorm"

	"readersync/internal/database"
	"readersync/internal/entities"
)

// HighlightInput is one highlight as sent by a client. SentenceIndex stays
// loosely typed because clients send numbers, numeric strings, or garbage;
// items whose index cannot be coerced to a non-negative integer are skipped.
type HighlightInput struct {
	SentenceIndex any
	Color         string
	Text          string
}

// HighlightInputFromJSON builds a HighlightInput from a decoded JSON object,
// accepting both the camelCase and snake_case index keys.
func HighlightInputFromJSON(item map[string]any) HighlightInput {
	in := HighlightInput{}
	if idx, ok := item["sentenceIndex"]; ok {
		in.SentenceIndex = idx
	} else {
		in.SentenceIndex = item["sentence_index"]
	}
	if color, ok := item["color"].(string); ok {
		in.Color = color
	}
	if text, ok := item["text"].(string); ok {
		in.Text = text
	}
	return in
}

func coerceSentenceIndex(v any) (int, bool) {
	switch idx := v.(type) {
	case int:
		return idx, true
	case int64:
		return int(idx), true
	case float64:
		return int(idx), true
	case json.Number:
		n, err := idx.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(idx)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// ReplaceHighlights atomically replaces the whole highlight set of a
// document: existing rows are deleted, one row is inserted per input with a
// coercible non-negative sentence index, and the document's updated_at and
// highlights_updated_at are touched, all in one transaction. An empty input
// clears the set. Returns the number of highlights written.
func (r *Repository) ReplaceHighlights(owner entities.Owner, fileID string, items []HighlightInput) (int, error) {
	now := r.clock.Now()
	count := 0

	err := database.WithRetry(func() error {
		count = 0
		return r.db.Transaction(func(tx *gorm.DB) error {
			err := scoped(tx.Where("file_id = ?", fileID), owner).
				Delete(&entities.Highlight{}).Error
			if err != nil {
				return err
			}

			for _, item := range items {
				idx, ok := coerceSentenceIndex(item.SentenceIndex)
				if !ok || idx < 0 {
					continue
				}
				color := item.Color
				if color == "" {
					color = entities.DefaultHighlightColor
				}
				highlight := entities.Highlight{
					Owner:         owner,
					FileID:        fileID,
					SentenceIndex: idx,
					Color:         color,
					Text:          item.Text,
					CreatedAt:     now,
				}
				if err := tx.Create(&highlight).Error; err != nil {
					return err
				}
				count++
			}

			return scoped(tx.Model(&entities.Document{}), owner).
				Where("file_id = ?", fileID).
				Updates(map[string]any{
					"updated_at":            now,
					"highlights_updated_at": now,
				}).Error
		})
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetHighlights returns a document's highlights ordered by sentence index.
func (r *Repository) GetHighlights(owner entities.Owner, fileID string) ([]entities.Highlight, error) {
	var highlights []entities.Highlight
	err := scoped(r.db.Where("file_id = ?", fileID), owner).
		Order("sentence_index ASC").
		Find(&highlights).Error
	return highlights, err
}
