package entities

import "time"

// DefaultHighlightColor is applied when a client omits the color field.
const DefaultHighlightColor = "#ffda76"

// Highlight is one highlighted sentence in a document. At most one highlight
// exists per sentence index per document per owner; the whole set is replaced
// on every sync push.
type Highlight struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Owner         Owner     `gorm:"type:text;uniqueIndex:idx_highlights_owner_file_sentence" json:"-"`
	FileID        string    `gorm:"size:512;uniqueIndex:idx_highlights_owner_file_sentence" json:"-"`
	SentenceIndex int       `gorm:"uniqueIndex:idx_highlights_owner_file_sentence" json:"sentence_index"`
	Color         string    `gorm:"size:32" json:"color"`
	Text          string    `gorm:"type:text" json:"text"`
	CreatedAt     time.Time `json:"-"`
}

func (Highlight) TableName() string {
	return "highlights"
}
