package entities

import "time"

// Tombstone records that a canonical document was deleted for an owner.
// While it exists, no key variant of that document may be re-created; the
// marker never expires.
type Tombstone struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Owner         Owner     `gorm:"type:text;uniqueIndex:idx_tombstones_owner_canonical" json:"-"`
	CanonicalName string    `gorm:"size:512;uniqueIndex:idx_tombstones_owner_canonical" json:"canonical_name"`
	DeletedAt     time.Time `json:"deleted_at"`
}

func (Tombstone) TableName() string {
	return "tombstones"
}
