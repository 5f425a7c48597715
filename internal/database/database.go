package database

import (
	"fmt"
	"log"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"readersync/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		// Let sqlite itself wait on a writer before reporting SQLITE_BUSY;
		// the retry policy covers whatever slips through.
		dsn += "?_busy_timeout=5000"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.Document{},
		&entities.Highlight{},
		&entities.Tombstone{},
		&entities.User{},
		&entities.ResetToken{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.backfill(); err != nil {
		return nil, fmt.Errorf("failed to backfill columns: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// backfill fills columns added after the initial schema shipped. Databases
// written before the per-field timestamps existed have NULLs there, and rows
// from before canonical names were stored have an empty canonical_name.
// Both are derived from data already present; nothing is ever dropped.
func (d *Database) backfill() error {
	err := d.DB.Exec(`
		UPDATE documents
		SET
			updated_at = COALESCE(updated_at, created_at),
			position_updated_at = COALESCE(position_updated_at, created_at),
			highlights_updated_at = COALESCE(highlights_updated_at, created_at),
			voice_updated_at = COALESCE(voice_updated_at, created_at)
		WHERE updated_at IS NULL
		   OR position_updated_at IS NULL
		   OR highlights_updated_at IS NULL
		   OR voice_updated_at IS NULL
	`).Error
	if err != nil {
		return err
	}

	// The key encoding is not expressible in SQL, so canonical names are
	// computed here row by row.
	var docs []entities.Document
	err = d.DB.Select("id", "file_id").
		Where("canonical_name IS NULL OR canonical_name = ''").
		Find(&docs).Error
	if err != nil {
		return err
	}
	for _, doc := range docs {
		name := entities.CanonicalDocumentName(doc.FileID)
		err = d.DB.Model(&entities.Document{}).
			Where("id = ?", doc.ID).
			Update("canonical_name", name).Error
		if err != nil {
			return err
		}
	}
	return nil
}
