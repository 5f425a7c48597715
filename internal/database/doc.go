// Package database provides the data access layer for the sync backend.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, column backfills
//	├── retry.go         # Bounded retry for lock contention on the db file
//	├── documents/       # Document, highlight and tombstone operations
//	└── users/           # Account credentials and password reset tokens
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./app.db")
//
//	// Create domain-specific repositories
//	docsRepo := documents.NewRepository(db.DB, clock.UTC{})
//	usersRepo := users.NewRepository(db.DB, clock.UTC{})
//
//	// Use repositories
//	doc, err := docsRepo.GetDocument(owner, fileID)
//	ok, err := usersRepo.VerifyCredentials(email, password)
//
// # Concurrency
//
// The sqlite file is shared by every request-handling goroutine. Mutating
// operations run as a single transaction wrapped in WithRetry, which retries
// on SQLITE_BUSY/SQLITE_LOCKED with exponential backoff before giving up.
// Reads are not retried.
package database
