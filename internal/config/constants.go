package config

const (
	// DefaultDatabasePath is where the sqlite file lives unless overridden.
	DefaultDatabasePath = "./data/database.db"

	// DefaultAllowedOrigins mirrors the origins the bundled web reader is
	// served from.
	DefaultAllowedOrigins = "http://127.0.0.1:8080,http://localhost:8080"
)
