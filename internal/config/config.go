package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		CORS
		Auth
		SMTP
		Translate
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	CORS struct {
		AllowedOrigins []string
	}
	Auth struct {
		TokenSecret      string
		TokenExpiry      time.Duration
		ResetTokenExpiry time.Duration
	}
	SMTP struct {
		Host     string
		Port     int
		From     string
		Username string
		Password string
	}
	Translate struct {
		UpstreamURL string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8000)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("allowed_origins", DefaultAllowedOrigins)

	// Auth defaults
	v.SetDefault("auth_token_secret", "") // Auto-generated if empty
	v.SetDefault("auth_token_expiry", "720h")
	v.SetDefault("reset_token_expiry", "1h")

	// Outgoing mail defaults
	v.SetDefault("smtp_host", "")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_from", "")
	v.SetDefault("smtp_username", "")
	v.SetDefault("smtp_password", "")

	v.SetDefault("translate_upstream_url", "")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		CORS: CORS{
			AllowedOrigins: splitOrigins(v.GetString("ALLOWED_ORIGINS")),
		},
		Auth: Auth{
			TokenSecret:      v.GetString("AUTH_TOKEN_SECRET"),
			TokenExpiry:      v.GetDuration("AUTH_TOKEN_EXPIRY"),
			ResetTokenExpiry: v.GetDuration("RESET_TOKEN_EXPIRY"),
		},
		SMTP: SMTP{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			From:     v.GetString("SMTP_FROM"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
		},
		Translate: Translate{
			UpstreamURL: v.GetString("TRANSLATE_UPSTREAM_URL"),
		},
	}
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
