package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"readersync/internal/auth"
	"readersync/internal/clock"
	"readersync/internal/config"
	"readersync/internal/database"
	"readersync/internal/database/documents"
	"readersync/internal/database/users"
	http_controllers "readersync/internal/http"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// Wait for interrupt before gracefully shutting down with a timeout.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting readersync v%s", version)

	// Make sure the database directory exists before sqlite opens the file.
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database directory %s: %v", dir, err)
		}
	}

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	clk := clock.UTC{}
	docsRepo := documents.NewRepository(db.DB, clk)
	usersRepo := users.NewRepository(db.DB, clk)

	secret := cfg.Auth.TokenSecret
	if secret == "" {
		secret, err = auth.GenerateSecret()
		if err != nil {
			log.Fatalf("Failed to generate token secret: %v", err)
		}
		log.Printf("Generated token secret (set AUTH_TOKEN_SECRET to keep sessions across restarts)")
	}
	issuer := auth.NewTokenIssuer([]byte(secret), cfg.Auth.TokenExpiry, clk)

	var mailer auth.Mailer = auth.LogMailer{}
	if cfg.SMTP.Host != "" {
		mailer = auth.NewSMTPMailer(auth.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			From:     cfg.SMTP.From,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
		})
	} else {
		log.Printf("WARNING: SMTP is not configured; password reset tokens will be logged instead of mailed")
	}

	authService := auth.NewService(usersRepo, issuer, mailer, cfg.Auth.ResetTokenExpiry, clk)

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Documents:      docsRepo,
		AuthController: auth.NewController(authService),
		AuthMiddleware: auth.NewMiddleware(issuer),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		TranslateURL:   cfg.Translate.UpstreamURL,
	})

	Serve(router, cfg, nil)
}
