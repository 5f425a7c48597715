// Package http wires the gin router for the sync API: the files endpoints
// backed by the documents repository, the auth endpoints, a health probe and
// the translate relay.
package http

import (
	"github.com/gin-gonic/gin"

	"readersync/internal/auth"
	"readersync/internal/database/documents"
)

// RouterConfig carries all router dependencies.
type RouterConfig struct {
	Documents      *documents.Repository
	AuthController *auth.Controller
	AuthMiddleware *auth.Middleware
	AllowedOrigins []string
	TranslateURL   string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(CORSMiddleware(cfg.AllowedOrigins))

	api := router.Group("/api")
	api.GET("/ping", Ping)

	cfg.AuthController.RegisterRoutes(api.Group("/auth"), cfg.AuthMiddleware)

	files := api.Group("/files")
	files.Use(cfg.AuthMiddleware.ResolveOwner())
	NewFilesController(cfg.Documents).RegisterRoutes(files)

	api.POST("/translate", NewTranslateController(cfg.TranslateURL).Translate)

	return router
}
