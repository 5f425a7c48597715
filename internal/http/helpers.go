package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"readersync/internal/auth"
	"readersync/internal/entities"
)

// GetOwner extracts the owner scope resolved by the auth middleware.
// Requests without credentials run under the legacy unscoped owner.
func GetOwner(c *gin.Context) entities.Owner {
	return auth.OwnerFrom(c)
}

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondGone sends a 410 Gone response, used when an upload hits a
// tombstoned document.
func respondGone(c *gin.Context, message string) {
	c.JSON(http.StatusGone, ErrorResponse{Error: message})
}

// respondInternalError logs the error and sends a 500 response. The actual
// error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}
