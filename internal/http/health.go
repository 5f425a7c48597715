package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Ping is a trivial health check the clients use to probe connectivity.
func Ping(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Server is running"})
}
