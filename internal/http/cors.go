package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CORSMiddleware answers preflights and stamps the allow headers the browser
// clients need. Origins are matched by prefix against the configured list;
// unmatched origins get the first configured one, which the browser then
// refuses, so a deny needs no special-cased response.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := ""
		for _, candidate := range allowedOrigins {
			candidate = strings.TrimSpace(candidate)
			if candidate != "" && strings.HasPrefix(origin, candidate) {
				allowed = origin
				break
			}
		}
		if allowed == "" && len(allowedOrigins) > 0 {
			allowed = strings.TrimSpace(allowedOrigins[0])
		}

		c.Header("Access-Control-Allow-Origin", allowed)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}
