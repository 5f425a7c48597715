package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"readersync/internal/entities"
)

// ContextKeyOwner is the gin context key holding the resolved owner scope.
const ContextKeyOwner = "auth_owner"

// Middleware resolves the owner scope for incoming requests.
type Middleware struct {
	issuer *TokenIssuer
}

// NewMiddleware creates a new authentication middleware.
func NewMiddleware(issuer *TokenIssuer) *Middleware {
	return &Middleware{issuer: issuer}
}

// ResolveOwner authenticates the Authorization header when present. Requests
// without one run under the legacy unscoped owner so pre-account clients
// keep syncing; a malformed or expired token is rejected outright.
func (m *Middleware) ResolveOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(ContextKeyOwner, entities.Legacy())
			c.Next()
			return
		}

		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		email, err := m.issuer.Verify(strings.TrimPrefix(header, prefix))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(ContextKeyOwner, entities.OwnerOf(email))
		c.Next()
	}
}

// RequireAccount rejects requests that resolved to the legacy scope.
func (m *Middleware) RequireAccount() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !OwnerFrom(c).Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// OwnerFrom returns the owner scope resolved for the request.
func OwnerFrom(c *gin.Context) entities.Owner {
	if v, ok := c.Get(ContextKeyOwner); ok {
		if owner, ok := v.(entities.Owner); ok {
			return owner
		}
	}
	return entities.Legacy()
}
