package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/identity"
	"github.com/meshflow/meshflow/backend/pkg/logger"
)

const (
	ContextIdentity = "identity"
)

// AuthRequired resolves the session of the request and rejects it with 401
// when there is none. A failing session backend yields 500, never 401, so
// clients are not logged out by an outage.
func AuthRequired(resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := resolver.Resolve(c.Request.Context(), c.Request)
		if err != nil {
			logger.For(c).Error().Err(err).Msg("session lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if id == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		c.Set(ContextIdentity, id)
		c.Next()
	}
}

// GetIdentity returns the identity set by AuthRequired, or nil.
func GetIdentity(c *gin.Context) *identity.Identity {
	if v, exists := c.Get(ContextIdentity); exists {
		if id, ok := v.(*identity.Identity); ok {
			return id
		}
	}
	return nil
}

// GetUserID gets the current user ID from context
func GetUserID(c *gin.Context) string {
	if id := GetIdentity(c); id != nil {
		return id.ID
	}
	return ""
}
