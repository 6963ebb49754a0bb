// Package middleware provides Gin middleware for the invoicer API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/craudioviz/invoicer/internal/models"
)

// userKey is the Gin context key holding the authenticated user.
const userKey = "auth_user"

// UserStore resolves bearer tokens to users.
type UserStore interface {
	GetUserByTokenHash(ctx context.Context, tokenHash string) (*models.User, error)
}

// Auth returns a middleware that authenticates requests by opaque bearer
// token. Tokens are stored hashed; the raw token never touches the database.
func Auth(store UserStore, logger zerolog.Logger) gin.HandlerFunc {
	log := logger.With().Str("component", "auth").Logger()

	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		user, err := store.GetUserByTokenHash(c.Request.Context(), models.HashToken(token))
		if err != nil {
			log.Debug().Str("client_ip", c.ClientIP()).Msg("rejected bearer token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// RequireUser returns the authenticated user from the context, writing a 401
// and returning nil when authentication did not run.
func RequireUser(c *gin.Context) *models.User {
	v, ok := c.Get(userKey)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil
	}
	return user
}

// SetUser stores a user in the context. Exposed for handler tests.
func SetUser(c *gin.Context, user *models.User) {
	c.Set(userKey, user)
}
