package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/auth"
)

// DriverIDKey is the gin context key holding the authenticated driver ID.
const DriverIDKey = "driver_id"

// TokenValidator verifies bearer tokens.
type TokenValidator interface {
	Validate(token, tokenType string) (*auth.Claims, error)
}

// DriverAuth requires a valid driver access token and stores the driver
// ID in the context under DriverIDKey.
func DriverAuth(tokens TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token := strings.TrimPrefix(header, "Bearer ")
		if header == "" || token == header || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		claims, err := tokens.Validate(strings.TrimSpace(token), auth.TokenTypeAccess)
		if errors.Is(err, auth.ErrExpiredToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access token expired"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid access token"})
			return
		}

		c.Set(DriverIDKey, claims.DriverID)
		c.Next()
	}
}

// DriverID returns the authenticated driver ID set by DriverAuth.
func DriverID(c *gin.Context) (int64, bool) {
	v, ok := c.Get(DriverIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
