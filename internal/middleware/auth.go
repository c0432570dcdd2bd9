package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"pawpost-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	authorizationHeaderKey  = "Authorization"
	authorizationTypeBearer = "bearer"
	authorizationPayloadKey = "userID"

	// SystemKeyHeader carries the shared secret of platform-side callers.
	SystemKeyHeader = "X-System-Key"
)

// AuthMiddleware returns a Gin middleware that validates bearer tokens and stores the caller's id.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(authorizationHeaderKey)
		if len(authHeader) == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is not provided", "code": "unauthorized"})
			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) < 2 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format", "code": "unauthorized"})
			return
		}
		if strings.ToLower(fields[0]) != authorizationTypeBearer {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unsupported authorization type, 'Bearer' required", "code": "unauthorized"})
			return
		}

		claims, err := utils.ValidateJWT(fields[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}
		userID, err := claims.Subject()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token subject", "code": "unauthorized"})
			return
		}

		c.Set(authorizationPayloadKey, userID)
		c.Next()
	}
}

// SystemKeyMiddleware admits platform callers presenting the configured system key.
// An empty key disables the routes it guards.
func SystemKeyMiddleware(systemKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader(SystemKeyHeader)
		if systemKey == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(systemKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid system key", "code": "unauthorized"})
			return
		}
		c.Next()
	}
}

// CurrentUserID returns the id stored by AuthMiddleware.
func CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	value, ok := c.Get(authorizationPayloadKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := value.(uuid.UUID)
	return id, ok
}
