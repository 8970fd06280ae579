package middleware

import (
	"strings"

	"parenthub/internal/identity"
	"parenthub/internal/rbac"
	"parenthub/internal/util"

	"github.com/gin-gonic/gin"
)

// Auth resolves the bearer token into an identity.Caller on the request
// context. Requests without a token pass through anonymously so read
// endpoints stay public; the service decides which operations need a caller.
// A malformed or invalid token is rejected with 401.
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			util.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := util.ValidateToken(parts[1], jwtSecret)
		if err != nil {
			util.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		caller := &identity.Caller{
			ID:          claims.UserID,
			Role:        rbac.Normalize(claims.Role),
			DisplayName: claims.DisplayName,
		}
		c.Set("userID", caller.ID)
		c.Set("role", string(caller.Role))
		c.Request = c.Request.WithContext(identity.WithCaller(c.Request.Context(), caller))
		c.Next()
	}
}
