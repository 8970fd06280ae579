package middleware

import (
	"net/http"

	"parenthub/internal/identity"
	"parenthub/internal/rbac"
	"parenthub/internal/util"

	"github.com/gin-gonic/gin"
)

// RequireElevated lets only authors and admins through. It must run after
// Auth.
func RequireElevated() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := identity.FromContext(c.Request.Context())
		if !ok {
			util.Unauthorized(c, "User not authenticated")
			c.Abort()
			return
		}

		if !rbac.IsElevated(caller.Role) {
			util.ErrorResponse(c, http.StatusForbidden, "Access denied: moderator role required", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
