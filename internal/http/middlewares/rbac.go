package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireRoles continues only when the attached principal's role is in the
// allow-list. A missing principal means the chain was misordered; that is an
// authentication failure, not an authorization one.
func (m *AuthMiddleware) RequireRoles(allowed ...string) gin.HandlerFunc {
	permitted := make(map[string]struct{}, len(allowed))

	for _, role := range allowed {
		permitted[role] = struct{}{}
	}

	return func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c)

		if !ok || principal.Role == "" {
			abortUnauthenticated(c, "User not authenticated")
			return
		}

		if _, ok := permitted[principal.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":      "forbidden",
				"message":   "Access denied: insufficient permissions",
				"requestId": c.GetString(CtxRequestID),
			})
			return
		}
		c.Next()
	}
}
