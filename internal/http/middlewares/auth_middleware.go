package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khushigupta13/patienthub/internal/auth"
	"github.com/khushigupta13/patienthub/internal/config"
	"github.com/khushigupta13/patienthub/internal/domain/user"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type UserResolver interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users UserResolver
}

func NewAuthMiddleware(jwt TokenVerifier, users UserResolver) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

// RequireAuth verifies the bearer token and resolves its subject against the
// users store. A token whose user has since been deleted is rejected. The
// resolved principal is attached to the request context for later steps.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			abortUnauthenticated(c, "Not authorized, token missing")
			return
		}

		raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
		if raw == "" {
			abortUnauthenticated(c, "Not authorized, token missing")
			return
		}

		claims, err := m.jwt.VerifyAccessToken(raw)
		if err != nil {
			abortUnauthenticated(c, "Not authorized, token invalid")
			return
		}

		cctx, cancel := config.WithTimeout(2 * time.Second)
		defer cancel()

		principal, err := m.users.GetByID(cctx, claims.UserID)
		if err != nil {
			abortUnauthenticated(c, "Not authorized, user not found")
			return
		}

		c.Set(CtxPrincipal, principal)

		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":      "unauthenticated",
		"message":   message,
		"requestId": c.GetString(CtxRequestID),
	})
}

// PrincipalFromContext lets handlers read the identity without knowing the
// magic context key.
func PrincipalFromContext(c *gin.Context) (user.User, bool) {
	v, ok := c.Get(CtxPrincipal)
	if !ok {
		return user.User{}, false
	}
	principal, ok := v.(user.User)
	return principal, ok
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	principal, ok := PrincipalFromContext(c)
	if !ok {
		return "", false
	}
	return principal.ID, true
}
