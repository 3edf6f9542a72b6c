package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khushigupta13/patienthub/internal/config"
	"github.com/khushigupta13/patienthub/internal/domain/user"
	"github.com/khushigupta13/patienthub/internal/http/middlewares"
)

type UserLister interface {
	List(ctx context.Context) ([]user.User, error)
}

type UsersHandler struct {
	users UserLister
}

func NewUsersHandler(users UserLister) *UsersHandler {
	return &UsersHandler{users: users}
}

// Me returns the authenticated caller's own public projection.
func (h *UsersHandler) Me(ctx *gin.Context) {
	principal, ok := middlewares.PrincipalFromContext(ctx)

	if !ok {
		RespondError(ctx, http.StatusUnauthorized, "unauthenticated", "User not authenticated", nil)
		return
	}

	ctx.JSON(http.StatusOK, principal.Public())
}

// ListUsers returns every account's public projection. Admin only.
func (h *UsersHandler) ListUsers(ctx *gin.Context) {
	cctx, cancel := config.WithTimeout(3 * time.Second)
	defer cancel()

	all, err := h.users.List(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	out := make([]user.Public, 0, len(all))

	for _, u := range all {
		out = append(out, u.Public())
	}

	ctx.JSON(http.StatusOK, gin.H{"users": out})
}
