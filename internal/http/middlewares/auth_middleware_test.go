package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/khushigupta13/patienthub/internal/auth"
	"github.com/khushigupta13/patienthub/internal/domain/user"
	"github.com/khushigupta13/patienthub/internal/http/middlewares"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	if f.verifyFn != nil {
		return f.verifyFn(token)
	}
	return nil, errors.New("no verifier")
}

type fakeResolver struct {
	getByIDFn func(ctx context.Context, id string) (user.User, error)
}

func (f *fakeResolver) GetByID(ctx context.Context, id string) (user.User, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return user.User{}, errors.New("no resolver")
}

func protectedRouter(mw *middlewares.AuthMiddleware, roles ...string) *gin.Engine {
	r := gin.New()

	group := r.Group("/", mw.RequireAuth())

	if len(roles) > 0 {
		group.Use(mw.RequireRoles(roles...))
	}

	group.GET("/secret", func(c *gin.Context) {
		principal, _ := middlewares.PrincipalFromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": principal.ID})
	})

	return r
}

func TestRequireAuth(t *testing.T) {
	accountID := uuid.NewString()

	okVerifier := &fakeVerifier{
		verifyFn: func(token string) (*auth.Claims, error) {
			if token != "good-token" {
				return nil, errors.New("bad token")
			}
			return &auth.Claims{UserID: accountID, Role: user.RoleStaff}, nil
		},
	}

	okResolver := &fakeResolver{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			if id != accountID {
				return user.User{}, errors.New("unknown user")
			}
			return user.User{ID: accountID, Role: user.RoleStaff}, nil
		},
	}

	tests := []struct {
		name           string
		header         string
		verifier       middlewares.TokenVerifier
		resolver       middlewares.UserResolver
		wantStatusCode int
	}{
		{
			name:           "missing_header",
			header:         "",
			verifier:       okVerifier,
			resolver:       okResolver,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "not_bearer",
			header:         "Basic abc123",
			verifier:       okVerifier,
			resolver:       okResolver,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "empty_token",
			header:         "Bearer ",
			verifier:       okVerifier,
			resolver:       okResolver,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "invalid_token",
			header:         "Bearer forged",
			verifier:       okVerifier,
			resolver:       okResolver,
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:     "deleted_user",
			header:   "Bearer good-token",
			verifier: okVerifier,
			resolver: &fakeResolver{
				getByIDFn: func(ctx context.Context, id string) (user.User, error) {
					return user.User{}, errors.New("user not found")
				},
			},
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "success",
			header:         "Bearer good-token",
			verifier:       okVerifier,
			resolver:       okResolver,
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			mw := middlewares.NewAuthMiddleware(tt.verifier, tt.resolver)
			r := protectedRouter(mw)

			req := httptest.NewRequest(http.MethodGet, "/secret", nil)

			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestRequireAuthWithRealTokens(t *testing.T) {
	manager := auth.NewManager("test-secret-key", time.Minute)
	accountID := uuid.NewString()

	resolver := &fakeResolver{
		getByIDFn: func(ctx context.Context, id string) (user.User, error) {
			if id != accountID {
				return user.User{}, errors.New("unknown user")
			}
			return user.User{ID: accountID, Role: user.RoleAdmin}, nil
		},
	}

	mw := middlewares.NewAuthMiddleware(manager, resolver)
	r := protectedRouter(mw)

	token, err := manager.GenerateAccessToken(accountID, "pat@example.com", user.RoleAdmin)

	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("valid token rejected: %d %s", w.Code, w.Body.String())
	}

	// expired token
	expiredManager := auth.NewManager("test-secret-key", -time.Minute)
	expired, err := expiredManager.GenerateAccessToken(accountID, "pat@example.com", user.RoleAdmin)

	if err != nil {
		t.Fatalf("generate expired token: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/secret", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token accepted: %d", w.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	accountID := uuid.NewString()

	makeMiddleware := func(role string) *middlewares.AuthMiddleware {
		verifier := &fakeVerifier{
			verifyFn: func(token string) (*auth.Claims, error) {
				return &auth.Claims{UserID: accountID, Role: role}, nil
			},
		}
		resolver := &fakeResolver{
			getByIDFn: func(ctx context.Context, id string) (user.User, error) {
				return user.User{ID: accountID, Role: role}, nil
			},
		}
		return middlewares.NewAuthMiddleware(verifier, resolver)
	}

	tests := []struct {
		name           string
		role           string
		allowed        []string
		wantStatusCode int
	}{
		{
			name:           "admin_allowed",
			role:           user.RoleAdmin,
			allowed:        []string{user.RoleAdmin},
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "staff_forbidden",
			role:           user.RoleStaff,
			allowed:        []string{user.RoleAdmin},
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "staff_in_allow_list",
			role:           user.RoleStaff,
			allowed:        []string{user.RoleAdmin, user.RoleStaff},
			wantStatusCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			r := protectedRouter(makeMiddleware(tt.role), tt.allowed...)

			req := httptest.NewRequest(http.MethodGet, "/secret", nil)
			req.Header.Set("Authorization", "Bearer any")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

// RequireRoles without RequireAuth first is a misordered chain and must read
// as unauthenticated, not forbidden.
func TestRequireRolesWithoutPrincipal(t *testing.T) {
	mw := middlewares.NewAuthMiddleware(&fakeVerifier{}, &fakeResolver{})

	r := gin.New()
	r.GET("/secret", mw.RequireRoles(user.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/secret", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}
