package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/khushigupta13/patienthub/internal/auth"
	"github.com/khushigupta13/patienthub/internal/domain/user"
	"github.com/khushigupta13/patienthub/internal/http/handlers"
	"github.com/khushigupta13/patienthub/internal/repo/postgres"
	"github.com/khushigupta13/patienthub/internal/security"
)

type fakeUsersRepo struct {
	getByEmailFn func(ctx context.Context, email string) (user.User, error)
	createFn     func(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	if f.getByEmailFn != nil {
		return f.getByEmailFn(ctx, email)
	}
	return user.User{}, postgres.ErrUserNotFound
}

func (f *fakeUsersRepo) Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
	if f.createFn != nil {
		return f.createFn(ctx, email, passwordHash, name, role)
	}
	return user.User{}, nil
}

func testJWT() *auth.Manager {
	return auth.NewManager("test-secret-key", time.Hour)
}

func TestRegisterHandler(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		repoSetUp      func(*fakeUsersRepo)
		wantStatusCode int
		wantCode       string
	}{
		{
			name: "success_defaults_to_staff",
			body: `{"name":"Pat","email":"pat@example.com","password":"longenough"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					if role != user.RoleStaff {
						t.Fatalf("default role = %q, want staff", role)
					}
					if passwordHash == "longenough" {
						t.Fatal("password stored unhashed")
					}
					return user.User{ID: newUUID(), Email: email, Name: name, Role: role}, nil
				}
			},
			wantStatusCode: http.StatusCreated,
		},
		{
			name: "duplicate_email",
			body: `{"name":"Pat","email":"pat@example.com","password":"longenough"}`,
			repoSetUp: func(f *fakeUsersRepo) {
				f.createFn = func(ctx context.Context, email, passwordHash, name, role string) (user.User, error) {
					return user.User{}, postgres.ErrEmailAlreadyUsed
				}
			},
			wantStatusCode: http.StatusBadRequest,
			wantCode:       "email_taken",
		},
		{
			name:           "missing_fields",
			body:           `{"email":"pat@example.com"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown_role",
			body:           `{"name":"Pat","email":"pat@example.com","password":"longenough","role":"superuser"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{}

			if tt.repoSetUp != nil {
				tt.repoSetUp(repo)
			}

			h := handlers.NewAuthHandler(repo, repo, testJWT())
			r := setupRouter(http.MethodPost, "/api/auth/register", h.Register)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantCode != "" {
				var resp struct {
					Code string `json:"code"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Code != tt.wantCode {
					t.Fatalf("got code %q, want %q", resp.Code, tt.wantCode)
				}
			}

			if tt.wantStatusCode == http.StatusCreated {
				var resp struct {
					User  user.Public `json:"user"`
					Token string      `json:"token"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Token == "" || resp.User.Email != "pat@example.com" {
					t.Fatalf("bad session response: %+v", resp)
				}
				if bytes.Contains(w.Body.Bytes(), []byte("password")) {
					t.Fatalf("response leaks password material: %s", w.Body.String())
				}
			}
		})
	}
}

func TestLoginHandler(t *testing.T) {
	hash, err := security.HashPassword("correct-horse")

	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	stored := user.User{
		ID:           newUUID(),
		Email:        "pat@example.com",
		PasswordHash: hash,
		Name:         "Pat",
		Role:         user.RoleAdmin,
	}

	lookup := func(ctx context.Context, email string) (user.User, error) {
		if email == stored.Email {
			return stored, nil
		}
		return user.User{}, postgres.ErrUserNotFound
	}

	tests := []struct {
		name           string
		body           string
		wantStatusCode int
	}{
		{
			name:           "success",
			body:           `{"email":"pat@example.com","password":"correct-horse"}`,
			wantStatusCode: http.StatusOK,
		},
		{
			name:           "wrong_password",
			body:           `{"email":"pat@example.com","password":"wrong"}`,
			wantStatusCode: http.StatusBadRequest,
		},
		{
			name:           "unknown_email",
			body:           `{"email":"nobody@example.com","password":"correct-horse"}`,
			wantStatusCode: http.StatusBadRequest,
		},
	}

	var wrongPasswordBody, unknownEmailBody string

	for _, tt := range tests {
		tt := tt

		t.Run(tt.name, func(t *testing.T) {
			repo := &fakeUsersRepo{getByEmailFn: lookup}
			jwtManager := testJWT()

			h := handlers.NewAuthHandler(repo, repo, jwtManager)
			r := setupRouter(http.MethodPost, "/api/auth/login", h.Login)

			req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			switch tt.name {
			case "success":
				var resp struct {
					User  user.Public `json:"user"`
					Token string      `json:"token"`
				}
				if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}

				claims, err := jwtManager.VerifyAccessToken(resp.Token)
				if err != nil {
					t.Fatalf("issued token does not verify: %v", err)
				}
				if claims.UserID != stored.ID || claims.Role != stored.Role {
					t.Fatalf("claims do not match the account: %+v", claims)
				}
			case "wrong_password":
				wrongPasswordBody = w.Body.String()
			case "unknown_email":
				unknownEmailBody = w.Body.String()
			}
		})
	}

	// neither failure mode may reveal which condition held
	if wrongPasswordBody != unknownEmailBody {
		t.Fatalf("login failures are distinguishable:\n%s\n%s", wrongPasswordBody, unknownEmailBody)
	}
}
