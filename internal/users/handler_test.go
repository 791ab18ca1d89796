package users

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"callqa-backend/internal/shared/auth"
	"callqa-backend/internal/shared/server/middleware"
)

func newTestRouter(t *testing.T, repo Repo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	handler := NewHandler(repo)
	router := gin.New()
	public := router.Group("/api/v1")
	handler.RegisterPublicRoutes(public)
	authed := router.Group("/api/v1", middleware.Auth())
	handler.RegisterRoutes(authed)
	return router
}

func seedUser(t *testing.T, repo Repo, email, password, role string, active bool) User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	companyID := int64(1)
	user, err := repo.Create(context.Background(), User{
		Email:          email,
		HashedPassword: hashed,
		Role:           role,
		CompanyID:      &companyID,
		IsActive:       active,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func postLogin(t *testing.T, router *gin.Engine, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestLoginIssuesToken(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, "manager@example.com", "manager123", middleware.RoleCompanyManager, true)
	router := newTestRouter(t, repo)

	rec := postLogin(t, router, `{"email": "manager@example.com", "password": "manager123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		AccessToken string `json:"accessToken"`
		TokenType   string `json:"tokenType"`
		User        User   `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TokenType != "bearer" {
		t.Fatalf("token type = %q", resp.TokenType)
	}
	if resp.User.Email != "manager@example.com" {
		t.Fatalf("user email = %q", resp.User.Email)
	}
	if strings.Contains(rec.Body.String(), "hashed_password") {
		t.Fatalf("password hash leaked in response")
	}

	claims, err := auth.VerifyToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if claims.Role != middleware.RoleCompanyManager || claims.CompanyID != 1 {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLoginIsCaseInsensitiveOnEmail(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, "agent@example.com", "agent123", middleware.RoleAgent, true)
	router := newTestRouter(t, repo)

	rec := postLogin(t, router, `{"email": "Agent@Example.com", "password": "agent123"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, "agent@example.com", "agent123", middleware.RoleAgent, true)
	router := newTestRouter(t, repo)

	rec := postLogin(t, router, `{"email": "agent@example.com", "password": "wrong"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo())

	rec := postLogin(t, router, `{"email": "nobody@example.com", "password": "whatever"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	repo := NewMemoryRepo()
	seedUser(t, repo, "former@example.com", "former123", middleware.RoleAgent, false)
	router := newTestRouter(t, repo)

	rec := postLogin(t, router, `{"email": "former@example.com", "password": "former123"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestMeReturnsAuthenticatedUser(t *testing.T) {
	repo := NewMemoryRepo()
	user := seedUser(t, repo, "agent@example.com", "agent123", middleware.RoleAgent, true)
	router := newTestRouter(t, repo)

	var companyID int64
	if user.CompanyID != nil {
		companyID = *user.CompanyID
	}
	token, err := auth.SignToken(user.ID, user.Email, user.Role, companyID)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var got User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != user.ID || got.Email != user.Email {
		t.Fatalf("me = %+v, want seeded user", got)
	}
}

func TestMeRejectsMissingToken(t *testing.T) {
	router := newTestRouter(t, NewMemoryRepo())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
