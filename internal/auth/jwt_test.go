package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pulsecall/internal/config"

	"github.com/gin-gonic/gin"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(config.AuthConfig{
		JWTSecret:      "secret",
		JWTIssuer:      "issuer",
		JWTAudience:    "aud",
		AccessTokenTTL: 15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	return m
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	m := newTestManager(t)

	now := time.Unix(1700000000, 0).UTC()
	token, err := m.IssueAccess(now, "op-1", "operator")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token string")
	}

	claims, err := m.Verify(token, TokenTypeAccess, now.Add(1*time.Minute))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.ActorID != "op-1" || claims.Role != "operator" || claims.Subject != "op-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := m.Verify(token, TokenTypeAccess, now.Add(time.Hour)); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerifyRejectsWrongTokenType(t *testing.T) {
	m, _ := NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute})
	other, err := m.issue(time.Now(), TokenType("refresh"), "op", "operator", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(other, TokenTypeAccess, time.Now()); err == nil {
		t.Fatalf("expected token_type mismatch")
	}
}

func TestIssueAccessRequiresRole(t *testing.T) {
	m := newTestManager(t)
	if _, err := m.IssueAccess(time.Now(), "op-1", ""); err == nil {
		t.Fatalf("expected error for empty role")
	}
}

func TestRequireAccessToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newTestManager(t)
	token, _ := m.IssueAccess(time.Now(), "op-1", "operator")

	r := gin.New()
	r.GET("/x", RequireAccessToken(m), func(c *gin.Context) {
		id, _ := ActorID(c.Request.Context())
		role, _ := Role(c.Request.Context())
		c.String(http.StatusOK, id+":"+role)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "op-1:operator" {
		t.Fatalf("unexpected response %d %q", w.Code, w.Body.String())
	}
}
