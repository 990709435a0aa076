package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"pulsecall/internal/auth"

	"github.com/gin-gonic/gin"
)

func serveWithIdentity(actorID, role string, chain ...gin.HandlerFunc) int {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	handlers := []gin.HandlerFunc{func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), actorID, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}}
	handlers = append(handlers, chain...)
	handlers = append(handlers, func(c *gin.Context) { c.Status(200) })
	r.GET("/x", handlers...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRequireAnyRole_AdminBypasses(t *testing.T) {
	if code := serveWithIdentity("u", RoleAdmin, RequireActor(), RequireAnyRole(RoleSupervisor)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireAnyRole_AllowsListedRole(t *testing.T) {
	if code := serveWithIdentity("u", RoleOperator, RequireAnyRole(RoleOperator, RoleSupervisor)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
	if code := serveWithIdentity("u", RoleOperator, RequireAnyRole(RoleSupervisor)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireAnyRole_HiddenRoleDeniedUnlessAllowed(t *testing.T) {
	if code := serveWithIdentity("svc", RoleService, RequireAnyRole(RoleOperator)); code != 403 {
		t.Fatalf("expected 403, got %d", code)
	}
	if code := serveWithIdentity("svc", RoleService, RequireAnyRole(RoleOperator, RoleService)); code != 200 {
		t.Fatalf("expected 200, got %d", code)
	}
}

func TestRequireActor(t *testing.T) {
	if code := serveWithIdentity("", RoleOperator, RequireActor(), RequireAnyRole(RoleOperator)); code != 401 {
		t.Fatalf("expected 401, got %d", code)
	}
}
