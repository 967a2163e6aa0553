package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	jwt "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/jwt"
	rbac "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.ApiService/implementation/rbac"
	api_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/api"
	auth_models "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Models/auth"
	interfaces "gitlab.com/maplesense1/flood.alert_server/src/production/FLD.Repository/Interfaces"
)

type stubUsers map[string]*auth_models.User

func (s stubUsers) GetByID(_ context.Context, id string) (*auth_models.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, interfaces.ErrNotFound
}

func setup(users UserLookup) (*gin.Engine, *jwt.Service) {
	gin.SetMode(gin.TestMode)
	jwtService := jwt.NewService(api_models.TokenConfig{SecretKey: "secret", AccessTokenDuration: time.Hour, Issuer: "flood-api"})
	m := NewAuthMiddleware(jwtService, rbac.NewService(), users, DefaultConfig())

	r := gin.New()
	ok := func(c *gin.Context) {
		id, _ := GetUserFromGinContext(c)
		c.String(http.StatusOK, id)
	}
	r.GET("/any", m.Authenticate(), ok)
	r.GET("/admin", m.Authenticate(), m.RequirePermission(rbac.PermManageUsers), ok)
	r.GET("/both", m.Authenticate(), m.RequirePermission(rbac.PermReadTelemetry), ok)
	return r, jwtService
}

func call(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestMissingAndInvalidToken(t *testing.T) {
	r, _ := setup(nil)

	if w := call(r, "/any", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := call(r, "/any", "garbage"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestPermissionChecks(t *testing.T) {
	r, jwtService := setup(nil)
	user, _ := jwtService.GenerateToken("u1", "user")
	admin, _ := jwtService.GenerateToken("a1", "admin")

	if w := call(r, "/admin", user.AccessToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for user on admin route, got %d", w.Code)
	}
	if w := call(r, "/admin", admin.AccessToken); w.Code != http.StatusOK || w.Body.String() != "a1" {
		t.Fatalf("expected 200 for admin, got %d %s", w.Code, w.Body.String())
	}
	if w := call(r, "/both", user.AccessToken); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for user on shared route, got %d", w.Code)
	}

	stranger, _ := jwtService.GenerateToken("g1", "guest")
	if w := call(r, "/both", stranger.AccessToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for unknown role, got %d", w.Code)
	}
}

func TestStoredRoleWins(t *testing.T) {
	users := stubUsers{"u1": {Username: "demoted", Role: "user"}}
	r, jwtService := setup(users)

	// token still claims admin but the account was demoted
	stale, _ := jwtService.GenerateToken("u1", "admin")
	if w := call(r, "/admin", stale.AccessToken); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 after demotion, got %d", w.Code)
	}

	gone, _ := jwtService.GenerateToken("deleted", "admin")
	if w := call(r, "/any", gone.AccessToken); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for deleted account, got %d", w.Code)
	}
}
