package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"permitleads_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type guardConfig struct {
	tokens []string
	secret string
}

func (g guardConfig) GetAdminTokens() []string    { return g.tokens }
func (g guardConfig) IsAdminAuthConfigured() bool { return len(g.tokens) > 0 || g.secret != "" }
func (g guardConfig) GetJWTAccessSecret() string  { return g.secret }

func newGuardEngine(cfg guardConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	guard := NewAdminGuard(cfg, logger.Discard())
	engine.POST("/ingest", guard.Require(), func(c *gin.Context) {
		c.String(http.StatusOK, Principal(c))
	})
	return engine
}

func signToken(t *testing.T, secret string, roles []string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   uuid.NewString(),
		"type":  "access",
		"roles": roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAdminGuardAcceptsAnyConfiguredToken(t *testing.T) {
	engine := newGuardEngine(guardConfig{tokens: []string{"primary", "rotated"}})

	for _, token := range []string{"primary", "rotated"} {
		req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
		req.Header.Set(AdminTokenHeader, token)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("token %q: expected 200, got %d", token, rec.Code)
		}
		if rec.Body.String() != principalToken {
			t.Fatalf("expected principal %q, got %q", principalToken, rec.Body.String())
		}
	}
}

func TestAdminGuardRejectsWrongOrMissingToken(t *testing.T) {
	engine := newGuardEngine(guardConfig{tokens: []string{"primary"}})

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set(AdminTokenHeader, "primary-but-longer")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/ingest", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without credentials, got %d", rec.Code)
	}
}

func TestAdminGuardRejectsEverythingWhenUnconfigured(t *testing.T) {
	engine := newGuardEngine(guardConfig{})

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set(AdminTokenHeader, "")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAdminGuardAcceptsAdminJWT(t *testing.T) {
	cfg := guardConfig{secret: "jwt-secret"}
	engine := newGuardEngine(cfg)

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.secret, []string{"operator", RoleAdmin}))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin JWT, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/ingest", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.secret, []string{"operator"}))
	rec = httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-admin JWT, got %d", rec.Code)
	}
}
