package httpkit

import (
	"crypto/subtle"
	"strings"

	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	// AdminTokenHeader carries the shared ingestion secret.
	AdminTokenHeader = "X-Admin-Token"
	// RoleAdmin is the JWT role that grants the same capability as the shared secret.
	RoleAdmin = "admin"

	// ContextPrincipalKey is the gin context key naming who passed the admin check.
	ContextPrincipalKey = "principal"

	principalToken = "admin-token"
)

// AdminGuardConfig combines the secrets the guard accepts.
type AdminGuardConfig interface {
	config.AdminConfig
	config.JWTConfig
}

// AdminGuard is the single place that decides whether a request may write leads
// or manage sources. A request passes when it presents one of the configured
// admin tokens in X-Admin-Token, or a valid operator JWT carrying the admin role.
type AdminGuard struct {
	cfg AdminGuardConfig
	log *logger.Logger
}

// NewAdminGuard creates the capability check.
func NewAdminGuard(cfg AdminGuardConfig, log *logger.Logger) *AdminGuard {
	return &AdminGuard{cfg: cfg, log: log}
}

// Configured reports whether any credential could ever pass the guard.
func (g *AdminGuard) Configured() bool {
	return g.cfg.IsAdminAuthConfigured()
}

// Allow evaluates the capability without touching the response.
// It returns the principal that was recognised.
func (g *AdminGuard) Allow(c *gin.Context) (string, bool) {
	if presented := strings.TrimSpace(c.GetHeader(AdminTokenHeader)); presented != "" {
		if g.matchesToken(presented) {
			return principalToken, true
		}
		return "", false
	}

	rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
	if !ok {
		return "", false
	}
	userID, roles, err := authenticateBearer(rawToken, g.cfg)
	if err != nil {
		return "", false
	}
	for _, role := range roles {
		if role == RoleAdmin {
			c.Set(ContextUserIDKey, userID)
			c.Set(ContextRolesKey, roles)
			return userID.String(), true
		}
	}
	return "", false
}

// Require returns middleware enforcing the capability.
func (g *AdminGuard) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := g.Allow(c)
		if !ok {
			if g.log != nil {
				g.log.AuthEvent("admin_check", c.ClientIP(), false, c.Request.URL.Path)
			}
			abortUnauthorized(c, "unauthorized")
			return
		}
		c.Set(ContextPrincipalKey, principal)
		c.Next()
	}
}

// matchesToken compares against every configured token in constant time.
func (g *AdminGuard) matchesToken(presented string) bool {
	matched := 0
	for _, token := range g.cfg.GetAdminTokens() {
		if token == "" {
			continue
		}
		matched |= subtle.ConstantTimeCompare([]byte(presented), []byte(token))
	}
	return matched == 1
}

// Principal returns who passed the admin check for this request, if anyone.
func Principal(c *gin.Context) string {
	value, _ := c.Get(ContextPrincipalKey)
	principal, _ := value.(string)
	return principal
}
