package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the operator behind a dashboard request.
// Requests authenticated with the shared admin token have no operator identity.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID        uuid.UUID
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID { return i.userID }

func (i *identity) Roles() []string { return i.roles }

func (i *identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }

func (i *identity) IsAuthenticated() bool { return i.authenticated }

// GetIdentity extracts the operator identity from a Gin context.
// Returns an unauthenticated identity if no JWT was presented.
func GetIdentity(c *gin.Context) Identity {
	userID, ok := c.Get(ContextUserIDKey)
	if !ok {
		return &identity{}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{}
	}

	var roleList []string
	if roles, ok := c.Get(ContextRolesKey); ok {
		roleList, _ = roles.([]string)
	}

	return &identity{userID: uid, roles: roleList, authenticated: true}
}

// MustGetIdentity aborts with 401 when no operator is authenticated.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}

// Actor names who performed a write: the operator ID when a JWT was used,
// otherwise the admin principal recorded by the guard.
func Actor(c *gin.Context) string {
	if id := GetIdentity(c); id.IsAuthenticated() {
		return id.UserID().String()
	}
	if p := Principal(c); p != "" {
		return p
	}
	return "anonymous"
}
