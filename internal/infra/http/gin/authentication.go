package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"
)

const principalContextKey = "stayride.principal"

// principal is the identity resolved by the platform's edge proxy, which
// authenticates users upstream and forwards the verified identity headers.
type principal struct {
	ID    string
	Email string
	Name  string
	Roles []string
}

func (p principal) HasRole(role string) bool {
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.ToLower(r) == role {
			return true
		}
	}
	return false
}

// IdentityMiddleware trusts the X-User-* headers set by the edge proxy.
// Requests without an identity pass through anonymously; handlers that need
// a principal reject them.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if id == "" {
			c.Next()
			return
		}
		p := principal{
			ID:    id,
			Email: strings.TrimSpace(c.GetHeader("X-User-Email")),
			Name:  strings.TrimSpace(c.GetHeader("X-User-Name")),
		}
		if roles := c.GetHeader("X-User-Roles"); roles != "" {
			for _, role := range strings.Split(roles, ",") {
				if role = strings.TrimSpace(role); role != "" {
					p.Roles = append(p.Roles, role)
				}
			}
		}
		setPrincipal(c, p)
		c.Next()
	}
}

func setPrincipal(c *gin.Context, p principal) {
	c.Set(principalContextKey, p)
}

func currentPrincipal(c *gin.Context) (principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return principal{}, false
	}
	p, ok := val.(principal)
	return p, ok
}

func requireRole(c *gin.Context, role string) (principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "auth required"})
		return principal{}, false
	}
	if role != "" && !p.HasRole(role) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		return principal{}, false
	}
	return p, true
}
