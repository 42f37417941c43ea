package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// PrincipalResolver loads the current role of a member so role changes apply
// without waiting for tokens to expire.
type PrincipalResolver interface {
	Principal(ctx context.Context, memberID uint) (Principal, error)
}

// Authenticate enforces bearer access tokens signed with HS256 and stores the
// resolved Principal on the gin context.
func Authenticate(cfg Config, resolver PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" || !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		tokenStr := strings.TrimSpace(authz[len("bearer "):])
		claims, err := Parse(tokenStr, cfg, AccessToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}
		id, err := claims.MemberID()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}

		p := Principal{MemberID: id, Role: claims.Role}
		if resolver != nil {
			p, err = resolver.Principal(c.Request.Context(), id)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "User not found"})
				return
			}
		}
		c.Set(principalKey, p)
		c.Next()
	}
}

// RequireRole rejects principals that hold none of the roles. It must run
// after Authenticate.
func RequireRole(roles ...Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Authentication credentials were not provided."})
			return
		}
		for _, r := range roles {
			if p.Is(r) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
	}
}

// PrincipalFrom returns the principal stored by Authenticate.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}
