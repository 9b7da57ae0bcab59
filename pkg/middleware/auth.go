package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	claimsKey = "claims"
	ownerKey  = "owner"
)

// Token is a verified bearer token that can expose its claims.
type Token interface {
	Claims(v interface{}) error
}

// Verifier validates raw bearer tokens.
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// AuthMiddleware verifies an optional Bearer token. A valid token sets the
// caller identity from its "sub" claim; an invalid one aborts with 401.
// Requests without an Authorization header pass through anonymously so that
// read routes stay public; RequireOwner guards the mutating ones.
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.Next()
			return
		}
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		tok, err := ver.Verify(c.Request.Context(), strings.TrimSpace(raw))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "details": err.Error()})
			return
		}
		var claims map[string]interface{}
		if err := tok.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set(claimsKey, claims)
		if sub, _ := claims["sub"].(string); sub != "" {
			c.Set(ownerKey, sub)
		}
		c.Next()
	}
}

// HeaderIdentity trusts an identity header set by an upstream gateway. It is
// used when no OIDC issuer is configured.
func HeaderIdentity(header string) gin.HandlerFunc {
	if header == "" {
		header = "X-User-ID"
	}
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(header)); id != "" {
			c.Set(ownerKey, id)
		}
		c.Next()
	}
}

// RequireOwner rejects requests that carry no caller identity.
func RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if OwnerFromContext(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Next()
	}
}

// OwnerFromContext returns the caller identity, or "" for anonymous requests.
func OwnerFromContext(c *gin.Context) string {
	return c.GetString(ownerKey)
}
