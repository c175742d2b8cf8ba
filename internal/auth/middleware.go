package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"examflow/internal/user"
)

const (
	claimsKey  = "claims"
	profileKey = "profile"
)

// ProfileGetter resolves the profile behind a token subject.
type ProfileGetter interface {
	Get(ctx context.Context, uid string) (user.Profile, error)
}

// Bearer enforces HS256 access tokens and stores the claims on the context.
// Websocket upgrades may pass the token as the access_token query parameter.
func Bearer(issuer *Issuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		claims, err := issuer.Parse(tokenStr, KindAccess)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	authz := c.GetHeader("Authorization")
	if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		return strings.TrimSpace(authz[len("bearer "):])
	}
	if authz == "" && strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return c.Query("access_token")
	}
	return ""
}

// LoadProfile resolves the caller's profile from the store. The role is read
// from the profile, not trusted from the token.
func LoadProfile(profiles ProfileGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		p, err := profiles.Get(c.Request.Context(), claims.Subject)
		if errors.Is(err, user.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "profile not found"})
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile lookup failed"})
			return
		}
		c.Set(profileKey, p)
		c.Next()
	}
}

// RequireRole is the single role check; it must run after LoadProfile.
func RequireRole(role user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := ProfileFrom(c)
		if !ok || p.Role != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "you don't have permission to access this resource"})
			return
		}
		c.Next()
	}
}

// ClaimsFrom returns the claims stored by Bearer.
func ClaimsFrom(c *gin.Context) (Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return Claims{}, false
	}
	claims, ok := v.(Claims)
	return claims, ok
}

// ProfileFrom returns the profile stored by LoadProfile.
func ProfileFrom(c *gin.Context) (user.Profile, bool) {
	v, ok := c.Get(profileKey)
	if !ok {
		return user.Profile{}, false
	}
	p, ok := v.(user.Profile)
	return p, ok
}
