// Package middleware implements the HTTP gates for the internal
// optimization API, generalized from a bearer-JWT auth/role middleware
// shape (header extraction, gin.H JSON error body, c.Abort() on
// failure) to constant-time shared-secret comparison plus owner-header
// extraction.
package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	SharedSecretHeader = "x-opt-shared-secret"
	OwnerHeaderName    = "x-owner-id"

	// OwnerIDContextKey is where OwnerHeader stores the resolved
	// owner id for downstream handlers.
	OwnerIDContextKey = "ownerId"
)

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"detail": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

// SharedSecret gates every request behind a constant-time comparison
// against the configured secret. A no-op when secret is empty
// (OPTIMIZATION_ORCHESTRATOR_SECRET unset disables the gate).
func SharedSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		provided := c.GetHeader(SharedSecretHeader)
		if subtle.ConstantTimeCompare([]byte(provided), []byte(secret)) != 1 {
			abortWithError(c, http.StatusForbidden, "E.FORBIDDEN", "shared secret missing or invalid")
			return
		}
		c.Next()
	}
}

// OwnerHeader requires x-owner-id on every request and stashes it in
// the gin context for handlers to compare against a stored job's
// owner. A missing header is a malformed request (E.PARAM_INVALID);
// a mismatch against a specific job is checked by the orchestrator
// core, which has the stored owner, and reported as E.FORBIDDEN.
func OwnerHeader() gin.HandlerFunc {
	return func(c *gin.Context) {
		ownerID := c.GetHeader(OwnerHeaderName)
		if ownerID == "" {
			abortWithError(c, http.StatusBadRequest, "E.PARAM_INVALID", "x-owner-id header is required")
			return
		}
		c.Set(OwnerIDContextKey, ownerID)
		c.Next()
	}
}

// OwnerID reads the owner id OwnerHeader stored on the context.
func OwnerID(c *gin.Context) string {
	v, _ := c.Get(OwnerIDContextKey)
	s, _ := v.(string)
	return s
}
