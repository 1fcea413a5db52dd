package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/respond"
)

const userIDKey = "userId"

type ctxKey struct{}

// TokenVerifier resolves a bearer token to the account it was issued for.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Auth rejects requests without a verifiable bearer token and stores the account id in context.
// Every failure produces the same response so callers cannot tell which check failed.
func Auth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok || verifier == nil {
			unauthorized(c)
			return
		}
		accountID, err := verifier.Verify(token)
		if err != nil || accountID == "" {
			unauthorized(c)
			return
		}

		c.Set(userIDKey, accountID)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), ctxKey{}, accountID))
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func unauthorized(c *gin.Context) {
	respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
}

// UserIDFromContext fetches the account id set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserIDFromRequest fetches the account id from a request context.
func UserIDFromRequest(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
