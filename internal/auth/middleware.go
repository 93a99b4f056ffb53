package auth

import (
	"context"
	"net/http"
	"strings"

	"givebox/backend/internal/apperr"

	"github.com/gin-gonic/gin"
)

type contextKey string

const userIDContextKey contextKey = "user_id"

// Verifier resolves a bearer token to a user ID.
type Verifier interface {
	Verify(token string) (string, error)
}

// RequireUser aborts with 401 unless the request carries a valid bearer
// token. The websocket route may pass the token as ?access_token= since
// browsers cannot set headers on the upgrade.
func RequireUser(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := v.Verify(BearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.PublicMessage(err)})
			return
		}
		c.Request = c.Request.WithContext(WithUserID(c.Request.Context(), userID))
		c.Next()
	}
}

// BearerToken extracts the token from the Authorization header, falling back
// to the access_token query parameter.
func BearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return c.Query("access_token")
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// UserID returns the authenticated caller, or "" outside RequireUser.
func UserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDContextKey).(string)
	return id
}
