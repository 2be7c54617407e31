package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// userIDKey holds the authenticated user's id in the gin context.
const userIDKey = "userId"

// requireUser rejects requests without a valid bearer token.
func (h *Handler) requireUser(c *gin.Context) {
	token, msg := bearerToken(c.GetHeader("Authorization"))
	if msg != "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
		return
	}
	id, err := h.services.ParseToken(token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
		return
	}
	c.Set(userIDKey, id)
	c.Next()
}

// bearerToken extracts the token from an Authorization header. The second
// result is the client-facing reason when the header is unusable.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing Authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", "invalid Authorization header format"
	}
	return token, ""
}

// userID returns the id set by requireUser, or 0 outside an authenticated route.
func userID(c *gin.Context) int {
	return c.GetInt(userIDKey)
}
