package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"eco_donate/internal/session" // Revoked token lookup
	"eco_donate/internal/utils"   // JWT utility functions

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// Context keys set by JWTAuthMiddleware
const (
	UserIDKey = "userID" // uint user ID
	ClaimsKey = "claims" // *utils.Claims of the request token
)

// JWTAuthMiddleware validates JWT tokens, rejects signed-out tokens and extracts user information
func JWTAuthMiddleware(secret string, sessions *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth_error", "message": "Missing or invalid Authorization header"})
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ") // Extract the token string
		claims, err := utils.ParseJWT(tokenStr, secret)       // Parse the JWT token
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth_error", "message": "Invalid or expired token"})
			return
		}
		// Tokens signed out before expiry are refused
		revoked, err := sessions.IsRevoked(c.Request.Context(), claims.ID)
		if err != nil {
			logrus.WithField("error", err.Error()).Error("Revocation lookup failed")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "transaction_failure", "message": "Could not validate session"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "auth_error", "message": "Session has been signed out"})
			return
		}
		c.Set(UserIDKey, claims.UserID) // Store userID in context
		c.Set(ClaimsKey, claims)        // Store claims for sign-out
		c.Next()                        // Proceed to the next handler
	}
}
