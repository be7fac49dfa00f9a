package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion

	"eco_donate/internal/domain"     // Error codes
	"eco_donate/internal/middleware" // Context keys

	"github.com/gin-gonic/gin" // Gin web framework
)

// statusOf maps an error code to its HTTP status
func statusOf(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation, domain.CodeInvalidCode, domain.CodeInsufficientFunds:
		return http.StatusBadRequest
	case domain.CodeAuth:
		return http.StatusUnauthorized
	case domain.CodeNotVerified:
		return http.StatusForbidden
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeDelivery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": code, "message": text}
func respondError(c *gin.Context, err error) {
	code := domain.CodeOf(err)
	c.JSON(statusOf(code), gin.H{"error": code, "message": domain.MessageOf(err)})
}

// badRequest reports a body that could not be bound
func badRequest(c *gin.Context) {
	c.JSON(http.StatusBadRequest, gin.H{"error": domain.CodeValidation, "message": "Invalid request"})
}

// currentUserID reads the user set by JWTAuthMiddleware
func currentUserID(c *gin.Context) (uint, bool) {
	v, exists := c.Get(middleware.UserIDKey) // Set by JWTAuthMiddleware
	id, ok := v.(uint)                       // A wrong type counts as no user
	if !exists || !ok || id == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": domain.CodeAuth, "message": "Unauthorized"})
		return 0, false
	}
	return id, true
}

// pageParams reads page and page_size; the service applies defaults and limits
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	pageSize, _ := strconv.Atoi(c.Query("page_size"))
	return page, pageSize
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.CodeValidation, "message": "Invalid " + name})
		return 0, false
	}
	return uint(v), true
}
