package api

import (
	"net/http" // HTTP status codes

	"eco_donate/internal/middleware" // Context keys
	"eco_donate/internal/service"    // Account flows
	"eco_donate/internal/utils"      // JWT claims

	"github.com/gin-gonic/gin" // Gin web framework
)

// Request struct for login
type LoginRequest struct {
	Username string `json:"username" binding:"required"` // Username must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
	Remember bool   `json:"remember"`                    // Longer-lived token
}

// Request struct for code confirmation
type ConfirmRequest struct {
	Email string `json:"email" binding:"required"` // Address the code was sent to
	Code  string `json:"code" binding:"required"`  // One-time code
}

// Request struct for flows keyed by email only
type EmailRequest struct {
	Email string `json:"email" binding:"required"`
}

// Request struct for the final password reset step
type ResetPasswordRequest struct {
	ResetToken      string `json:"reset_token" binding:"required"` // Grant from the verify step
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// RegisterHandler creates an account and mails its confirmation code
func RegisterHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req service.RegisterInput
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		user, err := accounts.Register(c.Request.Context(), req)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Check your email for the verification code", "user": user})
	}
}

// ResendCodeHandler mails a fresh confirmation code
func ResendCodeHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		if err := accounts.ResendVerification(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
	}
}

// ConfirmHandler verifies the account email
func ConfirmHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		user, err := accounts.ConfirmRegistration(c.Request.Context(), req.Email, req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Account verified", "user": user})
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		sess, err := accounts.SignIn(c.Request.Context(), req.Username, req.Password, req.Remember)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, sess)
	}
}

// LogoutHandler revokes the token used for this request
func LogoutHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _ := c.MustGet(middleware.ClaimsKey).(*utils.Claims)
		if err := accounts.SignOut(c.Request.Context(), claims); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
	}
}

// ForgotPasswordHandler mails a password reset code
func ForgotPasswordHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req EmailRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		if err := accounts.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Check your email for the reset code"})
	}
}

// VerifyResetHandler exchanges a reset code for a reset token
func VerifyResetHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ConfirmRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		grant, err := accounts.VerifyResetCode(c.Request.Context(), req.Email, req.Code)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reset_token": grant})
	}
}

// ResetPasswordHandler sets a new password with a reset token
func ResetPasswordHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		if err := accounts.ChangePassword(c.Request.Context(), req.ResetToken, req.Password, req.ConfirmPassword); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Password changed"})
	}
}

// AuthenticateHandler is the token endpoint of the admin API
func AuthenticateHandler(accounts *service.AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		sess, err := accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": sess.Token, "expires_at": sess.ExpiresAt})
	}
}
