package api

import (
	"net/http" // HTTP status codes

	"eco_donate/internal/feed"       // Live donation feed
	"eco_donate/internal/middleware" // Auth middleware
	"eco_donate/internal/service"    // Business flows
	"eco_donate/internal/session"    // Token revocation

	"github.com/gin-gonic/gin" // Gin web framework
	"gorm.io/gorm"             // GORM ORM library
)

// Deps are the services the HTTP layer calls into
type Deps struct {
	DB           *gorm.DB                    // Role lookups for admin routes
	JWTSecret    string                      // Token signing key
	Sessions     *session.Store              // Revoked tokens
	Accounts     *service.AccountService     // Registration and sign-in
	Ledger       *service.Ledger             // Wallet balances
	Donations    *service.DonationService    // Donation flow and history
	Certificates *service.CertificateService // Certificate issuer
	Profiles     *service.ProfileService     // Profile page
	Resources    *service.Resources          // Admin record store
	Feed         *feed.Hub                   // Optional websocket feed
}

// RegisterRoutes mounts every endpoint on r
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) }) // Liveness check

	auth := middleware.JWTAuthMiddleware(d.JWTSecret, d.Sessions)

	// Account routes
	account := r.Group("/auth")
	account.POST("/register", RegisterHandler(d.Accounts))              // Registration endpoint
	account.POST("/resend", ResendCodeHandler(d.Accounts))              // New confirmation code
	account.POST("/confirm", ConfirmHandler(d.Accounts))                // Email confirmation
	account.POST("/login", LoginHandler(d.Accounts))                    // Sign-in endpoint
	account.POST("/logout", auth, LogoutHandler(d.Accounts))            // Sign-out endpoint
	account.POST("/password/forgot", ForgotPasswordHandler(d.Accounts)) // Reset code request
	account.POST("/password/verify", VerifyResetHandler(d.Accounts))    // Reset code check
	account.POST("/password/reset", ResetPasswordHandler(d.Accounts))   // New password

	// User routes (protected by JWT)
	user := r.Group("")
	user.Use(auth)
	user.GET("/profile", ProfileHandler(d.Profiles))                         // Profile endpoint
	user.GET("/wallet", GetWalletHandler(d.Ledger))                          // Wallet endpoint
	user.POST("/donations", DonateHandler(d.Donations, d.Certificates))      // Donation endpoint
	user.GET("/donations", HistoryHandler(d.Donations))                      // Donation history endpoint
	user.GET("/certificate", CertificateHandler(d.Certificates))             // Certificate download
	user.POST("/certificate/email", EmailCertificateHandler(d.Certificates)) // Certificate by email

	// Admin API (protected, admin only)
	v1 := r.Group("/v1")
	v1.POST("/authenticate", AuthenticateHandler(d.Accounts)) // Admin API token
	admin := v1.Group("")
	admin.Use(auth, middleware.AdminOnlyMiddleware(d.DB))
	registerAdminRoutes(admin, d.Resources, d.Ledger)

	if d.Feed != nil {
		r.GET("/feed", d.Feed.ServeWS) // Public donation feed
	}
}
