package api

import (
	"context"  // Request context passed to the store
	"net/http" // HTTP status codes

	"eco_donate/internal/domain"  // Domain models
	"eco_donate/internal/service" // Admin record store

	"github.com/gin-gonic/gin" // Gin web framework
)

// BalanceRequest adds funds to a wallet. The amount is text so that
// malformed input can be reported as a validation error.
type BalanceRequest struct {
	CurrentBalance string `json:"current_balance" binding:"required"` // Amount to add
}

// listHandler serves GET /v1/<resource>
func listHandler[T any](fn func(ctx context.Context, page, pageSize int) (*service.ListResult[T], error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, pageSize := pageParams(c)
		res, err := fn(c.Request.Context(), page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// getHandler serves GET /v1/<resource>/:id
func getHandler[T any](fn func(ctx context.Context, id uint) (*T, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		v, err := fn(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// createHandler serves POST /v1/<resource>
func createHandler[In, Out any](fn func(ctx context.Context, in In) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in In
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c)
			return
		}
		v, err := fn(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	}
}

// updateHandler serves PATCH /v1/<resource>/:id
func updateHandler[P, Out any](fn func(ctx context.Context, id uint, patch P) (*Out, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var patch P
		if err := c.ShouldBindJSON(&patch); err != nil {
			badRequest(c)
			return
		}
		v, err := fn(c.Request.Context(), id, patch)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// deleteHandler serves DELETE /v1/<resource>/:id
func deleteHandler(fn func(ctx context.Context, id uint) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := fn(c.Request.Context(), id); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// AddBalanceHandler adds funds to the wallet of the user in the path
func AddBalanceHandler(ledger *service.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		var req BalanceRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		wallet, err := ledger.AddToBalance(c.Request.Context(), id, req.CurrentBalance)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, wallet)
	}
}

// registerAdminRoutes mounts the record store under g
func registerAdminRoutes(g *gin.RouterGroup, res *service.Resources, ledger *service.Ledger) {
	users := g.Group("/users")
	users.GET("", listHandler[domain.User](res.ListUsers))                 // List users
	users.POST("", createHandler[service.CreateUserInput](res.CreateUser)) // Create user
	users.GET("/:id", getHandler[domain.User](res.GetUser))                // Get user
	users.PATCH("/:id", updateHandler[service.UserPatch](res.UpdateUser))  // Update user
	users.DELETE("/:id", deleteHandler(res.DeleteUser))                    // Delete user and everything it owns

	wallets := g.Group("/wallets")
	wallets.GET("", listHandler[domain.Wallet](res.ListWallets))  // List wallets
	wallets.GET("/:id", getHandler[domain.Wallet](res.GetWallet)) // Wallet by user ID
	wallets.PUT("/:id", AddBalanceHandler(ledger))                // Add funds by user ID
	wallets.DELETE("/:id", deleteHandler(res.DeleteWallet))       // Delete wallet by user ID

	contacts := g.Group("/contacts")
	contacts.GET("", listHandler[domain.Contact](res.ListContacts))                // List contacts
	contacts.POST("", createHandler[service.ContactInput](res.CreateContact))      // Create contact
	contacts.GET("/:id", getHandler[domain.Contact](res.GetContact))               // Get contact
	contacts.PATCH("/:id", updateHandler[service.ContactPatch](res.UpdateContact)) // Update contact
	contacts.DELETE("/:id", deleteHandler(res.DeleteContact))                      // Delete contact

	donations := g.Group("/donations")
	donations.GET("", listHandler[domain.Donation](res.ListDonations))                // List donations
	donations.POST("", createHandler[service.DonationInput](res.CreateDonation))      // Record donation
	donations.GET("/:id", getHandler[domain.Donation](res.GetDonation))               // Get donation
	donations.PATCH("/:id", updateHandler[service.DonationPatch](res.UpdateDonation)) // Update donation
	donations.DELETE("/:id", deleteHandler(res.DeleteDonation))                       // Delete donation and payment

	g.GET("/payments", listHandler[domain.Payment](res.ListPayments)) // List payments
}
