package api

import (
	"errors"   // Delivery failure check
	"net/http" // HTTP status codes

	"eco_donate/internal/domain"  // Error codes
	"eco_donate/internal/service" // Donation and certificate flows

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// GetWalletHandler returns the user's wallet, creating it on first access
func GetWalletHandler(ledger *service.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		wallet, err := ledger.GetBalance(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, wallet)
	}
}

// ProfileHandler returns the user with wallet and latest contact
func ProfileHandler(profiles *service.ProfileService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		profile, err := profiles.Profile(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, profile)
	}
}

// DonateHandler runs a donation. When a certificate was requested it is
// mailed afterwards; a failed mail does not undo the donation.
func DonateHandler(donations *service.DonationService, certs *service.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		var req service.DonationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		receipt, err := donations.SubmitDonation(c.Request.Context(), userID, req)
		if err != nil {
			respondError(c, err)
			return
		}

		resp := gin.H{"message": "Thank you for your donation", "receipt": receipt}
		if req.GetCertified {
			cert, err := certs.Deliver(c.Request.Context(), userID, "")
			switch {
			case err == nil:
				resp["certificate"] = cert.Fields
			case errors.Is(err, domain.ErrDelivery):
				resp["certificate"] = cert.Fields
				resp["certificate_error"] = domain.MessageOf(err)
			default:
				logrus.WithFields(logrus.Fields{
					"user_id": userID,
					"error":   err.Error(),
				}).Error("Certificate after donation failed")
				resp["certificate_error"] = domain.MessageOf(err)
			}
		}
		c.JSON(http.StatusCreated, resp)
	}
}

// HistoryHandler returns the user's donations, newest first
func HistoryHandler(donations *service.DonationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		page, pageSize := pageParams(c)
		history, err := donations.History(c.Request.Context(), userID, page, pageSize)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

// CertificateHandler downloads the certificate of the latest donation
func CertificateHandler(certs *service.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		cert, err := certs.Issue(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", `attachment; filename="certificate.pdf"`)
		c.Data(http.StatusOK, "application/pdf", cert.PDF)
	}
}

// EmailCertificateHandler mails the certificate to the account address
func EmailCertificateHandler(certs *service.CertificateService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c)
		if !ok {
			return
		}
		cert, err := certs.Deliver(c.Request.Context(), userID, "")
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Certificate sent", "certificate": cert.Fields})
	}
}
