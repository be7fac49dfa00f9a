package service

import (
	"context" // Request scoping
	"errors"  // Error matching
	"fmt"     // Reference text
	"time"    // Issue date

	"eco_donate/internal/certificate" // PDF rendering
	"eco_donate/internal/domain"      // Domain models and errors
	"eco_donate/internal/mailer"      // Certificate delivery

	"github.com/shopspring/decimal" // Amount formatting
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"gorm.io/gorm"                  // GORM for database interactions
)

// Certificate is a rendered donation certificate
type Certificate struct {
	Fields     certificate.Fields `json:"fields"`
	DonationID uint               `json:"donation_id"`
	PDF        []byte             `json:"-"`
}

// CertificateService builds certificates from a user's latest donation
type CertificateService struct {
	db       *gorm.DB
	renderer certificate.Renderer
	mailer   mailer.Mailer
	now      func() time.Time
}

// NewCertificateService wires the certificate issuer
func NewCertificateService(db *gorm.DB, renderer certificate.Renderer, m mailer.Mailer) *CertificateService {
	return &CertificateService{db: db, renderer: renderer, mailer: m, now: time.Now}
}

// Issue renders a certificate from the user's latest contact and donation
func (s *CertificateService) Issue(ctx context.Context, userID uint) (*Certificate, error) {
	db := s.db.WithContext(ctx)

	var contact domain.Contact
	if err := db.Where("user_id = ?", userID).Order("id DESC").First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("contact")
		}
		return nil, domain.TransactionFailure("failed to load contact", err)
	}
	var donation domain.Donation
	if err := db.Where("user_id = ?", userID).Order("id DESC").First(&donation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("donation")
		}
		return nil, domain.TransactionFailure("failed to load donation", err)
	}

	fields := certificate.Fields{
		RecipientName: contact.FullName,
		Country:       contact.Country,
		Amount:        "$" + decimal.NewFromFloat(donation.Amount).StringFixed(2),
		Region:        "in " + donation.RegionToPlant,
		Date:          "Date: " + s.now().Format("January 02, 2006"),
		Reference:     fmt.Sprintf("eco-donate:certificate:%d", donation.ID),
	}
	pdf, err := s.renderer.Render(fields) // Render the PDF
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":     userID,
			"donation_id": donation.ID,
			"error":       err.Error(),
		}).Error("Certificate rendering failed")
		return nil, domain.TransactionFailure("failed to render certificate", err)
	}
	return &Certificate{Fields: fields, DonationID: donation.ID, PDF: pdf}, nil
}

// Deliver issues the certificate and mails it as a PDF attachment. If the
// mail fails the certificate is still returned alongside a delivery error.
// An empty email sends to the account address.
func (s *CertificateService) Deliver(ctx context.Context, userID uint, email string) (*Certificate, error) {
	if email == "" {
		var user domain.User
		if err := s.db.WithContext(ctx).Select("id", "email").First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.NotFound("user")
			}
			return nil, domain.TransactionFailure("failed to load user", err)
		}
		email = user.Email
	}

	cert, err := s.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = s.mailer.Send(ctx, mailer.Message{
		To:      email,
		Subject: "Certificate of Donation",
		Body:    "Thank you for your donation. Your certificate is attached.",
		Attachment: &mailer.Attachment{
			Filename:    "certificate.pdf",
			ContentType: "application/pdf",
			Data:        cert.PDF,
		},
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("Certificate delivery failed")
		return cert, domain.DeliveryFailure("certificate could not be emailed", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"donation_id": cert.DonationID,
	}).Info("Certificate delivered")
	return cert, nil
}
