package service

import (
	"context"      // Request scoping
	"errors"       // Error matching
	"fmt"          // Messages and cache keys
	"math"         // Amount checks
	"strings"      // Blank checks
	"time"         // Event timestamps
	"unicode/utf8" // Text lengths in characters

	"eco_donate/internal/domain" // Domain models and errors
	"eco_donate/internal/utils"  // Cache helpers

	"github.com/shopspring/decimal" // Rounding to cents
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"gorm.io/gorm"                  // GORM for database interactions
)

// DonationRequest is the donation form: the gift plus a contact snapshot
type DonationRequest struct {
	Amount       float64 `json:"amount"`
	Species      string  `json:"tree_species"`
	Region       string  `json:"region_to_plant"`
	Description  string  `json:"description"`
	GetCertified bool    `json:"get_certified"`
	FullName     string  `json:"full_name"`
	Address      string  `json:"address"`
	Country      string  `json:"country"`
	AboutMe      string  `json:"about_me"`
}

// Receipt is everything written by one donation
type Receipt struct {
	Donation domain.Donation `json:"donation"`
	Contact  domain.Contact  `json:"contact"`
	Payment  domain.Payment  `json:"payment"`
	Wallet   domain.Wallet   `json:"wallet"` // Donor wallet after the debit
}

// HistoryPage is one page of a user's donations and contact snapshots
type HistoryPage struct {
	Donations  []domain.Donation `json:"donations"`
	Contacts   []domain.Contact  `json:"contacts"`
	Page       int               `json:"page"`
	PageSize   int               `json:"page_size"`
	Total      int64             `json:"total"`
	TotalPages int               `json:"total_pages"`
}

// DonationEvent is the public announcement of a donation
type DonationEvent struct {
	DonationID    uint      `json:"donation_id"`
	Amount        float64   `json:"amount"`
	TreeSpecies   string    `json:"tree_species"`
	NumberOfTrees int       `json:"number_of_trees"`
	RegionToPlant string    `json:"region_to_plant"`
	Timestamp     time.Time `json:"timestamp"`
}

// Publisher receives events after a donation commits
type Publisher interface {
	Publish(eventType string, data any)
}

// DonationService runs the donation transaction and serves donation history
type DonationService struct {
	db               *gorm.DB
	ledger           *Ledger
	policy           Policy
	platformWalletID string
	feed             Publisher

	onDonorLocked func(w *domain.Wallet) // When set, sees the donor between the locked read and the debit
}

// NewDonationService wires the donation flow. feed may be nil.
func NewDonationService(db *gorm.DB, ledger *Ledger, policy Policy, platformWalletID string, feed Publisher) *DonationService {
	return &DonationService{
		db:               db,
		ledger:           ledger,
		policy:           policy,
		platformWalletID: platformWalletID,
		feed:             feed,
	}
}

// Validate checks a donation form without touching storage
func (s *DonationService) Validate(req DonationRequest) error {
	if utf8.RuneCountInString(req.Description) < s.policy.MinTextLength || utf8.RuneCountInString(req.AboutMe) < s.policy.MinTextLength {
		return domain.Validation(fmt.Sprintf("description and about me should be at least %d characters long", s.policy.MinTextLength))
	}
	for _, v := range []string{req.FullName, req.Address, req.Country, req.Description, req.AboutMe} {
		if strings.TrimSpace(v) == "" {
			return domain.Validation("kindly fill all fields")
		}
	}
	for _, v := range []string{req.FullName, req.Address, req.Country, req.Description, req.AboutMe} {
		if isAllUpper(v) {
			return domain.Validation("the donation form must not be filled in upper case")
		}
	}
	if strings.TrimSpace(req.Species) == "" || strings.TrimSpace(req.Region) == "" {
		return domain.Validation("tree species and region are required")
	}
	if !(req.Amount > 0) || math.IsInf(req.Amount, 0) { // NaN fails the comparison
		return domain.Validation("amount must be greater than zero")
	}
	if req.Amount > domain.MaxBalance {
		return domain.ErrBalanceLimit
	}
	if tooLong(req.FullName, 100) || tooLong(req.Address, 150) || tooLong(req.Country, 50) ||
		tooLong(req.Species, 100) || tooLong(req.Region, 100) ||
		tooLong(req.Description, 255) || tooLong(req.AboutMe, 255) {
		return domain.Validation("one of the fields is too long")
	}
	return nil
}

// SubmitDonation debits the donor, credits the platform wallet and records
// the donation, its payment and a contact snapshot. All of it commits
// together or none of it does.
func (s *DonationService) SubmitDonation(ctx context.Context, userID uint, req DonationRequest) (*Receipt, error) {
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return nil, domain.Validation("amount must be greater than zero")
	}
	req.Amount = decimal.NewFromFloat(req.Amount).Round(2).InexactFloat64() // Whole cents only
	if err := s.Validate(req); err != nil {
		return nil, err
	}
	if s.platformWalletID == "" {
		return nil, domain.TransactionFailure("platform wallet is not configured", nil)
	}

	var receipt Receipt
	var platformOwner uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Donor first, platform second: every donation locks in the same order
		var donor domain.Wallet
		if err := lockWallet(tx, &donor, "user_id = ?", userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("wallet")
			}
			return err
		}
		if s.onDonorLocked != nil {
			s.onDonorLocked(&donor)
		}
		if err := donor.Debit(req.Amount); err != nil { // Insufficient funds aborts here
			return err
		}
		if err := persistBalance(tx, &donor); err != nil { // Save donor wallet
			return err
		}

		var platform domain.Wallet
		if err := lockWallet(tx, &platform, "id = ?", s.platformWalletID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.NotFound("platform wallet")
			}
			return err
		}
		if err := platform.Credit(req.Amount); err != nil {
			return domain.TransactionFailure("platform wallet cannot accept this donation", err)
		}
		if err := persistBalance(tx, &platform); err != nil {
			return err
		}

		contact := domain.Contact{
			UserID:   userID,
			FullName: req.FullName,
			Address:  req.Address,
			Country:  req.Country,
			AboutMe:  req.AboutMe,
		}
		if err := tx.Create(&contact).Error; err != nil { // Snapshot of the donor's details
			return err
		}

		donation := domain.Donation{
			UserID:        userID,
			Amount:        req.Amount,
			TreeSpecies:   req.Species,
			NumberOfTrees: int(math.Floor(req.Amount)), // One tree per currency unit
			RegionToPlant: req.Region,
			Description:   req.Description,
			GetCertified:  req.GetCertified,
		}
		if err := tx.Create(&donation).Error; err != nil {
			return err
		}

		payment := domain.Payment{
			WalletID:   platform.ID,
			DonationID: donation.ID,
			Amount:     req.Amount,
		}
		if err := tx.Create(&payment).Error; err != nil { // Links the donation to the credited wallet
			return err
		}

		receipt = Receipt{Donation: donation, Contact: contact, Payment: payment, Wallet: donor}
		receipt.Donation.Payment = &payment
		platformOwner = platform.UserID
		return nil
	})
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			if de.Code == domain.CodeInsufficientFunds {
				logrus.WithFields(logrus.Fields{
					"user_id": userID,
					"amount":  req.Amount,
				}).Warn("Donation refused: insufficient funds")
			}
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"amount":  req.Amount,
			"error":   err.Error(),
		}).Error("Donation transaction failed")
		return nil, domain.TransactionFailure("donation could not be completed", err)
	}

	s.ledger.invalidate(ctx, userID, platformOwner) // Both balances changed
	logrus.WithFields(logrus.Fields{
		"user_id":         userID,
		"donation_id":     receipt.Donation.ID,
		"payment_id":      receipt.Payment.ID,
		"amount":          req.Amount,
		"donor_wallet":    receipt.Wallet.ID,
		"platform_wallet": s.platformWalletID,
		"type":            "donation",
		"timestamp":       time.Now().Format(time.RFC3339),
	}).Info("Donation completed")

	if s.feed != nil { // Announce only after commit
		s.feed.Publish("new_donation", DonationEvent{
			DonationID:    receipt.Donation.ID,
			Amount:        receipt.Donation.Amount,
			TreeSpecies:   receipt.Donation.TreeSpecies,
			NumberOfTrees: receipt.Donation.NumberOfTrees,
			RegionToPlant: receipt.Donation.RegionToPlant,
			Timestamp:     receipt.Donation.CreatedAt,
		})
	}
	return &receipt, nil
}

// History returns the user's donations and contact snapshots, newest first
func (s *DonationService) History(ctx context.Context, userID uint, page, pageSize int) (*HistoryPage, error) {
	page, pageSize = normalizePage(page, pageSize)
	key := fmt.Sprintf("%s:page:%d:size:%d", utils.HistoryCachePrefix(userID), page, pageSize)

	var cached HistoryPage
	if found, err := utils.GetCache(ctx, s.ledger.rdb, key, &cached); err == nil && found { // Check cache first
		return &cached, nil
	}

	db := s.db.WithContext(ctx)
	var user domain.User
	if err := db.Select("id").First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("user")
		}
		return nil, domain.TransactionFailure("failed to load user", err)
	}

	result := HistoryPage{Page: page, PageSize: pageSize, Donations: []domain.Donation{}, Contacts: []domain.Contact{}}
	offset := (page - 1) * pageSize
	if err := db.Model(&domain.Donation{}).Where("user_id = ?", userID).Count(&result.Total).Error; err != nil {
		return nil, domain.TransactionFailure("failed to count donations", err)
	}
	if err := db.Preload("Payment").Where("user_id = ?", userID).
		Order("id DESC").Offset(offset).Limit(pageSize).
		Find(&result.Donations).Error; err != nil {
		return nil, domain.TransactionFailure("failed to load donations", err)
	}
	if err := db.Where("user_id = ?", userID).
		Order("id DESC").Offset(offset).Limit(pageSize).
		Find(&result.Contacts).Error; err != nil {
		return nil, domain.TransactionFailure("failed to load contacts", err)
	}
	result.TotalPages = totalPages(result.Total, pageSize)

	_ = utils.SetCache(ctx, s.ledger.rdb, key, result, s.ledger.cacheTTL) // Cache the page
	return &result, nil
}
