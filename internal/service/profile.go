package service

import (
	"context" // Request scoping
	"errors"  // Error matching

	"eco_donate/internal/domain" // Domain models and errors

	"gorm.io/gorm" // GORM for database interactions
)

// Profile is what a signed-in user sees about themselves
type Profile struct {
	User    *domain.User    `json:"user"`
	Wallet  *domain.Wallet  `json:"wallet"`
	Contact *domain.Contact `json:"contact,omitempty"` // Latest snapshot, nil before the first donation
}

// ProfileService assembles profiles
type ProfileService struct {
	db     *gorm.DB
	ledger *Ledger
}

// NewProfileService creates a profile reader
func NewProfileService(db *gorm.DB, ledger *Ledger) *ProfileService {
	return &ProfileService{db: db, ledger: ledger}
}

// Profile returns the user, the wallet and the latest contact snapshot
func (s *ProfileService) Profile(ctx context.Context, userID uint) (*Profile, error) {
	db := s.db.WithContext(ctx)
	var user domain.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NotFound("user")
		}
		return nil, domain.TransactionFailure("failed to load user", err)
	}

	wallet, err := s.ledger.GetBalance(ctx, userID) // Creates the wallet on first access
	if err != nil {
		return nil, err
	}

	out := &Profile{User: &user, Wallet: wallet}
	var contact domain.Contact
	err = db.Where("user_id = ?", userID).Order("id DESC").First(&contact).Error
	switch {
	case err == nil:
		out.Contact = &contact
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, domain.TransactionFailure("failed to load contact", err)
	}
	return out, nil
}
