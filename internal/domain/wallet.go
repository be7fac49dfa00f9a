package domain

import (
	"math"
	"time"

	"github.com/google/uuid"        // Wallet identifiers
	"github.com/shopspring/decimal" // Balance arithmetic
	"gorm.io/gorm"
)

// MaxBalance is the largest balance a wallet may hold
const MaxBalance = 1e12

// ErrBalanceLimit rejects a write that would leave a balance outside 0..MaxBalance
var ErrBalanceLimit = &Error{Code: CodeValidation, Message: "amount is outside the allowed wallet range"}

// Wallet Model
//
// CurrentBalance must only be written through SetBalance (or Credit/Debit),
// which captures the outgoing value into PreviousBalance first.
type Wallet struct {
	ID              string    `gorm:"type:char(36);primaryKey" json:"wallet_id"`                 // UUID primary key
	UserID          uint      `gorm:"uniqueIndex;not null" json:"user_id"`                       // Foreign key to User
	CurrentBalance  float64   `gorm:"not null;default:0" json:"current_balance"`                 // Balance now
	PreviousBalance float64   `gorm:"not null;default:0" json:"previous_balance"`                // Balance before the last write
	CreatedAt       time.Time `json:"created_at"`                                                // Creation time
	UpdatedAt       time.Time `json:"updated_at"`                                                // Last write
	Payments        []Payment `gorm:"foreignKey:WalletID;constraint:OnDelete:CASCADE;" json:"-"` // Payments credited here
}

// NewWallet returns a zero wallet for userID. The zero initialisation goes
// through SetBalance like every other write.
func NewWallet(userID uint) *Wallet {
	w := &Wallet{ID: uuid.NewString(), UserID: userID}
	_ = w.SetBalance(0) // Zero is always in range
	return w
}

// BeforeCreate fills the UUID when the caller did not
func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}

// SetBalance records the current value as previous, then stores v rounded to
// cents. Values outside 0..MaxBalance leave the wallet untouched.
func (w *Wallet) SetBalance(v float64) error {
	if !InRange(v) {
		return ErrBalanceLimit
	}
	w.PreviousBalance = w.CurrentBalance
	w.CurrentBalance = decimal.NewFromFloat(v).Round(2).InexactFloat64()
	return nil
}

// Credit adds amount to the balance
func (w *Wallet) Credit(amount float64) error {
	if !InRange(amount) {
		return ErrBalanceLimit
	}
	sum := decimal.NewFromFloat(w.CurrentBalance).Add(decimal.NewFromFloat(amount))
	if sum.GreaterThan(decimal.NewFromFloat(MaxBalance)) {
		return ErrBalanceLimit
	}
	return w.SetBalance(sum.InexactFloat64())
}

// Debit subtracts amount, refusing to go below zero
func (w *Wallet) Debit(amount float64) error {
	if !InRange(amount) {
		return ErrBalanceLimit
	}
	if !w.Covers(amount) {
		return ErrInsufficientFunds
	}
	return w.SetBalance(decimal.NewFromFloat(w.CurrentBalance).Sub(decimal.NewFromFloat(amount)).InexactFloat64())
}

// Covers reports whether the balance is at least amount
func (w *Wallet) Covers(amount float64) bool {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return false
	}
	return decimal.NewFromFloat(amount).LessThanOrEqual(decimal.NewFromFloat(w.CurrentBalance))
}

// InRange reports whether v is a finite amount between 0 and MaxBalance
func InRange(v float64) bool {
	return v >= 0 && v <= MaxBalance // NaN and ±Inf fail a bound
}
