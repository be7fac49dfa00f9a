package service

import (
	"context" // Request scoping
	"errors"  // Error matching
	"math"    // NaN and infinity checks
	"strings" // Input trimming
	"time"    // Cache lifetime and timestamps

	"eco_donate/internal/domain" // Domain models and errors
	"eco_donate/internal/utils"  // Cache helpers

	"github.com/redis/go-redis/v9"  // Redis client
	"github.com/shopspring/decimal" // Exact parsing of amounts
	"github.com/sirupsen/logrus"    // Logrus for structured logging
	"gorm.io/gorm"                  // GORM for database interactions
	"gorm.io/gorm/clause"           // Row locks and upserts
)

var errConcurrentUpdate = &domain.Error{Code: domain.CodeTransaction, Message: "wallet was updated concurrently, please retry"}

// Ledger reads and mutates wallet balances
type Ledger struct {
	db       *gorm.DB
	rdb      *redis.Client
	cacheTTL time.Duration
}

// NewLedger creates a ledger; cacheTTL bounds how stale a cached balance read may be
func NewLedger(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration) *Ledger {
	return &Ledger{db: db, rdb: rdb, cacheTTL: cacheTTL}
}

// GetBalance returns the user's wallet, creating a zero wallet on first access
func (l *Ledger) GetBalance(ctx context.Context, userID uint) (*domain.Wallet, error) {
	key := utils.WalletCacheKey(userID) // Cache key for wallet
	var cached domain.Wallet
	if found, err := utils.GetCache(ctx, l.rdb, key, &cached); err == nil && found { // Check cache first
		return &cached, nil
	}

	var wallet *domain.Wallet
	var created bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.Select("id").First(&user, userID).Error; err != nil {
			return err
		}
		var err error
		wallet, created, err = ensureWallet(tx, userID)
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user")
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id": userID,
			"error":   err.Error(),
		}).Error("Failed to load wallet")
		return nil, domain.TransactionFailure("failed to load wallet", err)
	}
	if created {
		logrus.WithFields(logrus.Fields{
			"user_id":   userID,
			"wallet_id": wallet.ID,
			"type":      "create_wallet",
		}).Info("Wallet created on first access")
	}
	_ = utils.SetCache(ctx, l.rdb, key, wallet, l.cacheTTL) // Cache the wallet
	return wallet, nil
}

// AdjustBalance applies a signed delta to a wallet. The result may not go below zero.
func (l *Ledger) AdjustBalance(ctx context.Context, walletID string, delta float64) (*domain.Wallet, error) {
	if math.IsNaN(delta) || math.Abs(delta) > domain.MaxBalance { // Also catches ±Inf
		return nil, domain.ErrBalanceLimit
	}
	return l.mutate(ctx, "id = ?", walletID, func(w *domain.Wallet) error {
		if delta < 0 {
			return w.Debit(-delta)
		}
		return w.Credit(delta) // Refuses a sum above MaxBalance
	})
}

// AddToBalance adds a non-negative amount given as text to the user's wallet
func (l *Ledger) AddToBalance(ctx context.Context, userID uint, amount string) (*domain.Wallet, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, domain.Validation("input format is not valid, current_balance must be a number")
	}
	if d.IsNegative() {
		return nil, domain.Validation("current_balance must not be negative")
	}
	if d.GreaterThan(decimal.NewFromFloat(domain.MaxBalance)) { // Would not survive the float64 column
		return nil, domain.ErrBalanceLimit
	}
	return l.mutate(ctx, "user_id = ?", userID, func(w *domain.Wallet) error {
		return w.Credit(d.InexactFloat64())
	})
}

func (l *Ledger) mutate(ctx context.Context, query string, arg any, apply func(w *domain.Wallet) error) (*domain.Wallet, error) {
	var wallet domain.Wallet
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockWallet(tx, &wallet, query, arg); err != nil { // Lock the row
			return err
		}
		if err := apply(&wallet); err != nil { // Debit or credit in memory
			return err
		}
		return persistBalance(tx, &wallet) // Write back if unchanged underneath
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("wallet")
	}
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"wallet": arg,
			"error":  err.Error(),
		}).Error("Balance update failed")
		return nil, domain.TransactionFailure("balance update failed", err)
	}

	l.invalidate(ctx, wallet.UserID) // Invalidate cache after balance update
	logrus.WithFields(logrus.Fields{
		"user_id":          wallet.UserID,
		"wallet_id":        wallet.ID,
		"current_balance":  wallet.CurrentBalance,
		"previous_balance": wallet.PreviousBalance,
		"type":             "balance_update",
		"timestamp":        time.Now().Format(time.RFC3339),
	}).Info("Wallet balance updated")
	return &wallet, nil
}

// invalidate drops cached wallet and history reads for the given users
func (l *Ledger) invalidate(ctx context.Context, userIDs ...uint) {
	for _, id := range userIDs {
		if err := utils.DeleteCache(ctx, l.rdb, utils.WalletCacheKey(id)); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Warn("Failed to invalidate wallet cache")
		}
		if err := utils.DeleteCachePrefix(ctx, l.rdb, utils.HistoryCachePrefix(id)+":"); err != nil {
			logrus.WithFields(logrus.Fields{"user_id": id, "error": err.Error()}).Warn("Failed to invalidate history cache")
		}
	}
}

// ensureWallet returns the user's wallet, creating a zero wallet if missing
func ensureWallet(tx *gorm.DB, userID uint) (*domain.Wallet, bool, error) {
	var w domain.Wallet
	err := tx.Where("user_id = ?", userID).First(&w).Error
	if err == nil {
		return &w, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	fresh := domain.NewWallet(userID)
	// A concurrent creator wins the unique user_id index; read back whichever row exists
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
		return nil, false, err
	}
	if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
		return nil, false, err
	}
	return &w, w.ID == fresh.ID, nil
}

// lockWallet loads a wallet row and holds a write lock on it until the transaction ends
func lockWallet(tx *gorm.DB, dest *domain.Wallet, query string, args ...any) error {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where(query, args...).First(dest).Error
}

// persistBalance writes both balance columns of w. The update only applies
// while the stored balance still equals w.PreviousBalance, the value the
// caller read before its SetBalance.
func persistBalance(tx *gorm.DB, w *domain.Wallet) error {
	now := time.Now()
	res := tx.Model(&domain.Wallet{}).
		Where("id = ? AND current_balance = ?", w.ID, w.PreviousBalance).
		Updates(map[string]any{
			"current_balance":  w.CurrentBalance,
			"previous_balance": w.PreviousBalance,
			"updated_at":       now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return errConcurrentUpdate
	}
	w.UpdatedAt = now
	return nil
}
