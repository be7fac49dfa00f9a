package service

import (
	"context"
	"math"
	"testing"

	"eco_donate/internal/domain"
	"eco_donate/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestGetBalanceCreatesWalletOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user := domain.User{Username: "ada", Email: "ada@example.com", Password: "x"}
	require.NoError(t, env.db.Create(&user).Error)

	w, err := env.ledger.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w.CurrentBalance)
	assert.Equal(t, 0.0, w.PreviousBalance)

	require.NoError(t, utils.DeleteCache(ctx, env.rdb, utils.WalletCacheKey(user.ID)))
	again, err := env.ledger.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, w.ID, again.ID)

	var count int64
	require.NoError(t, env.db.Model(&domain.Wallet{}).Where("user_id = ?", user.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = env.ledger.GetBalance(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAddToBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "")

	_, err := env.ledger.AddToBalance(ctx, user.ID, "ten")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.ledger.AddToBalance(ctx, user.ID, "-5")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.ledger.AddToBalance(ctx, 9999, "5")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	w, err := env.ledger.AddToBalance(ctx, user.ID, "10.50")
	require.NoError(t, err)
	assert.Equal(t, 10.5, w.CurrentBalance)
	assert.Equal(t, 0.0, w.PreviousBalance)

	w, err = env.ledger.AddToBalance(ctx, user.ID, " 5 ")
	require.NoError(t, err)
	assert.Equal(t, 15.5, w.CurrentBalance)
	assert.Equal(t, 10.5, w.PreviousBalance)

	stored := env.wallet(t, user.ID)
	assert.Equal(t, 15.5, stored.CurrentBalance)
	assert.Equal(t, 10.5, stored.PreviousBalance)
}

func TestAddToBalanceRejectsAmountsBeyondLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "")

	for _, amount := range []string{"1e400", "1e308", "1000000000000.01"} {
		assert.NotPanics(t, func() {
			_, err := env.ledger.AddToBalance(ctx, user.ID, amount)
			assert.ErrorIs(t, err, domain.ErrValidation, amount)
		})
	}

	_, err := env.ledger.AddToBalance(ctx, user.ID, "600000000000")
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		_, err = env.ledger.AddToBalance(ctx, user.ID, "600000000000")
	})
	assert.ErrorIs(t, err, domain.ErrBalanceLimit)
	assert.Equal(t, 6e11, env.wallet(t, user.ID).CurrentBalance)

	walletID := env.wallet(t, user.ID).ID
	for _, delta := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := env.ledger.AdjustBalance(ctx, walletID, delta)
		assert.ErrorIs(t, err, domain.ErrValidation)
	}
	assert.Equal(t, 6e11, env.wallet(t, user.ID).CurrentBalance)
}

func TestBalanceCacheInvalidatedOnWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "20")

	w, err := env.ledger.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 20.0, w.CurrentBalance)
	assert.True(t, env.mr.Exists(utils.WalletCacheKey(user.ID)))

	_, err = env.ledger.AddToBalance(ctx, user.ID, "5")
	require.NoError(t, err)
	assert.False(t, env.mr.Exists(utils.WalletCacheKey(user.ID)))

	w, err = env.ledger.GetBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, w.CurrentBalance)
	assert.Equal(t, 20.0, w.PreviousBalance)
}

func TestAdjustBalance(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "30")
	walletID := env.wallet(t, user.ID).ID

	_, err := env.ledger.AdjustBalance(ctx, walletID, -31)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	stored := env.wallet(t, user.ID)
	assert.Equal(t, 30.0, stored.CurrentBalance)

	w, err := env.ledger.AdjustBalance(ctx, walletID, -30)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w.CurrentBalance)
	assert.Equal(t, 30.0, w.PreviousBalance)

	w, err = env.ledger.AdjustBalance(ctx, walletID, 0.1)
	require.NoError(t, err)
	w, err = env.ledger.AdjustBalance(ctx, walletID, 0.2)
	require.NoError(t, err)
	assert.Equal(t, 0.3, w.CurrentBalance)

	_, err = env.ledger.AdjustBalance(ctx, "missing", 1)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPersistBalanceRejectsStaleWrite(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "10")
	stale := env.wallet(t, user.ID)

	_, err := env.ledger.AddToBalance(ctx, user.ID, "5")
	require.NoError(t, err)

	require.NoError(t, stale.Credit(1))
	err = env.db.Transaction(func(tx *gorm.DB) error {
		return persistBalance(tx, &stale)
	})
	assert.ErrorIs(t, err, domain.ErrTransaction)
	assert.Equal(t, 15.0, env.wallet(t, user.ID).CurrentBalance)
}
