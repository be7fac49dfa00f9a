package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"eco_donate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitDonation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")

	receipt, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(50))
	require.NoError(t, err)

	assert.NotZero(t, receipt.Donation.ID)
	assert.Equal(t, 50, receipt.Donation.NumberOfTrees)
	assert.Equal(t, receipt.Donation.ID, receipt.Payment.DonationID)
	assert.Equal(t, env.platformID, receipt.Payment.WalletID)
	assert.Equal(t, 50.0, receipt.Payment.Amount)
	assert.Equal(t, "Ada Lovelace", receipt.Contact.FullName)

	donor := env.wallet(t, user.ID)
	assert.Equal(t, 50.0, donor.CurrentBalance)
	assert.Equal(t, 100.0, donor.PreviousBalance)

	platform := env.platformWallet(t)
	assert.Equal(t, 50.0, platform.CurrentBalance)
	assert.Equal(t, 0.0, platform.PreviousBalance)

	var payments []domain.Payment
	require.NoError(t, env.db.Where("donation_id = ?", receipt.Donation.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, 50.0, payments[0].Amount)

	require.Len(t, env.feed.events, 1)
	assert.Equal(t, "new_donation", env.feed.events[0].eventType)
	event := env.feed.events[0].data.(DonationEvent)
	assert.Equal(t, receipt.Donation.ID, event.DonationID)
}

func TestPlatformCreditAccumulates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	ada := env.verifiedUser(t, "ada", "100")
	bob := env.verifiedUser(t, "bob", "100")

	_, err := env.donations.SubmitDonation(ctx, ada.ID, validDonation(30))
	require.NoError(t, err)
	_, err = env.donations.SubmitDonation(ctx, bob.ID, validDonation(12.5))
	require.NoError(t, err)

	platform := env.platformWallet(t)
	assert.Equal(t, 42.5, platform.CurrentBalance)
	assert.Equal(t, 30.0, platform.PreviousBalance)
}

func TestSubmitDonationInsufficientFunds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "10")

	_, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(50))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	donor := env.wallet(t, user.ID)
	assert.Equal(t, 10.0, donor.CurrentBalance)
	assert.Equal(t, 0.0, donor.PreviousBalance)
	assert.Equal(t, 0.0, env.platformWallet(t).CurrentBalance)

	for _, model := range []any{&domain.Donation{}, &domain.Payment{}, &domain.Contact{}} {
		var count int64
		require.NoError(t, env.db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
	assert.Empty(t, env.feed.events)
}

func TestSubmitDonationWithoutWallet(t *testing.T) {
	env := newTestEnv(t)
	user := domain.User{Username: "ada", Email: "ada@example.com", Password: "x"}
	require.NoError(t, env.db.Create(&user).Error)

	_, err := env.donations.SubmitDonation(context.Background(), user.ID, validDonation(5))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDonationValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		mutate func(r *DonationRequest)
		ok     bool
	}{
		{"valid", func(r *DonationRequest) {}, true},
		{"description of 20", func(r *DonationRequest) { r.Description = strings.Repeat("a", 20) }, true},
		{"description of 19", func(r *DonationRequest) { r.Description = strings.Repeat("a", 19) }, false},
		{"about me of 19", func(r *DonationRequest) { r.AboutMe = strings.Repeat("a", 19) }, false},
		{"missing name", func(r *DonationRequest) { r.FullName = "" }, false},
		{"missing country", func(r *DonationRequest) { r.Country = "  " }, false},
		{"all caps name", func(r *DonationRequest) { r.FullName = "ADA LOVELACE" }, false},
		{"all caps description", func(r *DonationRequest) { r.Description = "RESTORING THE DRY SAVANNA" }, false},
		{"acronym in text", func(r *DonationRequest) { r.Address = "12 Green Street, UK" }, true},
		{"digits only address", func(r *DonationRequest) { r.Address = "1234" }, true},
		{"missing species", func(r *DonationRequest) { r.Species = "" }, false},
		{"missing region", func(r *DonationRequest) { r.Region = "" }, false},
		{"zero amount", func(r *DonationRequest) { r.Amount = 0 }, false},
		{"negative amount", func(r *DonationRequest) { r.Amount = -5 }, false},
		{"description too long", func(r *DonationRequest) { r.Description = strings.Repeat("a", 256) }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validDonation(10)
			tt.mutate(&req)
			err := env.donations.Validate(req)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrValidation)
			}
		})
	}
}

func TestSubmitDonationRoundsToCents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "10")

	_, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(0.001))
	assert.ErrorIs(t, err, domain.ErrValidation)

	receipt, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(2.555))
	require.NoError(t, err)
	assert.Equal(t, 2.56, receipt.Payment.Amount)
	assert.Equal(t, 7.44, env.wallet(t, user.ID).CurrentBalance)
}

func TestConcurrentDonationsCannotOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")

	// The loser reads the donor row before the winner commits
	var snapshot domain.Wallet
	env.donations.onDonorLocked = func(w *domain.Wallet) {
		if snapshot.ID == "" {
			snapshot = *w
			return
		}
		*w = snapshot
	}

	winner, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(80))
	require.NoError(t, err)
	_, err = env.donations.SubmitDonation(ctx, user.ID, validDonation(80))
	assert.ErrorIs(t, err, domain.ErrTransaction)

	stored := env.wallet(t, user.ID)
	assert.Equal(t, 20.0, stored.CurrentBalance)
	assert.Equal(t, 100.0, stored.PreviousBalance)
	assert.Equal(t, 80.0, env.platformWallet(t).CurrentBalance)

	for _, model := range []any{&domain.Donation{}, &domain.Payment{}, &domain.Contact{}} {
		var count int64
		require.NoError(t, env.db.Model(model).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	}
	var payment domain.Payment
	require.NoError(t, env.db.First(&payment).Error)
	assert.Equal(t, winner.Payment.ID, payment.ID)

	// Without the stale read the same donation is refused for lack of funds
	env.donations.onDonorLocked = nil
	_, err = env.donations.SubmitDonation(ctx, user.ID, validDonation(80))
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
}

func TestSimultaneousSubmissionsCannotOverdraw(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.donations.SubmitDonation(ctx, user.ID, validDonation(80))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 20.0, env.wallet(t, user.ID).CurrentBalance)
	assert.Equal(t, 80.0, env.platformWallet(t).CurrentBalance)
}

func TestSubmitDonationRespectsBalanceLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")

	assert.NotPanics(t, func() {
		_, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(1e300))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	// A platform wallet at the limit refuses further credit and the donor keeps the funds
	require.NoError(t, env.db.Model(&domain.Wallet{}).Where("id = ?", env.platformID).
		Update("current_balance", domain.MaxBalance).Error)
	assert.NotPanics(t, func() {
		_, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(10))
		assert.ErrorIs(t, err, domain.ErrTransaction)
	})
	assert.Equal(t, 100.0, env.wallet(t, user.ID).CurrentBalance)

	var count int64
	require.NoError(t, env.db.Model(&domain.Donation{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")

	page, err := env.donations.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Donations)
	assert.Zero(t, page.Total)

	first, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(10))
	require.NoError(t, err)
	second := validDonation(20)
	second.Region = "Ghana"
	_, err = env.donations.SubmitDonation(ctx, user.ID, second)
	require.NoError(t, err)

	page, err = env.donations.History(ctx, user.ID, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Donations, 1)
	assert.Equal(t, "Ghana", page.Donations[0].RegionToPlant)
	require.NotNil(t, page.Donations[0].Payment)

	page, err = env.donations.History(ctx, user.ID, 2, 1)
	require.NoError(t, err)
	require.Len(t, page.Donations, 1)
	assert.Equal(t, first.Donation.ID, page.Donations[0].ID)

	// Out-of-range paging is clamped
	page, err = env.donations.History(ctx, user.ID, 0, 500)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 100, page.PageSize)
	assert.Len(t, page.Donations, 2)
	assert.Len(t, page.Contacts, 2)

	_, err = env.donations.History(ctx, 9999, 1, 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
