package service

import (
	"context"
	"testing"

	"eco_donate/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestResourcesUsers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.resources.CreateUser(ctx, CreateUserInput{Username: "Ada", Email: "ada@example.com", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrValidation)

	pending, err := env.resources.CreateUser(ctx, CreateUserInput{Username: "ada", Email: "ada@example.com", Password: testPassword})
	require.NoError(t, err)
	assert.False(t, pending.EmailConfirm)
	require.NotNil(t, pending.Wallet)

	_, err = env.resources.CreateUser(ctx, CreateUserInput{Username: "ada", Email: "other@example.com", Password: testPassword})
	assert.ErrorIs(t, err, domain.ErrValidation)

	confirmed, err := env.resources.CreateUser(ctx, CreateUserInput{Username: "bob", Email: "bob@example.com", Password: testPassword, EmailConfirm: true})
	require.NoError(t, err)
	assert.True(t, confirmed.EmailConfirm)
	assert.NotNil(t, confirmed.EmailConfirmAt)

	_, err = env.resources.UpdateUser(ctx, pending.ID, UserPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	updated, err := env.resources.UpdateUser(ctx, pending.ID, UserPatch{EmailConfirm: ptr(true), Username: ptr("ada2")})
	require.NoError(t, err)
	assert.True(t, updated.EmailConfirm)
	assert.Equal(t, "ada2", updated.Username)
	require.NotNil(t, updated.Wallet)

	_, err = env.resources.UpdateUser(ctx, pending.ID, UserPatch{EmailConfirm: ptr(false)})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.resources.UpdateUser(ctx, pending.ID, UserPatch{Email: ptr("bob@example.com")})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.resources.UpdateUser(ctx, 9999, UserPatch{Username: ptr("ghost")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	got, err := env.resources.GetUser(ctx, pending.ID)
	require.NoError(t, err)
	assert.True(t, got.EmailConfirm)

	users, err := env.resources.ListUsers(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), users.Total) // includes the platform user
	assert.Len(t, users.Items, 2)
	assert.Equal(t, 2, users.TotalPages)
}

func TestResourcesDeleteUserCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")
	_, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(40))
	require.NoError(t, err)

	require.NoError(t, env.resources.DeleteUser(ctx, user.ID))
	assert.ErrorIs(t, env.resources.DeleteUser(ctx, user.ID), domain.ErrNotFound)

	for _, model := range []any{&domain.Donation{}, &domain.Payment{}, &domain.Contact{}} {
		var count int64
		require.NoError(t, env.db.Model(model).Count(&count).Error)
		assert.Zero(t, count)
	}
	_, err = env.resources.GetWallet(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// The platform keeps the funds it already received
	assert.Equal(t, 40.0, env.platformWallet(t).CurrentBalance)
}

func TestResourcesWallets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "15")

	w, err := env.resources.GetWallet(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, w.CurrentBalance)

	wallets, err := env.resources.ListWallets(ctx, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(2), wallets.Total)

	require.NoError(t, env.resources.DeleteWallet(ctx, user.ID))
	assert.ErrorIs(t, env.resources.DeleteWallet(ctx, user.ID), domain.ErrNotFound)
}

func TestResourcesContacts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "")

	_, err := env.resources.CreateContact(ctx, ContactInput{UserID: user.ID, FullName: "Ada"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.resources.CreateContact(ctx, ContactInput{UserID: 9999, FullName: "Ada", Address: "x", Country: "UK", AboutMe: "y"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c, err := env.resources.CreateContact(ctx, ContactInput{UserID: user.ID, FullName: "Ada", Address: "1 Road", Country: "UK", AboutMe: "Trees"})
	require.NoError(t, err)

	c, err = env.resources.UpdateContact(ctx, c.ID, ContactPatch{Country: ptr("Kenya")})
	require.NoError(t, err)
	assert.Equal(t, "Kenya", c.Country)
	assert.Equal(t, "Ada", c.FullName)

	_, err = env.resources.UpdateContact(ctx, c.ID, ContactPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	contacts, err := env.resources.ListContacts(ctx, 1, 20)
	require.NoError(t, err)
	assert.Len(t, contacts.Items, 1)

	require.NoError(t, env.resources.DeleteContact(ctx, c.ID))
	_, err = env.resources.GetContact(ctx, c.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResourcesDonations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "")

	_, err := env.resources.CreateDonation(ctx, DonationInput{UserID: user.ID, Amount: 0, TreeSpecies: "Oak", RegionToPlant: "Wales"})
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = env.resources.CreateDonation(ctx, DonationInput{UserID: user.ID, Amount: 1e300, TreeSpecies: "Oak", RegionToPlant: "Wales"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	d, err := env.resources.CreateDonation(ctx, DonationInput{UserID: user.ID, Amount: 12, TreeSpecies: "Oak", NumberOfTrees: 12, RegionToPlant: "Wales"})
	require.NoError(t, err)

	d, err = env.resources.UpdateDonation(ctx, d.ID, DonationPatch{RegionToPlant: ptr("Scotland"), GetCertified: ptr(true)})
	require.NoError(t, err)
	assert.Equal(t, "Scotland", d.RegionToPlant)
	assert.True(t, d.GetCertified)
	assert.Equal(t, 12.0, d.Amount)

	_, err = env.resources.UpdateDonation(ctx, d.ID, DonationPatch{TreeSpecies: ptr("")})
	assert.ErrorIs(t, err, domain.ErrValidation)

	donations, err := env.resources.ListDonations(ctx, 1, 20)
	require.NoError(t, err)
	assert.Len(t, donations.Items, 1)

	require.NoError(t, env.resources.DeleteDonation(ctx, d.ID))
	_, err = env.resources.GetDonation(ctx, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResourcesPayments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	user := env.verifiedUser(t, "ada", "100")
	receipt, err := env.donations.SubmitDonation(ctx, user.ID, validDonation(10))
	require.NoError(t, err)

	payments, err := env.resources.ListPayments(ctx, 1, 20)
	require.NoError(t, err)
	require.Len(t, payments.Items, 1)
	assert.Equal(t, receipt.Payment.ID, payments.Items[0].ID)
}
