package service

import (
	"context" // Request scoping
	"errors"  // Error matching
	"strings" // Input trimming
	"time"    // Confirmation timestamps

	"eco_donate/internal/domain" // Domain models and errors

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM for database interactions
)

// ListResult is one page of a resource listing
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

// CreateUserInput is the admin form for a new user
type CreateUserInput struct {
	Username     string `json:"username"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	EmailConfirm bool   `json:"email_confirm"`
}

// UserPatch holds optional user fields; nil means unchanged
type UserPatch struct {
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	EmailConfirm *bool   `json:"email_confirm"`
}

// ContactInput is a full contact record
type ContactInput struct {
	UserID   uint   `json:"user_id"`
	FullName string `json:"full_name"`
	Address  string `json:"address"`
	Country  string `json:"country"`
	AboutMe  string `json:"about_me"`
}

// ContactPatch holds optional contact fields
type ContactPatch struct {
	FullName *string `json:"full_name"`
	Address  *string `json:"address"`
	Country  *string `json:"country"`
	AboutMe  *string `json:"about_me"`
}

// DonationInput is a donation record entered by an administrator. It does
// not move money; use the donation flow for that.
type DonationInput struct {
	UserID        uint    `json:"user_id"`
	Amount        float64 `json:"amount"`
	TreeSpecies   string  `json:"tree_species"`
	NumberOfTrees int     `json:"number_of_trees"`
	RegionToPlant string  `json:"region_to_plant"`
	Description   string  `json:"description"`
	GetCertified  bool    `json:"get_certified"`
}

// DonationPatch holds optional donation fields
type DonationPatch struct {
	TreeSpecies   *string `json:"tree_species"`
	NumberOfTrees *int    `json:"number_of_trees"`
	RegionToPlant *string `json:"region_to_plant"`
	Description   *string `json:"description"`
	GetCertified  *bool   `json:"get_certified"`
}

// Resources is the administrative record store
type Resources struct {
	db       *gorm.DB
	ledger   *Ledger
	policy   Policy
	hashCost int
}

// NewResources wires the admin store. hashCost 0 means bcrypt.DefaultCost.
func NewResources(db *gorm.DB, ledger *Ledger, policy Policy, hashCost int) *Resources {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &Resources{db: db, ledger: ledger, policy: policy, hashCost: hashCost}
}

func list[T any](db *gorm.DB, page, pageSize int) (*ListResult[T], error) {
	page, pageSize = normalizePage(page, pageSize)
	out := &ListResult[T]{Items: []T{}, Page: page, PageSize: pageSize} // Empty list rather than null
	if err := db.Model(new(T)).Count(&out.Total).Error; err != nil {
		return nil, domain.TransactionFailure("failed to count records", err)
	}
	if err := db.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&out.Items).Error; err != nil {
		return nil, domain.TransactionFailure("failed to list records", err)
	}
	out.TotalPages = totalPages(out.Total, pageSize)
	return out, nil
}

func first[T any](db *gorm.DB, what string, query string, args ...any) (*T, error) {
	var v T
	err := db.Where(query, args...).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound(what)
	}
	if err != nil {
		return nil, domain.TransactionFailure("failed to load "+what, err)
	}
	return &v, nil
}

// ListUsers pages through users, newest first
func (r *Resources) ListUsers(ctx context.Context, page, pageSize int) (*ListResult[domain.User], error) {
	return list[domain.User](r.db.WithContext(ctx).Preload("Wallet"), page, pageSize)
}

// GetUser returns a user with its wallet
func (r *Resources) GetUser(ctx context.Context, id uint) (*domain.User, error) {
	return first[domain.User](r.db.WithContext(ctx).Preload("Wallet"), "user", "id = ?", id)
}

// CreateUser adds a user directly. No code is mailed and the wallet is created at once.
func (r *Resources) CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)
	if in.Password == "" {
		return nil, domain.Validation("kindly fill all fields")
	}
	if err := checkIdentity(username, email); err != nil {
		return nil, err
	}
	if err := r.policy.CheckPassword(in.Password, in.Password); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), r.hashCost)
	if err != nil {
		return nil, domain.TransactionFailure("failed to hash password", err)
	}

	user := domain.User{Username: username, Email: email, Password: string(hash), Role: domain.RoleUser}
	if in.EmailConfirm {
		user.Confirm(time.Now())
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := usernameEmailFree(tx, username, email, 0); err != nil {
			return err
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		w, _, err := ensureWallet(tx, user.ID)
		user.Wallet = w
		return err
	})
	if err != nil {
		return nil, asDomainError("failed to create user", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "username": user.Username}).Info("User created by admin")
	return &user, nil
}

// UpdateUser applies a partial update. Email confirmation can be granted
// but never revoked.
func (r *Resources) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*domain.User, error) {
	if patch.Username == nil && patch.Email == nil && patch.EmailConfirm == nil {
		return nil, domain.Validation("nothing to update")
	}

	var user domain.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&user, id).Error; err != nil {
			return err
		}
		updates := map[string]any{}
		username, email := user.Username, user.Email
		if patch.Username != nil {
			username = strings.TrimSpace(*patch.Username)
			updates["username"] = username
		}
		if patch.Email != nil {
			email = strings.TrimSpace(*patch.Email)
			updates["email"] = email
		}
		if err := checkIdentity(username, email); err != nil {
			return err
		}
		if err := usernameEmailFree(tx, username, email, user.ID); err != nil {
			return err
		}
		if patch.EmailConfirm != nil {
			if !*patch.EmailConfirm && user.EmailConfirm {
				return domain.Validation("email confirmation cannot be revoked")
			}
			if *patch.EmailConfirm && user.Confirm(time.Now()) {
				updates["email_confirm"] = true
				updates["email_confirm_at"] = user.EmailConfirmAt
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(&user).Updates(updates).Error; err != nil {
				return err
			}
		}
		if user.EmailConfirm {
			w, _, err := ensureWallet(tx, user.ID)
			user.Wallet = w
			return err
		}
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user")
	}
	if err != nil {
		return nil, asDomainError("failed to update user", err)
	}
	r.ledger.invalidate(ctx, user.ID)
	return &user, nil
}

// DeleteUser removes a user with its wallet, contacts, donations and payments
func (r *Resources) DeleteUser(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		if err := tx.Select("id").First(&user, id).Error; err != nil {
			return err
		}
		donations := tx.Model(&domain.Donation{}).Select("id").Where("user_id = ?", id)
		wallets := tx.Model(&domain.Wallet{}).Select("id").Where("user_id = ?", id)
		if err := tx.Where("donation_id IN (?) OR wallet_id IN (?)", donations, wallets).Delete(&domain.Payment{}).Error; err != nil {
			return err
		}
		for _, model := range []any{&domain.Donation{}, &domain.Contact{}, &domain.Wallet{}} {
			if err := tx.Where("user_id = ?", id).Delete(model).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&user).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound("user")
	}
	if err != nil {
		return asDomainError("failed to delete user", err)
	}
	r.ledger.invalidate(ctx, id)
	logrus.WithField("user_id", id).Info("User deleted")
	return nil
}

// ListWallets pages through wallets
func (r *Resources) ListWallets(ctx context.Context, page, pageSize int) (*ListResult[domain.Wallet], error) {
	return list[domain.Wallet](r.db.WithContext(ctx), page, pageSize)
}

// GetWallet returns the wallet owned by userID without creating one
func (r *Resources) GetWallet(ctx context.Context, userID uint) (*domain.Wallet, error) {
	return first[domain.Wallet](r.db.WithContext(ctx), "wallet", "user_id = ?", userID)
}

// DeleteWallet removes the user's wallet and the payments credited to it
func (r *Resources) DeleteWallet(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var w domain.Wallet
		if err := tx.Where("user_id = ?", userID).First(&w).Error; err != nil {
			return err
		}
		if err := tx.Where("wallet_id = ?", w.ID).Delete(&domain.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&w).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.NotFound("wallet")
	}
	if err != nil {
		return asDomainError("failed to delete wallet", err)
	}
	r.ledger.invalidate(ctx, userID)
	return nil
}

// ListContacts pages through contact snapshots
func (r *Resources) ListContacts(ctx context.Context, page, pageSize int) (*ListResult[domain.Contact], error) {
	return list[domain.Contact](r.db.WithContext(ctx), page, pageSize)
}

// GetContact returns one contact snapshot
func (r *Resources) GetContact(ctx context.Context, id uint) (*domain.Contact, error) {
	return first[domain.Contact](r.db.WithContext(ctx), "contact", "id = ?", id)
}

// CreateContact adds a contact snapshot for an existing user
func (r *Resources) CreateContact(ctx context.Context, in ContactInput) (*domain.Contact, error) {
	c := domain.Contact{UserID: in.UserID, FullName: in.FullName, Address: in.Address, Country: in.Country, AboutMe: in.AboutMe}
	if err := checkContact(&c); err != nil {
		return nil, err
	}
	if _, err := r.GetUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, domain.TransactionFailure("failed to create contact", err)
	}
	r.ledger.invalidate(ctx, c.UserID)
	return &c, nil
}

// UpdateContact applies a partial update to a contact snapshot
func (r *Resources) UpdateContact(ctx context.Context, id uint, patch ContactPatch) (*domain.Contact, error) {
	if patch.FullName == nil && patch.Address == nil && patch.Country == nil && patch.AboutMe == nil {
		return nil, domain.Validation("nothing to update")
	}
	c, err := r.GetContact(ctx, id)
	if err != nil {
		return nil, err
	}
	setIf(&c.FullName, patch.FullName)
	setIf(&c.Address, patch.Address)
	setIf(&c.Country, patch.Country)
	setIf(&c.AboutMe, patch.AboutMe)
	if err := checkContact(c); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(c).Updates(map[string]any{
		"full_name": c.FullName,
		"address":   c.Address,
		"country":   c.Country,
		"about_me":  c.AboutMe,
	}).Error; err != nil {
		return nil, domain.TransactionFailure("failed to update contact", err)
	}
	r.ledger.invalidate(ctx, c.UserID)
	return c, nil
}

// DeleteContact removes one contact snapshot
func (r *Resources) DeleteContact(ctx context.Context, id uint) error {
	c, err := r.GetContact(ctx, id)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Delete(c).Error; err != nil {
		return domain.TransactionFailure("failed to delete contact", err)
	}
	r.ledger.invalidate(ctx, c.UserID)
	return nil
}

// ListDonations pages through donations with their payments
func (r *Resources) ListDonations(ctx context.Context, page, pageSize int) (*ListResult[domain.Donation], error) {
	return list[domain.Donation](r.db.WithContext(ctx).Preload("Payment"), page, pageSize)
}

// GetDonation returns one donation with its payment
func (r *Resources) GetDonation(ctx context.Context, id uint) (*domain.Donation, error) {
	return first[domain.Donation](r.db.WithContext(ctx).Preload("Payment"), "donation", "id = ?", id)
}

// CreateDonation records a donation for an existing user
func (r *Resources) CreateDonation(ctx context.Context, in DonationInput) (*domain.Donation, error) {
	d := domain.Donation{
		UserID:        in.UserID,
		Amount:        in.Amount,
		TreeSpecies:   in.TreeSpecies,
		NumberOfTrees: in.NumberOfTrees,
		RegionToPlant: in.RegionToPlant,
		Description:   in.Description,
		GetCertified:  in.GetCertified,
	}
	if !(d.Amount > 0) || !domain.InRange(d.Amount) { // Same bounds as a wallet balance
		return nil, domain.Validation("amount must be greater than zero and within the wallet limit")
	}
	if err := checkDonation(&d); err != nil {
		return nil, err
	}
	if _, err := r.GetUser(ctx, in.UserID); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(&d).Error; err != nil {
		return nil, domain.TransactionFailure("failed to create donation", err)
	}
	r.ledger.invalidate(ctx, d.UserID)
	return &d, nil
}

// UpdateDonation applies a partial update. The amount is fixed once paid.
func (r *Resources) UpdateDonation(ctx context.Context, id uint, patch DonationPatch) (*domain.Donation, error) {
	if patch.TreeSpecies == nil && patch.NumberOfTrees == nil && patch.RegionToPlant == nil &&
		patch.Description == nil && patch.GetCertified == nil {
		return nil, domain.Validation("nothing to update")
	}
	d, err := r.GetDonation(ctx, id)
	if err != nil {
		return nil, err
	}
	setIf(&d.TreeSpecies, patch.TreeSpecies)
	setIf(&d.NumberOfTrees, patch.NumberOfTrees)
	setIf(&d.RegionToPlant, patch.RegionToPlant)
	setIf(&d.Description, patch.Description)
	setIf(&d.GetCertified, patch.GetCertified)
	if err := checkDonation(d); err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(&domain.Donation{ID: d.ID}).Updates(map[string]any{
		"tree_species":    d.TreeSpecies,
		"number_of_trees": d.NumberOfTrees,
		"region_to_plant": d.RegionToPlant,
		"description":     d.Description,
		"get_certified":   d.GetCertified,
	}).Error; err != nil {
		return nil, domain.TransactionFailure("failed to update donation", err)
	}
	r.ledger.invalidate(ctx, d.UserID)
	return d, nil
}

// DeleteDonation removes a donation and its payment. Balances are not
// reversed.
func (r *Resources) DeleteDonation(ctx context.Context, id uint) error {
	d, err := r.GetDonation(ctx, id)
	if err != nil {
		return err
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("donation_id = ?", d.ID).Delete(&domain.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Donation{ID: d.ID}).Error
	})
	if err != nil {
		return domain.TransactionFailure("failed to delete donation", err)
	}
	r.ledger.invalidate(ctx, d.UserID)
	return nil
}

// ListPayments pages through payments
func (r *Resources) ListPayments(ctx context.Context, page, pageSize int) (*ListResult[domain.Payment], error) {
	return list[domain.Payment](r.db.WithContext(ctx), page, pageSize)
}

func checkContact(c *domain.Contact) error {
	for _, v := range []string{c.FullName, c.Address, c.Country, c.AboutMe} {
		if strings.TrimSpace(v) == "" {
			return domain.Validation("kindly fill all fields")
		}
	}
	if tooLong(c.FullName, 100) || tooLong(c.Address, 150) || tooLong(c.Country, 50) || tooLong(c.AboutMe, 255) {
		return domain.Validation("one of the fields is too long")
	}
	return nil
}

func checkDonation(d *domain.Donation) error {
	if strings.TrimSpace(d.TreeSpecies) == "" || strings.TrimSpace(d.RegionToPlant) == "" {
		return domain.Validation("tree species and region are required")
	}
	if d.NumberOfTrees < 0 {
		return domain.Validation("number_of_trees must not be negative")
	}
	if tooLong(d.TreeSpecies, 100) || tooLong(d.RegionToPlant, 100) || tooLong(d.Description, 255) {
		return domain.Validation("one of the fields is too long")
	}
	return nil
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// asDomainError passes domain errors through and wraps anything else
func asDomainError(msg string, err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	logrus.WithField("error", err.Error()).Error(msg)
	return domain.TransactionFailure(msg, err)
}
