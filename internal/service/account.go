package service

import (
	"context" // Request scoping
	"errors"  // Error matching
	"strings" // Input trimming
	"time"    // Token and code lifetimes

	"eco_donate/internal/domain"  // Domain models and errors
	"eco_donate/internal/mailer"  // Code delivery
	"eco_donate/internal/session" // Codes, grants and revocation
	"eco_donate/internal/utils"   // JWT and OTP helpers

	"github.com/sirupsen/logrus" // Logrus for structured logging
	"golang.org/x/crypto/bcrypt" // Password hashing
	"gorm.io/gorm"               // GORM for database interactions
)

// AccountConfig carries the token and code lifetimes of the account flows
type AccountConfig struct {
	JWTSecret       string        // HMAC key for access tokens
	SessionTTL      time.Duration // Token lifetime for a normal sign-in
	RememberTTL     time.Duration // Token lifetime when "remember me" is set
	CodeTTL         time.Duration // One-time code lifetime
	ResetTTL        time.Duration // Password reset grant lifetime
	MaxCodeAttempts int           // Wrong guesses before a code is discarded
	HashCost        int           // bcrypt cost, 0 means bcrypt.DefaultCost
}

// RegisterInput is the sign-up form
type RegisterInput struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Session is an issued access token
type Session struct {
	Token     string       `json:"access_token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *domain.User `json:"user"`
}

// AccountService owns registration, verification, sign-in and password reset
type AccountService struct {
	db       *gorm.DB
	sessions *session.Store
	mailer   mailer.Mailer
	policy   Policy
	cfg      AccountConfig
	newCode  func() (string, error)
}

// NewAccountService wires the account flows
func NewAccountService(db *gorm.DB, sessions *session.Store, m mailer.Mailer, policy Policy, cfg AccountConfig) *AccountService {
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	return &AccountService{
		db:       db,
		sessions: sessions,
		mailer:   m,
		policy:   policy,
		cfg:      cfg,
		newCode:  utils.GenerateOTP,
	}
}

// Register creates an unverified account and mails a confirmation code
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	username := strings.TrimSpace(in.Username) // Trim surrounding spaces
	email := strings.TrimSpace(in.Email)
	if in.Password == "" {
		return nil, domain.Validation("kindly fill all fields")
	}
	if err := checkIdentity(username, email); err != nil { // Shape checks first
		return nil, err
	}
	if err := usernameEmailFree(s.db.WithContext(ctx), username, email, 0); err != nil { // Then uniqueness
		return nil, err
	}
	if err := s.policy.CheckPassword(in.Password, in.ConfirmPassword); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cfg.HashCost) // Hash the password
	if err != nil {
		return nil, domain.TransactionFailure("failed to hash password", err)
	}
	user := domain.User{Username: username, Email: email, Password: string(hash), Role: domain.RoleUser}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil { // Save user to database
		logrus.WithFields(logrus.Fields{
			"username": username,
			"error":    err.Error(),
		}).Error("Failed to create user")
		return nil, domain.TransactionFailure("failed to create user", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	// The account stays; a failed mail can be retried with ResendVerification
	if err := s.sendCode(ctx, session.PurposeRegister, email); err != nil {
		return &user, err
	}
	return &user, nil
}

// ResendVerification issues a fresh confirmation code for an unverified account
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.TransactionFailure("failed to load user", err)
	}
	if err != nil || user.EmailConfirm {
		return domain.Validation("no unverified account uses this email")
	}
	return s.sendCode(ctx, session.PurposeRegister, email)
}

// ConfirmRegistration verifies the emailed code, marks the account as
// verified and creates its wallet
func (s *AccountService) ConfirmRegistration(ctx context.Context, email, code string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || code == "" {
		return nil, domain.ErrInvalidCode
	}
	if err := s.verifyCode(ctx, session.PurposeRegister, email, code); err != nil {
		return nil, err
	}

	var user domain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		if user.Confirm(time.Now()) { // False when already confirmed
			if err := tx.Model(&user).Updates(map[string]any{
				"email_confirm":    true,
				"email_confirm_at": user.EmailConfirmAt,
			}).Error; err != nil {
				return err
			}
		}
		w, _, err := ensureWallet(tx, user.ID) // Verified accounts always have a wallet
		user.Wallet = w
		return err
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.NotFound("user")
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"email": email,
			"error": err.Error(),
		}).Error("Failed to confirm registration")
		return nil, domain.TransactionFailure("failed to confirm registration", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"wallet_id": user.Wallet.ID,
	}).Info("Email verified")
	return &user, nil
}

// SignIn checks credentials and issues an access token. remember selects
// the longer token lifetime.
func (s *AccountService) SignIn(ctx context.Context, username, password string, remember bool) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, domain.ErrAuth
	}

	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrAuth
	}
	if err != nil {
		return nil, domain.TransactionFailure("failed to load user", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)) != nil { // Compare hashed password
		logrus.WithField("username", username).Warn("Failed sign-in attempt")
		return nil, domain.ErrAuth
	}
	if !user.EmailConfirm { // Reported only once the password matched
		return nil, domain.ErrNotVerified
	}

	ttl := s.cfg.SessionTTL
	if remember {
		ttl = s.cfg.RememberTTL // Longer lived token
	}
	token, claims, err := utils.GenerateJWT(user.ID, s.cfg.JWTSecret, ttl) // Generate JWT token
	if err != nil {
		return nil, domain.TransactionFailure("failed to generate token", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"remember": remember,
	}).Info("User signed in")
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: &user}, nil
}

// Authenticate is the credential check of the admin API. Usernames there
// never contain '@', so an email typed as username is refused outright.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	if strings.Contains(username, "@") {
		return nil, domain.ErrAuth
	}
	return s.SignIn(ctx, username, password, false)
}

// SignOut revokes the token described by claims until it would have expired
func (s *AccountService) SignOut(ctx context.Context, claims *utils.Claims) error {
	if claims == nil || claims.ID == "" {
		return domain.ErrAuth
	}
	until := time.Now().Add(s.cfg.SessionTTL)
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}
	if err := s.sessions.Revoke(ctx, claims.ID, until); err != nil {
		return domain.TransactionFailure("failed to sign out", err)
	}
	logrus.WithField("user_id", claims.UserID).Info("User signed out")
	return nil
}

// RequestPasswordReset mails a reset code to a verified account
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	var user domain.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.TransactionFailure("failed to load user", err)
	}
	if err != nil || !user.EmailConfirm {
		return domain.Validation("sorry, your email account is not valid with us")
	}
	return s.sendCode(ctx, session.PurposeReset, email)
}

// VerifyResetCode exchanges a valid reset code for a single-use grant token
func (s *AccountService) VerifyResetCode(ctx context.Context, email, code string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || code == "" {
		return "", domain.ErrInvalidCode
	}
	if err := s.verifyCode(ctx, session.PurposeReset, email, code); err != nil {
		return "", err
	}
	grant, err := s.sessions.GrantReset(ctx, email, s.cfg.ResetTTL)
	if err != nil {
		return "", domain.TransactionFailure("failed to store reset grant", err)
	}
	return grant, nil
}

// ChangePassword sets a new password using a grant from VerifyResetCode. The
// grant is only consumed once the new password passes the policy.
func (s *AccountService) ChangePassword(ctx context.Context, grant, password, confirm string) error {
	if err := s.policy.CheckPassword(password, confirm); err != nil {
		return err
	}
	email, err := s.sessions.TakeReset(ctx, grant) // Consumes the grant
	if errors.Is(err, session.ErrNoGrant) {
		return domain.ErrInvalidCode
	}
	if err != nil {
		return domain.TransactionFailure("failed to read reset grant", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return domain.TransactionFailure("failed to hash password", err)
	}
	res := s.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Update("password", string(hash))
	if res.Error != nil {
		return domain.TransactionFailure("failed to update password", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.NotFound("user")
	}
	logrus.WithField("email", email).Info("Password changed")
	return nil
}

// usernameEmailFree refuses a username or email already used by another user
func usernameEmailFree(db *gorm.DB, username, email string, exceptID uint) error {
	var count int64
	q := db.Model(&domain.User{}).Where("(username = ? OR email = ?)", username, email)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	if err := q.Count(&count).Error; err != nil {
		return domain.TransactionFailure("failed to check username", err)
	}
	if count > 0 {
		return domain.Validation("username or email taken")
	}
	return nil
}

func (s *AccountService) sendCode(ctx context.Context, p session.Purpose, email string) error {
	code, err := s.newCode()
	if err != nil {
		return domain.TransactionFailure("failed to generate code", err)
	}
	if err := s.sessions.SaveCode(ctx, p, email, code, s.cfg.CodeTTL); err != nil { // Replaces any earlier code
		return domain.TransactionFailure("failed to store code", err)
	}
	err = s.mailer.Send(ctx, mailer.Message{
		To:      email,
		Subject: "One Time Password",
		Body:    "Your OTP is: " + code,
	})
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"email":   email,
			"purpose": p,
			"error":   err.Error(),
		}).Error("Failed to send code")
		return domain.DeliveryFailure("we could not send your code, please try again", err)
	}
	return nil
}

func (s *AccountService) verifyCode(ctx context.Context, p session.Purpose, email, code string) error {
	err := s.sessions.VerifyCode(ctx, p, email, code, s.cfg.MaxCodeAttempts)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNoCode), errors.Is(err, session.ErrCodeMismatch):
		return domain.ErrInvalidCode
	default:
		return domain.TransactionFailure("failed to verify code", err)
	}
}
