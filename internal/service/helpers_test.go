package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"eco_donate/internal/certificate"
	store "eco_donate/internal/db"
	"eco_donate/internal/domain"
	"eco_donate/internal/mailer"
	"eco_donate/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testPassword = "secret123"

type fakeMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (m *fakeMailer) Send(_ context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) fail(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

// lastCode returns the code from the latest mail sent to addr
func (m *fakeMailer) lastCode(t *testing.T, addr string) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if m.sent[i].To == addr {
			code, ok := strings.CutPrefix(m.sent[i].Body, "Your OTP is: ")
			require.True(t, ok, "unexpected body %q", m.sent[i].Body)
			return code
		}
	}
	t.Fatalf("no mail sent to %s", addr)
	return ""
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type published struct {
	eventType string
	data      any
}

type fakeFeed struct {
	mu     sync.Mutex
	events []published
}

func (f *fakeFeed) Publish(eventType string, data any) {
	f.mu.Lock()
	f.events = append(f.events, published{eventType, data})
	f.mu.Unlock()
}

type testEnv struct {
	db         *gorm.DB
	mr         *miniredis.Miniredis
	rdb        *redis.Client
	mail       *fakeMailer
	feed       *fakeFeed
	ledger     *Ledger
	accounts   *AccountService
	donations  *DonationService
	certs      *CertificateService
	resources  *Resources
	platformID string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_pragma=foreign_keys(1)"
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, store.Migrate(gdb))

	platformID, err := store.SeedPlatformWallet(gdb, "", "eco-donate", "platform@example.com")
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	env := &testEnv{
		db:         gdb,
		mr:         mr,
		rdb:        rdb,
		mail:       &fakeMailer{},
		feed:       &fakeFeed{},
		platformID: platformID,
	}
	policy := DefaultPolicy()
	env.ledger = NewLedger(gdb, rdb, time.Minute)
	env.accounts = NewAccountService(gdb, session.NewStore(rdb), env.mail, policy, AccountConfig{
		JWTSecret:       "test-secret",
		SessionTTL:      time.Hour,
		RememberTTL:     30 * 24 * time.Hour,
		CodeTTL:         10 * time.Minute,
		ResetTTL:        10 * time.Minute,
		MaxCodeAttempts: 5,
		HashCost:        bcrypt.MinCost,
	})
	env.donations = NewDonationService(gdb, env.ledger, policy, platformID, env.feed)
	env.certs = NewCertificateService(gdb, certificate.NewPDFRenderer(), env.mail)
	env.resources = NewResources(gdb, env.ledger, policy, bcrypt.MinCost)
	return env
}

// verifiedUser registers and confirms a user, then funds its wallet
func (e *testEnv) verifiedUser(t *testing.T, username string, balance string) *domain.User {
	t.Helper()
	ctx := context.Background()
	email := username + "@example.com"
	_, err := e.accounts.Register(ctx, RegisterInput{
		Username:        username,
		Email:           email,
		Password:        testPassword,
		ConfirmPassword: testPassword,
	})
	require.NoError(t, err)
	user, err := e.accounts.ConfirmRegistration(ctx, email, e.mail.lastCode(t, email))
	require.NoError(t, err)
	if balance != "" {
		_, err = e.ledger.AddToBalance(ctx, user.ID, balance)
		require.NoError(t, err)
	}
	return user
}

func (e *testEnv) wallet(t *testing.T, userID uint) domain.Wallet {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, e.db.Where("user_id = ?", userID).First(&w).Error)
	return w
}

func (e *testEnv) platformWallet(t *testing.T) domain.Wallet {
	t.Helper()
	var w domain.Wallet
	require.NoError(t, e.db.Where("id = ?", e.platformID).First(&w).Error)
	return w
}

func validDonation(amount float64) DonationRequest {
	return DonationRequest{
		Amount:       amount,
		Species:      "Acacia",
		Region:       "Kenya",
		Description:  "Restoring the dry savanna edge",
		GetCertified: true,
		FullName:     "Ada Lovelace",
		Address:      "12 Green Street",
		Country:      "United Kingdom",
		AboutMe:      "I plant trees every spring season",
	}
}

var errSMTPDown = errors.New("smtp: connection refused")
