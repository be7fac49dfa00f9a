// Package session keeps short-lived authentication state in Redis: pending
// one-time codes, password reset grants and revoked sign-in tokens. Every
// record carries an explicit TTL.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Purpose separates codes issued for different flows
type Purpose string

const (
	PurposeRegister Purpose = "register" // Email confirmation after registration
	PurposeReset    Purpose = "reset"    // Password reset
)

var (
	ErrNoCode       = errors.New("session: no pending code")
	ErrCodeMismatch = errors.New("session: code mismatch")
	ErrNoGrant      = errors.New("session: no reset grant")
)

// Store is the Redis-backed session state
type Store struct {
	rdb *redis.Client
}

// NewStore wraps a Redis client
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func codeKey(p Purpose, email string) string     { return "otp:" + string(p) + ":" + email }
func attemptsKey(p Purpose, email string) string { return codeKey(p, email) + ":attempts" }
func grantKey(token string) string               { return "reset:grant:" + token }
func revokedKey(jti string) string               { return "session:revoked:" + jti }

// SaveCode stores code for (p, email), replacing any pending one
func (s *Store) SaveCode(ctx context.Context, p Purpose, email, code string, ttl time.Duration) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, codeKey(p, email), code, ttl)
		pipe.Del(ctx, attemptsKey(p, email))
		return nil
	})
	return err
}

// VerifyCode checks code against the pending record. A match consumes the
// record. A mismatch counts an attempt; after maxAttempts the record is
// discarded.
func (s *Store) VerifyCode(ctx context.Context, p Purpose, email, code string, maxAttempts int) error {
	stored, err := s.rdb.Get(ctx, codeKey(p, email)).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNoCode
	}
	if err != nil {
		return err
	}

	if stored != code {
		attempts, err := s.rdb.Incr(ctx, attemptsKey(p, email)).Result()
		if err != nil {
			return err
		}
		if attempts == 1 {
			if ttl, err := s.rdb.TTL(ctx, codeKey(p, email)).Result(); err == nil && ttl > 0 {
				s.rdb.Expire(ctx, attemptsKey(p, email), ttl)
			}
		}
		if maxAttempts > 0 && attempts >= int64(maxAttempts) {
			s.rdb.Del(ctx, codeKey(p, email), attemptsKey(p, email))
		}
		return ErrCodeMismatch
	}

	// Single use: only the caller that deletes the record wins
	n, err := s.rdb.Del(ctx, codeKey(p, email)).Result()
	if err != nil {
		return err
	}
	s.rdb.Del(ctx, attemptsKey(p, email))
	if n == 0 {
		return ErrNoCode
	}
	return nil
}

// GrantReset issues a single-use token allowing email's password to be changed
func (s *Store) GrantReset(ctx context.Context, email string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	if err := s.rdb.Set(ctx, grantKey(token), email, ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// TakeReset consumes a reset grant and returns the email it was issued for
func (s *Store) TakeReset(ctx context.Context, token string) (string, error) {
	email, err := s.rdb.GetDel(ctx, grantKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoGrant
	}
	return email, err
}

// Revoke marks a token id as signed out until it would have expired anyway
func (s *Store) Revoke(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(jti), 1, ttl).Err()
}

// IsRevoked reports whether a token id was signed out
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(jti)).Result()
	return n > 0, err
}
