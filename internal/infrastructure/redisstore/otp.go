// Package redisstore keeps OTP challenges in Redis hashes that expire with
// the challenge.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-marketplace-identity/internal/domain"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "otp:challenge:"

// markVerified sets verified=1 only while the stored code matches ARGV[1].
var markVerified = redis.NewScript(`
if redis.call("HGET", KEYS[1], "code") == ARGV[1] then
	redis.call("HSET", KEYS[1], "verified", "1")
	return 1
end
return 0
`)

type challengeHash struct {
	Code      string `redis:"code"`
	ExpiresAt int64  `redis:"expires_at"` // Unix milliseconds
	Verified  bool   `redis:"verified"`
}

// OTPStore is a Redis-backed challenge store.
type OTPStore struct {
	rdb redis.UniversalClient
}

func NewOTPStore(rdb redis.UniversalClient) *OTPStore {
	return &OTPStore{rdb: rdb}
}

// NewClient creates a Redis client for the given address.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func key(email string) string { return keyPrefix + email }

// Upsert replaces the challenge for c.Email and sets the key to expire at
// c.ExpiresAt, so Redis evicts stale challenges on its own.
func (s *OTPStore) Upsert(ctx context.Context, c *domain.OTPChallenge) error {
	k := key(c.Email)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			"code", c.Code,
			"expires_at", c.ExpiresAt.UnixMilli(),
			"verified", "0",
		)
		pipe.PExpireAt(ctx, k, c.ExpiresAt)
		return nil
	})
	if err != nil {
		return fmt.Errorf("upsert otp challenge: %w: %w", domain.ErrStore, err)
	}
	return nil
}

func (s *OTPStore) Get(ctx context.Context, email string) (*domain.OTPChallenge, error) {
	res := s.rdb.HGetAll(ctx, key(email))
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("get otp challenge: %w: %w", domain.ErrStore, err)
	}
	if len(res.Val()) == 0 {
		return nil, fmt.Errorf("otp challenge: %w", domain.ErrNotFound)
	}
	var h challengeHash
	if err := res.Scan(&h); err != nil {
		return nil, fmt.Errorf("scan otp challenge: %w", err)
	}
	return &domain.OTPChallenge{
		Email:     email,
		Code:      h.Code,
		ExpiresAt: time.UnixMilli(h.ExpiresAt).UTC(),
		Verified:  h.Verified,
	}, nil
}

// MarkVerified flags the challenge only if code is still the current one.
func (s *OTPStore) MarkVerified(ctx context.Context, email, code string) error {
	n, err := markVerified.Run(ctx, s.rdb, []string{key(email)}, code).Int()
	if err != nil {
		return fmt.Errorf("mark otp verified: %w: %w", domain.ErrStore, err)
	}
	if n == 0 {
		return fmt.Errorf("otp challenge superseded: %w", domain.ErrNotFound)
	}
	return nil
}
