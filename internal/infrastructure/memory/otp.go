// Package memory provides an in-process OTP challenge store for single-node
// deployments and tests.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-marketplace-identity/internal/domain"
	"github.com/patrickmn/go-cache"
)

// OTPStore keeps challenges in a go-cache whose janitor sweeps expired
// entries every cleanupInterval.
type OTPStore struct {
	mu    sync.Mutex // serialises read-modify-write in MarkVerified
	cache *cache.Cache
}

func NewOTPStore(cleanupInterval time.Duration) *OTPStore {
	return &OTPStore{cache: cache.New(cache.NoExpiration, cleanupInterval)}
}

func (s *OTPStore) Upsert(_ context.Context, c *domain.OTPChallenge) error {
	cp := *c
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Set(cp.Email, &cp, ttlUntil(cp.ExpiresAt))
	return nil
}

func (s *OTPStore) Get(_ context.Context, email string) (*domain.OTPChallenge, error) {
	v, ok := s.cache.Get(email)
	if !ok {
		return nil, fmt.Errorf("otp challenge: %w", domain.ErrNotFound)
	}
	cp := *v.(*domain.OTPChallenge)
	return &cp, nil
}

func (s *OTPStore) MarkVerified(_ context.Context, email, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, exp, ok := s.cache.GetWithExpiration(email)
	if !ok || v.(*domain.OTPChallenge).Code != code {
		return fmt.Errorf("otp challenge superseded: %w", domain.ErrNotFound)
	}
	cp := *v.(*domain.OTPChallenge)
	cp.Verified = true
	s.cache.Set(email, &cp, ttlUntil(exp))
	return nil
}

// ttlUntil converts an absolute expiry into a go-cache duration. A zero time
// means the entry never expires.
func ttlUntil(at time.Time) time.Duration {
	if at.IsZero() {
		return cache.NoExpiration
	}
	if d := time.Until(at); d > 0 {
		return d
	}
	return time.Millisecond // already past; evicted on the next read
}
