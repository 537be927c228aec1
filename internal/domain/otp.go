package domain

import "time"

// OTPChallenge is the single pending email challenge. A new issuance replaces
// the previous one and resets Verified.
type OTPChallenge struct {
	Email     string    `json:"email" dynamodbav:"email"`
	Code      string    `json:"code" dynamodbav:"code"`
	ExpiresAt time.Time `json:"expires_at" dynamodbav:"expires_at"`
	Verified  bool      `json:"verified" dynamodbav:"verified"`
}

// Expired reports whether now is past the challenge expiry.
func (c *OTPChallenge) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
