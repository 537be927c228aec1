package otp

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"html/template"
	"log/slog"
	"math/big"
	"time"

	"github.com/go-marketplace-identity/internal/domain"
	"github.com/jonboulle/clockwork"
)

const (
	codeMin = 100000
	codeMax = 999999

	DefaultTTL = 10 * time.Minute
)

// ChallengeStore keeps one challenge per email.
type ChallengeStore interface {
	Upsert(ctx context.Context, c *domain.OTPChallenge) error
	Get(ctx context.Context, email string) (*domain.OTPChallenge, error)
	MarkVerified(ctx context.Context, email, code string) error
}

type Mailer interface {
	SendEmail(ctx context.Context, to, subject, htmlBody string) error
}

// CodeGenerator returns a fresh 6-digit code.
type CodeGenerator func() (string, error)

type Service interface {
	Issue(ctx context.Context, email, name string) error
}

type ServiceDeps struct {
	Store   ChallengeStore
	Mailer  Mailer
	Clock   clockwork.Clock
	TTL     time.Duration
	Brand   string
	NewCode CodeGenerator // defaults to RandomCode
}

type service struct {
	store   ChallengeStore
	mailer  Mailer
	clock   clockwork.Clock
	ttl     time.Duration
	brand   string
	newCode CodeGenerator
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		store:   deps.Store,
		mailer:  deps.Mailer,
		clock:   deps.Clock,
		ttl:     deps.TTL,
		brand:   deps.Brand,
		newCode: deps.NewCode,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	if s.newCode == nil {
		s.newCode = RandomCode
	}
	return s
}

// Issue replaces any outstanding challenge for email and mails the new code.
// The challenge is persisted before delivery and stays valid if delivery fails.
func (s *service) Issue(ctx context.Context, email, name string) error {
	code, err := s.newCode()
	if err != nil {
		return fmt.Errorf("generate otp: %w", err)
	}
	c := &domain.OTPChallenge{
		Email:     email,
		Code:      code,
		ExpiresAt: s.clock.Now().Add(s.ttl).UTC(),
	}
	if err := s.store.Upsert(ctx, c); err != nil {
		return err
	}

	body, err := renderEmail(emailData{Brand: s.brand, Name: name, Code: code, ValidFor: minutes(s.ttl)})
	if err != nil {
		return fmt.Errorf("render otp email: %w", err)
	}
	if err := s.mailer.SendEmail(ctx, email, "Verify your email address", body); err != nil {
		slog.Warn("otp delivery failed", "email", email, "err", err)
		return fmt.Errorf("send otp: %w: %w", domain.ErrDelivery, err)
	}
	return nil
}

// RandomCode draws uniformly from [100000, 999999].
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}

type emailData struct {
	Brand    string
	Name     string
	Code     string
	ValidFor int
}

var emailTmpl = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Brand}} email verification</title>
</head>
<body>
  <div style="font-family: Roboto, sans-serif; background: #fffbea; border-radius: 10px; padding: 20px 0 0 0; margin: 10px;">
    <div style="padding: 0 15px;">
      <h3 style="font-size: 24px;">Hello, {{.Name}}</h3>
      <h3 style="font-size: 24px;">Verify Your Email Address</h3>
      <p style="font-size: 18px;">Enter the following code to complete your {{.Brand}} signup:</p>
      <h2 style="font-size: 35px; text-align: center; color: red;"><span style="background: #ffecca; padding: 10px; border-radius: 10px;">{{.Code}}</span></h2>
    </div>
    <div style="height: 1px; background: #c8c8c8;"></div>
    <div style="padding: 0 15px;">
      <p style="font-size: 18px;">The verification code is valid for {{.ValidFor}} minutes. Keep it confidential and do not share it with anyone.</p>
      <p style="font-size: 18px;">Thanks,<br>The {{.Brand}} team</p>
    </div>
  </div>
</body>
</html>
`))

func renderEmail(d emailData) (string, error) {
	var buf bytes.Buffer
	if err := emailTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
