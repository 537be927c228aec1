package http

import (
	"context"

	"github.com/go-marketplace-identity/internal/application/otp"
	"github.com/go-marketplace-identity/internal/application/registration"
	"github.com/go-marketplace-identity/internal/domain"
	"github.com/go-marketplace-identity/internal/transport/http/handler"
	"github.com/jonboulle/clockwork"
)

// UserRepository is the minimal interface the router requires from the record store.
type UserRepository interface {
	Get(ctx context.Context, externalID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	Delete(ctx context.Context, externalID string) error
}

// IdentityProvider verifies identity tokens and owns provider-side accounts.
type IdentityProvider interface {
	VerifyToken(ctx context.Context, token string) (*domain.IdentityClaims, error)
	CreateAccount(ctx context.Context, a domain.ProviderAccount) error
	DeleteAccount(ctx context.Context, externalID string) error
}

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	UserRepo   UserRepository
	Challenges otp.ChallengeStore
	Provider   IdentityProvider
	Mailer     otp.Mailer
	Alerter    registration.Alerter // nil disables reconciliation alerts
	Clock      clockwork.Clock
	Checks     []handler.Check
	DevTokens  handler.TokenIssuer // set only for the local provider outside production
}
