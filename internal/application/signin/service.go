package signin

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-marketplace-identity/internal/domain"
)

type userStore interface {
	Get(ctx context.Context, externalID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type tokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*domain.IdentityClaims, error)
}

// Service resolves which record a sign-in refers to. Credentials are checked
// by the identity provider when it issues tokens, not here.
type Service interface {
	SignInWithEmail(ctx context.Context, email string) (*domain.User, error)
	SignInWithPhone(ctx context.Context, token string) (*domain.User, error)
}

type ServiceDeps struct {
	Users    userStore
	Verifier tokenVerifier
}

type service struct {
	users    userStore
	verifier tokenVerifier
}

func NewService(deps ServiceDeps) Service {
	return &service{users: deps.Users, verifier: deps.Verifier}
}

func (s *service) SignInWithEmail(ctx context.Context, email string) (*domain.User, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, notRegistered(err, email)
	}
	if u.RegistrationMethod != domain.MethodEmail {
		return nil, &domain.WrongMethodError{Registered: u.RegistrationMethod}
	}
	return u, nil
}

func (s *service) SignInWithPhone(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.verifier.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, claims.ExternalID)
	if err != nil {
		return nil, notRegistered(err, claims.ExternalID)
	}
	if u.RegistrationMethod != domain.MethodPhone {
		return nil, &domain.WrongMethodError{Registered: u.RegistrationMethod}
	}
	return u, nil
}

func notRegistered(err error, who string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s: %w", who, domain.ErrNotRegistered)
	}
	return err
}
