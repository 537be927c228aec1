// Package firebase adapts Firebase Authentication to the identity provider
// port used by registration.
package firebase

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/domain"
	"google.golang.org/api/option"
)

// AuthClient is the subset of *auth.Client the provider uses.
type AuthClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

var _ AuthClient = (*auth.Client)(nil)

type Provider struct {
	client AuthClient
}

// NewProvider initialises the Firebase Admin SDK. Without a credentials file
// the SDK falls back to Application Default Credentials.
func NewProvider(ctx context.Context, cfg *config.Config) (*Provider, error) {
	var opts []option.ClientOption
	if cfg.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.FirebaseCredentialsFile))
	}
	var fbCfg *fb.Config
	if cfg.FirebaseProjectID != "" {
		fbCfg = &fb.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := fb.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return NewProviderWithClient(client), nil
}

func NewProviderWithClient(client AuthClient) *Provider {
	return &Provider{client: client}
}

func (p *Provider) VerifyToken(ctx context.Context, token string) (*domain.IdentityClaims, error) {
	t, err := p.client.VerifyIDToken(ctx, token)
	if err != nil {
		if auth.IsCertificateFetchFailed(err) {
			return nil, fmt.Errorf("verify id token: %w: %w", domain.ErrProvider, err)
		}
		return nil, fmt.Errorf("verify id token: %w: %v", domain.ErrInvalidToken, err)
	}
	return &domain.IdentityClaims{
		ExternalID: t.UID,
		Email:      claim(t, "email"),
		Phone:      claim(t, "phone_number"),
		Name:       claim(t, "name"),
		Picture:    claim(t, "picture"),
	}, nil
}

func (p *Provider) CreateAccount(ctx context.Context, a domain.ProviderAccount) error {
	u := (&auth.UserToCreate{}).
		UID(a.ExternalID).
		Email(a.Email).
		Password(a.Password)
	if a.DisplayName != "" {
		u = u.DisplayName(a.DisplayName)
	}
	if a.PhotoURL != "" {
		u = u.PhotoURL(a.PhotoURL)
	}
	if _, err := p.client.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create firebase user: %w: %w", domain.ErrProvider, err)
	}
	return nil
}

// DeleteAccount removes the Firebase user. A user that no longer exists is
// treated as already deleted.
func (p *Provider) DeleteAccount(ctx context.Context, externalID string) error {
	if err := p.client.DeleteUser(ctx, externalID); err != nil {
		if auth.IsUserNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete firebase user: %w: %w", domain.ErrProvider, err)
	}
	return nil
}

func claim(t *auth.Token, name string) string {
	s, _ := t.Claims[name].(string)
	return s
}
