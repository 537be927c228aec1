// Package jwtinfra is a self-contained identity provider for development and
// tests. It signs RS256 identity tokens and keeps provider accounts in memory.
// Outside production the router exposes Mint and CheckPassword under /v1/dev
// so a local client can obtain phone, Google and email tokens.
package jwtinfra

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const issuer = "local-idp"

// Claims holds the identity token payload. Subject carries the external id.
type Claims struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone_number,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

type account struct {
	email        string
	passwordHash []byte
	displayName  string
	photoURL     string
}

// Provider signs and verifies RS256 identity tokens and owns local accounts.
type Provider struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	expiry     time.Duration

	mu       sync.RWMutex
	accounts map[string]account // by external id
	emails   map[string]string  // email -> external id
}

func NewProvider(cfg *config.Config) (*Provider, error) {
	privBytes, err := os.ReadFile(cfg.LocalIDPPrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read private key: %w", err)
	}
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM(privBytes)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	pubBytes, err := os.ReadFile(cfg.LocalIDPPublicKeyPath)
	if err != nil {
		return nil, fmt.Errorf("read public key: %w", err)
	}
	pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pubBytes)
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Provider{
		privateKey: privKey,
		publicKey:  pubKey,
		expiry:     cfg.LocalIDPTokenExpiry,
		accounts:   make(map[string]account),
		emails:     make(map[string]string),
	}, nil
}

// Mint issues an identity token for the given claims, as a client SDK would
// after completing phone or Google sign-in.
func (p *Provider) Mint(c domain.IdentityClaims) (string, error) {
	now := time.Now()
	claims := Claims{
		Email:   c.Email,
		Phone:   c.Phone,
		Name:    c.Name,
		Picture: c.Picture,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   c.ExternalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	return token.SignedString(p.privateKey)
}

func (p *Provider) VerifyToken(_ context.Context, tokenStr string) (*domain.IdentityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return p.publicKey, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, fmt.Errorf("verify token: %w: %v", domain.ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("invalid token claims: %w", domain.ErrInvalidToken)
	}
	return &domain.IdentityClaims{
		ExternalID: claims.Subject,
		Email:      claims.Email,
		Phone:      claims.Phone,
		Name:       claims.Name,
		Picture:    claims.Picture,
	}, nil
}

func (p *Provider) CreateAccount(_ context.Context, a domain.ProviderAccount) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(a.Password), bcrypt.DefaultCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return fmt.Errorf("hash password: %w: %w", domain.ErrBadRequest, err)
	}
	if err != nil {
		return fmt.Errorf("hash password: %w: %w", domain.ErrProvider, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[a.ExternalID]; ok {
		return fmt.Errorf("uid %s already exists: %w", a.ExternalID, domain.ErrProvider)
	}
	if a.Email != "" {
		if _, ok := p.emails[a.Email]; ok {
			return fmt.Errorf("email %s already exists: %w", a.Email, domain.ErrProvider)
		}
		p.emails[a.Email] = a.ExternalID
	}
	p.accounts[a.ExternalID] = account{
		email:        a.Email,
		passwordHash: hash,
		displayName:  a.DisplayName,
		photoURL:     a.PhotoURL,
	}
	return nil
}

// DeleteAccount removes the account. Deleting a missing account is a no-op.
func (p *Provider) DeleteAccount(_ context.Context, externalID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	acc, ok := p.accounts[externalID]
	if !ok {
		return nil
	}
	delete(p.accounts, externalID)
	if acc.email != "" {
		delete(p.emails, acc.email)
	}
	return nil
}

// CheckPassword reports whether password matches the account registered for email.
func (p *Provider) CheckPassword(email, password string) (externalID string, ok bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	extID, found := p.emails[email]
	if !found {
		return "", false
	}
	if bcrypt.CompareHashAndPassword(p.accounts[extID].passwordHash, []byte(password)) != nil {
		return "", false
	}
	return extID, true
}
