package jwtinfra

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeKeys(t *testing.T, key *rsa.PrivateKey) (privPath, pubPath string) {
	t.Helper()
	dir := t.TempDir()

	privPEM := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	privPath = filepath.Join(dir, "private.pem")
	pubPath = filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, privPEM, 0o600))
	require.NoError(t, os.WriteFile(pubPath, pubPEM, 0o600))
	return privPath, pubPath
}

func newTestProvider(t *testing.T) (*Provider, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	priv, pub := writeKeys(t, key)
	p, err := NewProvider(&config.Config{
		LocalIDPPrivateKeyPath: priv,
		LocalIDPPublicKeyPath:  pub,
		LocalIDPTokenExpiry:    time.Hour,
	})
	require.NoError(t, err)
	return p, key
}

func TestMintVerify_RoundTrip(t *testing.T) {
	p, _ := newTestProvider(t)
	tok, err := p.Mint(domain.IdentityClaims{ExternalID: "uid-1", Phone: "+15550001", Name: "Ada"})
	require.NoError(t, err)

	claims, err := p.VerifyToken(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.ExternalID)
	assert.Equal(t, "+15550001", claims.Phone)
	assert.Equal(t, "Ada", claims.Name)
	assert.Empty(t, claims.Email)
}

func TestVerifyToken_Garbage(t *testing.T) {
	p, _ := newTestProvider(t)
	_, err := p.VerifyToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyToken_Expired(t *testing.T) {
	p, key := newTestProvider(t)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "uid-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	require.NoError(t, err)

	_, err = p.VerifyToken(context.Background(), tok)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyToken_OtherKey(t *testing.T) {
	p, _ := newTestProvider(t)
	other, _ := newTestProvider(t)
	tok, err := other.Mint(domain.IdentityClaims{ExternalID: "uid-1"})
	require.NoError(t, err)

	_, err = p.VerifyToken(context.Background(), tok)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestVerifyToken_MissingSubject(t *testing.T) {
	p, _ := newTestProvider(t)
	tok, err := p.Mint(domain.IdentityClaims{Email: "a@x.com"})
	require.NoError(t, err)

	_, err = p.VerifyToken(context.Background(), tok)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestCreateAccount_Duplicates(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	require.NoError(t, p.CreateAccount(ctx, domain.ProviderAccount{ExternalID: "abc123", Email: "a@x.com", Password: "secret1"}))

	assert.ErrorIs(t, p.CreateAccount(ctx, domain.ProviderAccount{ExternalID: "abc123", Email: "b@x.com"}), domain.ErrProvider)
	assert.ErrorIs(t, p.CreateAccount(ctx, domain.ProviderAccount{ExternalID: "zzz999", Email: "a@x.com"}), domain.ErrProvider)
}

func TestCreateAccount_PasswordTooLong(t *testing.T) {
	p, _ := newTestProvider(t)

	err := p.CreateAccount(context.Background(), domain.ProviderAccount{ExternalID: "abc123", Email: "a@x.com", Password: strings.Repeat("é", 72)})

	assert.ErrorIs(t, err, domain.ErrBadRequest)
	assert.NotErrorIs(t, err, domain.ErrProvider)
	_, ok := p.CheckPassword("a@x.com", strings.Repeat("é", 72))
	assert.False(t, ok)
}

func TestCheckPassword(t *testing.T) {
	p, _ := newTestProvider(t)
	require.NoError(t, p.CreateAccount(context.Background(), domain.ProviderAccount{ExternalID: "abc123", Email: "a@x.com", Password: "secret1"}))

	id, ok := p.CheckPassword("a@x.com", "secret1")
	assert.True(t, ok)
	assert.Equal(t, "abc123", id)

	_, ok = p.CheckPassword("a@x.com", "wrong")
	assert.False(t, ok)
}

func TestDeleteAccount_Idempotent(t *testing.T) {
	p, _ := newTestProvider(t)
	ctx := context.Background()
	require.NoError(t, p.CreateAccount(ctx, domain.ProviderAccount{ExternalID: "abc123", Email: "a@x.com", Password: "secret1"}))

	require.NoError(t, p.DeleteAccount(ctx, "abc123"))
	require.NoError(t, p.DeleteAccount(ctx, "abc123"))

	// email is free again
	require.NoError(t, p.CreateAccount(ctx, domain.ProviderAccount{ExternalID: "def456", Email: "a@x.com", Password: "secret1"}))
}
