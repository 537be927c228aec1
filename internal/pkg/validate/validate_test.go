package validate

import (
	"strings"
	"testing"

	"github.com/go-marketplace-identity/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_Valid(t *testing.T) {
	err := Struct(domain.EmailSignUpRequest{
		Email: "a@x.com", OTP: "123456", Name: "Alice", Password: "secret1",
	})
	assert.NoError(t, err)
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(domain.EmailSignUpRequest{
		Email: "not-an-email", OTP: "12ab56", Name: "Alice", Password: "secret1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'email' failed 'email'")
	assert.Contains(t, err.Error(), "field 'otp' failed 'numeric'")
}

func TestStruct_IncludesParam(t *testing.T) {
	err := Struct(domain.EmailSignUpRequest{
		Email: "a@x.com", OTP: "1234", Name: "Alice", Password: "secret1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'otp' failed 'len=6'")
}

func TestStruct_PasswordMaxBytes(t *testing.T) {
	req := domain.PhoneSignUpRequest{Token: "tok", Name: "Bob", Password: strings.Repeat("é", 72)}
	err := Struct(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "field 'password' failed 'maxbytes=72'")

	req.Password = strings.Repeat("é", 36)
	assert.NoError(t, Struct(req))
}
