package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-marketplace-identity/internal/application/registration"
	"github.com/go-marketplace-identity/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockOTPSvc struct{ mock.Mock }

func (m *mockOTPSvc) Issue(ctx context.Context, email, name string) error {
	return m.Called(ctx, email, name).Error(0)
}

type mockRegistrationSvc struct{ mock.Mock }

func (m *mockRegistrationSvc) result(args mock.Arguments) (*registration.Registration, error) {
	if r, _ := args.Get(0).(*registration.Registration); r != nil {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockRegistrationSvc) RegisterWithEmail(ctx context.Context, email, code, name, password string) (*registration.Registration, error) {
	return m.result(m.Called(ctx, email, code, name, password))
}
func (m *mockRegistrationSvc) RegisterWithPhone(ctx context.Context, token, name, password string) (*registration.Registration, error) {
	return m.result(m.Called(ctx, token, name, password))
}
func (m *mockRegistrationSvc) RegisterWithGoogle(ctx context.Context, token string) (*registration.Registration, error) {
	return m.result(m.Called(ctx, token))
}

type mockSignInSvc struct{ mock.Mock }

func (m *mockSignInSvc) SignInWithEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSignInSvc) SignInWithPhone(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// --- helpers ---

func jsonReq(t *testing.T, target string, body interface{}) *http.Request {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) MessageEnvelope {
	t.Helper()
	var env MessageEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	return env
}

func emailSignUp() domain.EmailSignUpRequest {
	return domain.EmailSignUpRequest{Email: "a@x.com", OTP: "123456", Name: "Alice", Password: "pw1234"}
}

// --- send OTP ---

func TestSendEmailOTP_OK(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Issue", mock.Anything, "a@x.com", "Alice").Return(nil)
	rr := httptest.NewRecorder()

	NewOTPHandler(svc).SendEmailOTP(rr, jsonReq(t, "/v1/users/send-email-otp", domain.SendOTPRequest{Email: "a@x.com", Name: "Alice"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OTP sent to email", decodeEnvelope(t, rr).Message)
	svc.AssertExpectations(t)
}

func TestSendEmailOTP_InvalidBody(t *testing.T) {
	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/v1/users/send-email-otp", bytes.NewBufferString("not-json"))

	NewOTPHandler(&mockOTPSvc{}).SendEmailOTP(rr, r)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSendEmailOTP_ValidationFailure(t *testing.T) {
	svc := &mockOTPSvc{}
	rr := httptest.NewRecorder()

	NewOTPHandler(svc).SendEmailOTP(rr, jsonReq(t, "/", domain.SendOTPRequest{Email: "not-an-email"}))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Contains(t, env.Error, "field 'email' failed 'email'")
	assert.Contains(t, env.Error, "field 'name' failed 'required'")
	svc.AssertNotCalled(t, "Issue", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendEmailOTP_DeliveryFailure(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Issue", mock.Anything, "a@x.com", "Alice").Return(fmt.Errorf("send otp: %w", domain.ErrDelivery))
	rr := httptest.NewRecorder()

	NewOTPHandler(svc).SendEmailOTP(rr, jsonReq(t, "/", domain.SendOTPRequest{Email: "a@x.com", Name: "Alice"}))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "delivery_failed", decodeEnvelope(t, rr).ErrorCode)
}

// --- registration ---

func TestSignUpWithEmail_Created(t *testing.T) {
	svc := &mockRegistrationSvc{}
	u := &domain.User{ExternalID: "abc123", Email: "a@x.com", RegistrationMethod: domain.MethodEmail, Role: domain.RoleBuyer}
	svc.On("RegisterWithEmail", mock.Anything, "a@x.com", "123456", "Alice", "pw1234").
		Return(&registration.Registration{User: u, Outcome: registration.OutcomeCreated}, nil)
	rr := httptest.NewRecorder()

	NewRegistrationHandler(svc).SignUpWithEmail(rr, jsonReq(t, "/v1/users/signup-with-email", emailSignUp()))

	assert.Equal(t, http.StatusCreated, rr.Code)
	var env UserEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "created", env.Outcome)
	assert.Equal(t, "abc123", env.User.ExternalID)
	assert.NotContains(t, rr.Body.String(), "password")
}

func TestSignUpWithEmail_ValidationFailure(t *testing.T) {
	svc := &mockRegistrationSvc{}
	req := emailSignUp()
	req.OTP = "12ab"
	rr := httptest.NewRecorder()

	NewRegistrationHandler(svc).SignUpWithEmail(rr, jsonReq(t, "/", req))

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	svc.AssertNotCalled(t, "RegisterWithEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSignUpWithEmail_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid code", domain.ErrInvalidOrExpiredCode, http.StatusBadRequest, "invalid_or_expired_code"},
		{"password too long", fmt.Errorf("password exceeds 72 bytes: %w", domain.ErrBadRequest), http.StatusBadRequest, "bad_request"},
		{"already registered", domain.ErrAlreadyRegistered, http.StatusConflict, "already_registered"},
		{"provider failure", fmt.Errorf("%w: %w", domain.ErrProviderAccountCreation, domain.ErrProvider), http.StatusBadGateway, "provider_account_creation_failed"},
		{"identifier exhausted", domain.ErrIdentifierExhausted, http.StatusServiceUnavailable, "identifier_exhausted"},
		{"store down", fmt.Errorf("create user: %w", domain.ErrStore), http.StatusServiceUnavailable, "store_unavailable"},
		{"compensation failed", &domain.CompensationFailedError{ExternalID: "abc123", Cause: domain.ErrProvider, CompensationErr: domain.ErrStore}, http.StatusInternalServerError, "reconciliation_required"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockRegistrationSvc{}
			svc.On("RegisterWithEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, tc.err)
			rr := httptest.NewRecorder()

			NewRegistrationHandler(svc).SignUpWithEmail(rr, jsonReq(t, "/", emailSignUp()))

			assert.Equal(t, tc.status, rr.Code)
			assert.Equal(t, tc.code, decodeEnvelope(t, rr).ErrorCode)
		})
	}
}

func TestSignUpWithEmail_ServerErrorsHideDetails(t *testing.T) {
	leak := "operation error DynamoDB: TransactWriteItems, https response error StatusCode: 500, RequestID: XYZ"
	cases := []error{
		fmt.Errorf("%w: %s", domain.ErrProviderAccountCreation, leak),
		fmt.Errorf("%w: %s", domain.ErrStore, leak),
		fmt.Errorf("%w: %s", domain.ErrProvider, leak),
		fmt.Errorf("%w: %s", domain.ErrIdentifierExhausted, leak),
		errors.New(leak),
	}
	for _, err := range cases {
		svc := &mockRegistrationSvc{}
		svc.On("RegisterWithEmail", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, err)
		rr := httptest.NewRecorder()

		NewRegistrationHandler(svc).SignUpWithEmail(rr, jsonReq(t, "/", emailSignUp()))

		require.GreaterOrEqual(t, rr.Code, http.StatusInternalServerError)
		env := decodeEnvelope(t, rr)
		assert.NotEmpty(t, env.Error)
		assert.NotContains(t, env.Error, "DynamoDB")
		assert.NotContains(t, env.Error, "RequestID")
	}
}

func TestSendEmailOTP_DeliveryFailureHidesSMTPText(t *testing.T) {
	svc := &mockOTPSvc{}
	svc.On("Issue", mock.Anything, "a@x.com", "Alice").Return(fmt.Errorf("%w: 535 5.7.8 auth failed for smtp.internal", domain.ErrDelivery))
	rr := httptest.NewRecorder()

	NewOTPHandler(svc).SendEmailOTP(rr, jsonReq(t, "/", domain.SendOTPRequest{Email: "a@x.com", Name: "Alice"}))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Equal(t, "could not deliver the verification email", decodeEnvelope(t, rr).Error)
}

func TestSignUpWithPhone_Outcomes(t *testing.T) {
	cases := []struct {
		outcome registration.Outcome
		status  int
	}{
		{registration.OutcomeCreated, http.StatusCreated},
		{registration.OutcomeAlreadyRegistered, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(string(tc.outcome), func(t *testing.T) {
			svc := &mockRegistrationSvc{}
			svc.On("RegisterWithPhone", mock.Anything, "tok", "Bob", "pw1234").
				Return(&registration.Registration{User: &domain.User{ExternalID: "p1"}, Outcome: tc.outcome}, nil)
			rr := httptest.NewRecorder()

			NewRegistrationHandler(svc).SignUpWithPhone(rr, jsonReq(t, "/", domain.PhoneSignUpRequest{Token: "tok", Name: "Bob", Password: "pw1234"}))

			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestSignInWithGoogle_AlreadySignedIn(t *testing.T) {
	svc := &mockRegistrationSvc{}
	svc.On("RegisterWithGoogle", mock.Anything, "tok").
		Return(&registration.Registration{User: &domain.User{ExternalID: "g1"}, Outcome: registration.OutcomeAlreadySignedIn}, nil)
	rr := httptest.NewRecorder()

	NewRegistrationHandler(svc).SignInWithGoogle(rr, jsonReq(t, "/", domain.TokenRequest{Token: "tok"}))

	assert.Equal(t, http.StatusOK, rr.Code)
	var env UserEnvelope
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	assert.Equal(t, "already_signed_in", env.Outcome)
}

func TestSignInWithGoogle_MethodConflict(t *testing.T) {
	svc := &mockRegistrationSvc{}
	svc.On("RegisterWithGoogle", mock.Anything, "tok").Return(nil, &domain.MethodConflictError{Existing: domain.MethodEmail})
	rr := httptest.NewRecorder()

	NewRegistrationHandler(svc).SignInWithGoogle(rr, jsonReq(t, "/", domain.TokenRequest{Token: "tok"}))

	assert.Equal(t, http.StatusConflict, rr.Code)
	env := decodeEnvelope(t, rr)
	assert.Equal(t, "method_conflict", env.ErrorCode)
	assert.Contains(t, env.Error, "sign in with email")
}

func TestSignInWithGoogle_InvalidToken(t *testing.T) {
	svc := &mockRegistrationSvc{}
	svc.On("RegisterWithGoogle", mock.Anything, "tok").Return(nil, domain.ErrInvalidToken)
	rr := httptest.NewRecorder()

	NewRegistrationHandler(svc).SignInWithGoogle(rr, jsonReq(t, "/", domain.TokenRequest{Token: "tok"}))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

// --- sign-in ---

func TestSignInWithEmail_Responses(t *testing.T) {
	cases := []struct {
		name   string
		user   *domain.User
		err    error
		status int
	}{
		{"ok", &domain.User{ExternalID: "abc123", RegistrationMethod: domain.MethodEmail}, nil, http.StatusOK},
		{"not registered", nil, domain.ErrNotRegistered, http.StatusNotFound},
		{"wrong method", nil, &domain.WrongMethodError{Registered: domain.MethodGoogle}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockSignInSvc{}
			svc.On("SignInWithEmail", mock.Anything, "a@x.com").Return(tc.user, tc.err)
			rr := httptest.NewRecorder()

			NewSignInHandler(svc).SignInWithEmail(rr, jsonReq(t, "/", domain.EmailSignInRequest{Email: "a@x.com"}))

			assert.Equal(t, tc.status, rr.Code)
		})
	}
}

func TestSignInWithPhone_OK(t *testing.T) {
	svc := &mockSignInSvc{}
	svc.On("SignInWithPhone", mock.Anything, "tok").Return(&domain.User{ExternalID: "p1"}, nil)
	rr := httptest.NewRecorder()

	NewSignInHandler(svc).SignInWithPhone(rr, jsonReq(t, "/", domain.TokenRequest{Token: "tok"}))

	assert.Equal(t, http.StatusOK, rr.Code)
}

// --- health ---

func withAction(r *http.Request, action string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("action", action)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHealth_Actions(t *testing.T) {
	ok := Check{Name: "store", Probe: func(context.Context) error { return nil }}
	down := Check{Name: "redis", Probe: func(context.Context) error { return errors.New("refused") }}

	cases := []struct {
		name   string
		h      *HealthHandler
		action string
		status int
	}{
		{"ping", NewHealthHandler(), "ping", http.StatusOK},
		{"unknown", NewHealthHandler(), "bogus", http.StatusBadRequest},
		{"ready", NewHealthHandler(ok), "ready", http.StatusOK},
		{"not ready", NewHealthHandler(ok, down), "ready", http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tc.h.Ping(rr, withAction(httptest.NewRequest(http.MethodGet, "/", nil), tc.action))
			assert.Equal(t, tc.status, rr.Code)
		})
	}
}
