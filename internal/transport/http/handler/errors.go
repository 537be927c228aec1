package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-marketplace-identity/internal/domain"
	"github.com/go-marketplace-identity/internal/pkg/validate"
)

var validateStruct = validate.Struct

type errorMapping struct {
	target error
	status int
	code   string
	public string // client-facing message for 5xx; the error text stays in the logs
}

// Order matters: CompensationFailedError also unwraps to its cause, so it
// must be matched before the provider and store sentinels.
var errorMappings = []errorMapping{
	{domain.ErrCompensationFailed, http.StatusInternalServerError, "reconciliation_required", "registration failed and the account requires reconciliation"},
	{domain.ErrInvalidOrExpiredCode, http.StatusBadRequest, "invalid_or_expired_code", ""},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "invalid_token", ""},
	{domain.ErrMethodConflict, http.StatusConflict, "method_conflict", ""},
	{domain.ErrAlreadyRegistered, http.StatusConflict, "already_registered", ""},
	{domain.ErrWrongMethod, http.StatusBadRequest, "wrong_method", ""},
	{domain.ErrNotRegistered, http.StatusNotFound, "not_registered", ""},
	{domain.ErrBadRequest, http.StatusBadRequest, "bad_request", ""},
	{domain.ErrNotFound, http.StatusNotFound, "not_found", ""},
	{domain.ErrProviderAccountCreation, http.StatusBadGateway, "provider_account_creation_failed", "could not create the sign-in account"},
	{domain.ErrDelivery, http.StatusBadGateway, "delivery_failed", "could not deliver the verification email"},
	{domain.ErrIdentifierExhausted, http.StatusServiceUnavailable, "identifier_exhausted", "could not allocate a user id, try again"},
	{domain.ErrStore, http.StatusServiceUnavailable, "store_unavailable", "service temporarily unavailable"},
	{domain.ErrProvider, http.StatusServiceUnavailable, "provider_unavailable", "identity provider temporarily unavailable"},
}

var internalMapping = errorMapping{status: http.StatusInternalServerError, code: "internal", public: "internal error"}

func mappingFor(err error) errorMapping {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m
		}
	}
	return internalMapping
}

// writeServiceError maps a service error to its HTTP status and error code.
// Server-side failures are logged and answered with a fixed message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	m := mappingFor(err)
	msg := err.Error()
	if m.status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", m.status, "code", m.code, "err", err)
		msg = m.public
	}
	writeJSON(w, m.status, MessageEnvelope{Error: msg, ErrorCode: m.code})
}
