package handler

import (
	"net/http"

	"github.com/go-marketplace-identity/internal/application/registration"
	"github.com/go-marketplace-identity/internal/domain"
)

// RegistrationHandler handles the three signup paths.
type RegistrationHandler struct {
	svc registration.Service
}

func NewRegistrationHandler(svc registration.Service) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

func (h *RegistrationHandler) SignUpWithEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailSignUpRequest
	if !decode(w, r, &req) {
		return
	}
	reg, err := h.svc.RegisterWithEmail(r.Context(), req.Email, req.OTP, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRegistration(w, reg)
}

func (h *RegistrationHandler) SignUpWithPhone(w http.ResponseWriter, r *http.Request) {
	var req domain.PhoneSignUpRequest
	if !decode(w, r, &req) {
		return
	}
	reg, err := h.svc.RegisterWithPhone(r.Context(), req.Token, req.Name, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRegistration(w, reg)
}

func (h *RegistrationHandler) SignInWithGoogle(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if !decode(w, r, &req) {
		return
	}
	reg, err := h.svc.RegisterWithGoogle(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeRegistration(w, reg)
}

func writeRegistration(w http.ResponseWriter, reg *registration.Registration) {
	switch reg.Outcome {
	case registration.OutcomeCreated:
		writeJSON(w, http.StatusCreated, UserEnvelope{Message: "user registered", Outcome: string(reg.Outcome), User: reg.User})
	case registration.OutcomeAlreadyRegistered:
		writeJSON(w, http.StatusOK, UserEnvelope{Message: "user already registered", Outcome: string(reg.Outcome), User: reg.User})
	default:
		writeJSON(w, http.StatusOK, UserEnvelope{Message: "user already signed in", Outcome: string(reg.Outcome), User: reg.User})
	}
}
