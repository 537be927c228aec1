package handler

import (
	"net/http"

	"github.com/go-marketplace-identity/internal/application/signin"
	"github.com/go-marketplace-identity/internal/domain"
)

type SignInHandler struct {
	svc signin.Service
}

func NewSignInHandler(svc signin.Service) *SignInHandler { return &SignInHandler{svc: svc} }

func (h *SignInHandler) SignInWithEmail(w http.ResponseWriter, r *http.Request) {
	var req domain.EmailSignInRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.SignInWithEmail(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func (h *SignInHandler) SignInWithPhone(w http.ResponseWriter, r *http.Request) {
	var req domain.TokenRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := h.svc.SignInWithPhone(r.Context(), req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}
