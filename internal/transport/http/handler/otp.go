package handler

import (
	"net/http"

	"github.com/go-marketplace-identity/internal/application/otp"
	"github.com/go-marketplace-identity/internal/domain"
)

// OTPHandler issues email verification codes.
type OTPHandler struct {
	svc otp.Service
}

func NewOTPHandler(svc otp.Service) *OTPHandler { return &OTPHandler{svc: svc} }

func (h *OTPHandler) SendEmailOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Issue(r.Context(), req.Email, req.Name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "OTP sent to email"})
}
