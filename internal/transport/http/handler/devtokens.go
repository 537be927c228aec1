package handler

import (
	"net/http"

	"github.com/go-marketplace-identity/internal/domain"
)

// TokenIssuer is implemented by the local identity provider.
type TokenIssuer interface {
	Mint(c domain.IdentityClaims) (string, error)
	CheckPassword(email, password string) (externalID string, ok bool)
}

// TokenEnvelope carries a freshly signed identity token.
type TokenEnvelope struct {
	Token string `json:"token"`
}

// DevTokenHandler lets a development client obtain identity tokens from the
// local provider. It is only mounted when that provider is active.
type DevTokenHandler struct {
	issuer TokenIssuer
}

func NewDevTokenHandler(issuer TokenIssuer) *DevTokenHandler {
	return &DevTokenHandler{issuer: issuer}
}

func (h *DevTokenHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req domain.DevTokenRequest
	if !decode(w, r, &req) {
		return
	}
	h.mint(w, r, domain.IdentityClaims{
		ExternalID: req.ExternalID,
		Email:      req.Email,
		Phone:      req.Phone,
		Name:       req.Name,
		Picture:    req.Picture,
	})
}

// PasswordSignIn returns a token for an email account created during registration.
func (h *DevTokenHandler) PasswordSignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.DevPasswordSignInRequest
	if !decode(w, r, &req) {
		return
	}
	externalID, ok := h.issuer.CheckPassword(req.Email, req.Password)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, MessageEnvelope{Error: "invalid email or password", ErrorCode: "invalid_credentials"})
		return
	}
	h.mint(w, r, domain.IdentityClaims{ExternalID: externalID, Email: req.Email})
}

func (h *DevTokenHandler) mint(w http.ResponseWriter, r *http.Request, c domain.IdentityClaims) {
	tok, err := h.issuer.Mint(c)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenEnvelope{Token: tok})
}
