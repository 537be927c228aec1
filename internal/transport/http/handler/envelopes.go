package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-marketplace-identity/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

// UserEnvelope wraps registration and sign-in responses.
type UserEnvelope struct {
	Message string       `json:"message,omitempty"`
	Outcome string       `json:"outcome,omitempty"`
	User    *domain.User `json:"user,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler should continue.
func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validateStruct(dst); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, MessageEnvelope{Error: err.Error(), ErrorCode: "validation_failed"})
		return false
	}
	return true
}
