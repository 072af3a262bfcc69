package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openmca/auth-api/internal/domain"
)

// SuccessEnvelope is the acknowledgment body for auth operations. No code,
// token, or secret is ever returned in a body; the session travels only in
// the cookie.
type SuccessEnvelope struct {
	Success bool `json:"success"`
}

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UserEnvelope wraps whoami responses.
type UserEnvelope struct {
	User  *domain.User `json:"user,omitempty"`
	Error string       `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// httpError maps domain sentinel errors to HTTP statuses at the handler
// boundary. Anything unrecognized is a generic server error with the
// underlying message.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidPhone):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
