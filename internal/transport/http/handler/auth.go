package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/openmca/auth-api/internal/application/auth"
	"github.com/openmca/auth-api/internal/domain"
	"github.com/openmca/auth-api/internal/pkg/validate"
	"github.com/openmca/auth-api/internal/transport/http/middleware"
)

// AuthHandler handles the OTP and session endpoints.
type AuthHandler struct {
	svc        auth.Service
	sessionTTL time.Duration
}

func NewAuthHandler(svc auth.Service, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, sessionTTL: sessionTTL}
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.SendOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.SendCode(r.Context(), req); err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sessionID, err := h.svc.VerifyCode(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	// Max-Age matches the server-side session lifetime so the browser does
	// not drop the cookie while the session is still live.
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sessionID,
		Path:     "/",
		MaxAge:   int(h.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

// VerifySession is the nginx auth_request endpoint: bare status, no body.
func (h *AuthHandler) VerifySession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifySession(r.Context(), sessionIDFromCookie(r)); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Logout always reports success: the client-visible effect of "signed out"
// holds even when the server-side delete fails or nothing was there.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context(), sessionIDFromCookie(r))
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	writeJSON(w, http.StatusOK, SuccessEnvelope{Success: true})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := middleware.SessionIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.svc.WhoAmI(r.Context(), sessionID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UserEnvelope{User: u})
}

func sessionIDFromCookie(r *http.Request) string {
	c, err := r.Cookie(middleware.SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}
