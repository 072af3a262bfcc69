package http

import (
	"github.com/openmca/auth-api/internal/application/auth"
	"github.com/openmca/auth-api/internal/infrastructure/otpstore"
)

// Deps holds all infrastructure dependencies for the router. Everything is
// an interface so tests can swap in mocks and main can swap backends (the
// OTP store in particular runs on memory or Redis depending on config).
type Deps struct {
	UserRepo    auth.UserStore
	SessionRepo auth.SessionStore
	OTPStore    otpstore.Store
	SMSSender   auth.SMSSender
	Classifier  auth.PhoneClassifier
}
