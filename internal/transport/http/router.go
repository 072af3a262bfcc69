package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/openmca/auth-api/internal/application/auth"
	"github.com/openmca/auth-api/internal/config"
	"github.com/openmca/auth-api/internal/transport/http/handler"
	appmiddleware "github.com/openmca/auth-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		// The session travels in a cookie, so credentialed CORS is required.
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// SMS sends are the expensive, abusable path: cfg.SendOTPLimit requests
	// per cfg.SendOTPWindow per client IP, tokens refilling evenly. Load has
	// clamped the limit to at least one; the guard here keeps a hand-built
	// Config from dividing by zero.
	sendLimit := max(1, cfg.SendOTPLimit)
	sendRL := appmiddleware.NewRateLimiter(
		rate.Every(cfg.SendOTPWindow/time.Duration(sendLimit)),
		sendLimit,
	)

	authSvc := auth.NewService(auth.Deps{
		Users:      deps.UserRepo,
		Sessions:   deps.SessionRepo,
		OTPs:       deps.OTPStore,
		SMS:        deps.SMSSender,
		Classifier: deps.Classifier,
		OTPTTL:     cfg.OTPTTL,
		SessionTTL: cfg.SessionTTL,
	})

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(authSvc, cfg.SessionTTL)

	r.Route("/auth-api", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.With(sendRL.Limit).Post("/send-otp", authH.SendOTP)
		r.Post("/verify-otp", authH.VerifyOTP)
		// /verify serves nginx auth_request; /verify-session is the same
		// check under the name the web client uses.
		r.Get("/verify", authH.VerifySession)
		r.Get("/verify-session", authH.VerifySession)
		r.Post("/logout", authH.Logout)

		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.SessionAuth(authSvc))
			r.Get("/me", authH.Me)
		})
	})

	return r
}
