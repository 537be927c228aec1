package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-marketplace-identity/internal/application/otp"
	"github.com/go-marketplace-identity/internal/application/registration"
	"github.com/go-marketplace-identity/internal/application/signin"
	"github.com/go-marketplace-identity/internal/config"
	"github.com/go-marketplace-identity/internal/transport/http/handler"
	appmiddleware "github.com/go-marketplace-identity/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	otpRL := appmiddleware.NewRateLimiter(rate.Limit(cfg.OTPRateLimit), cfg.OTPRateBurst, cfg.TrustedProxies...)
	// 5 requests/second, burst of 10 for the remaining public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10, cfg.TrustedProxies...)

	otpSvc := otp.NewService(otp.ServiceDeps{
		Store:  deps.Challenges,
		Mailer: deps.Mailer,
		Clock:  deps.Clock,
		TTL:    cfg.OTPTTL,
		Brand:  cfg.MailBrand,
	})
	regSvc := registration.NewService(registration.ServiceDeps{
		Users:          deps.UserRepo,
		Challenges:     deps.Challenges,
		Provider:       deps.Provider,
		Alerter:        deps.Alerter,
		Clock:          deps.Clock,
		IDAttempts:     cfg.RegistrationIDAttempts,
		DefaultPicture: cfg.DefaultProfilePicture,
	})
	signinSvc := signin.NewService(signin.ServiceDeps{Users: deps.UserRepo, Verifier: deps.Provider})

	healthH := handler.NewHealthHandler(deps.Checks...)
	otpH := handler.NewOTPHandler(otpSvc)
	regH := handler.NewRegistrationHandler(regSvc)
	signinH := handler.NewSignInHandler(signinSvc)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)

		r.Route("/users", func(r chi.Router) {
			r.With(otpRL.Limit).Post("/send-email-otp", otpH.SendEmailOTP)

			r.Group(func(r chi.Router) {
				r.Use(sensitiveRL.Limit)
				r.Post("/signup-with-email", regH.SignUpWithEmail)
				r.Post("/signup-with-phone", regH.SignUpWithPhone)
				r.Post("/signin-with-google", regH.SignInWithGoogle)
				r.Post("/signin-with-email", signinH.SignInWithEmail)
				r.Post("/signin-with-phone", signinH.SignInWithPhone)
			})
		})

		if deps.DevTokens != nil {
			devH := handler.NewDevTokenHandler(deps.DevTokens)
			r.Route("/dev", func(r chi.Router) {
				r.Use(sensitiveRL.Limit)
				r.Post("/identity-token", devH.IssueToken)
				r.Post("/password-sign-in", devH.PasswordSignIn)
			})
		}
	})

	return r
}
