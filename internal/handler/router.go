package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/krishna-ananth-vk/potholed/internal/middleware"
)

// RouterDeps bundles the dependencies NewRouter needs.
type RouterDeps struct {
	// middleware
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig
	GuardCollector    middleware.GuardCollector
	LoginPath         string

	// sessions and auth
	Manager       SessionManagerInterface
	StoreFinder   middleware.StoreLookup
	Google        GoogleFlowInterface
	Resetter      PasswordResetter
	AuthCollector AuthCollector
	AuthConfig    AuthHandlerConfig

	// domain services
	ReportService       ReportServiceInterface
	UserService         UserServiceInterface
	LeaderboardService  LeaderboardServiceInterface
	ConstituencyService ConstituencyServiceInterface
}

// NewRouter returns a chi.Router with the full endpoint map and
// middleware chain.
//
// Middleware order on every route:
//
//	Recovery → Logging → SecurityHeaders → CORS → CSRF
//
// Guarded routes add:
//
//	Guard → RateLimit(General)
//
// Auth routes and the shell stay outside the guard: the shell must
// render for signed-out visitors, and the guard would turn a login
// request into a redirect loop.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))

	authHandler := NewAuthHandler(deps.Manager, deps.Google, deps.Resetter, deps.AuthCollector, deps.AuthConfig)
	shellHandler := NewShellHandler(deps.Manager)
	reportHandler := NewReportHandler(deps.ReportService)
	profileHandler := NewProfileHandler(deps.UserService)
	civicHandler := NewCivicHandler(deps.LeaderboardService, deps.ConstituencyService)

	// --- routes without the guard ---

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.SignUp)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.Post("/password-reset", authHandler.PasswordReset)
		r.Post("/verification/resend", authHandler.ResendVerification)

		r.Get("/google/login", authHandler.GoogleLogin)
		r.Get("/google/callback", authHandler.GoogleCallback)

		r.Method(http.MethodGet, "/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))
	})

	// The shell renders for everyone; it reports the signed-out state
	// instead of redirecting
	r.Get("/api/shell", shellHandler.State)
	r.Post("/api/shell/banner/dismiss", shellHandler.DismissBanner)

	// --- guarded routes ---
	// Middleware stack: Guard → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewGuardMiddleware(deps.StoreFinder, deps.LoginPath, deps.GuardCollector))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		r.Get("/api/me", authHandler.Me)

		r.Route("/api/profile", func(r chi.Router) {
			r.Get("/", profileHandler.View)
			r.Put("/", profileHandler.Save)
		})

		r.Route("/api/potholes", func(r chi.Router) {
			// POST gets the stricter submission limit on top
			r.With(deps.RateLimiter.ReportSubmissionMiddleware()).Post("/", reportHandler.Submit)
			r.Get("/", reportHandler.ListMine)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reportHandler.Get)
				r.Delete("/", reportHandler.Delete)
			})
		})

		r.Get("/api/leaderboard", civicHandler.Leaderboard)
		r.Get("/api/constituency", civicHandler.Constituency)
	})

	return r
}
