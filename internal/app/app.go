// Package app wires the gateway together and runs it.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/config"
	"github.com/krishna-ananth-vk/potholed/internal/constituency"
	"github.com/krishna-ananth-vk/potholed/internal/database"
	"github.com/krishna-ananth-vk/potholed/internal/handler"
	"github.com/krishna-ananth-vk/potholed/internal/identity"
	"github.com/krishna-ananth-vk/potholed/internal/leaderboard"
	"github.com/krishna-ananth-vk/potholed/internal/logger"
	"github.com/krishna-ananth-vk/potholed/internal/metrics"
	"github.com/krishna-ananth-vk/potholed/internal/middleware"
	"github.com/krishna-ananth-vk/potholed/internal/profile"
	"github.com/krishna-ananth-vk/potholed/internal/report"
	"github.com/krishna-ananth-vk/potholed/internal/repository"
	"github.com/krishna-ananth-vk/potholed/internal/security"
	"github.com/krishna-ananth-vk/potholed/internal/session"
	"github.com/krishna-ananth-vk/potholed/internal/user"
)

// Init initializes the application: JSON structured logging plus the
// configuration from environment variables. A non-nil writer redirects
// log output, which the tests use.
func Init(w io.Writer) (*config.Config, error) {
	// 1. Logging first so config errors are logged structurally
	logger.SetupDefault(w)

	// 2. Configuration from the environment
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run is the application entry point. It parses the subcommand from the
// arguments and starts the matching mode. Pass os.Args[1:] as args.
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck skips full initialization
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// runServe starts the API gateway. It opens the database, wires every
// dependency, and serves HTTP until SIGINT or SIGTERM triggers a
// graceful shutdown.
func runServe(cfg *config.Config) error {
	// 1. Database
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	slog.Info("database connection established")

	// 2. Repositories
	sessionRepo := repository.NewPostgresSessionRepo(db)

	// 3. Metrics
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 4. Identity service
	provider := identity.NewRESTProvider(identity.RESTConfig{
		BaseURL: cfg.IdentityBaseURL,
		APIKey:  cfg.IdentityAPIKey,
	})

	var google handler.GoogleFlowInterface
	if cfg.GoogleSignInEnabled() {
		google = identity.NewGoogleFlow(identity.GoogleFlowConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	} else {
		slog.Info("Google sign-in disabled: client credentials not configured")
	}

	// 5. Reporting backend client; mock when no URL is configured
	var backendClient backend.Client
	if cfg.BackendBaseURL != "" {
		backendClient = backend.NewHTTPClient(backend.HTTPConfig{
			BaseURL: cfg.BackendBaseURL,
		})
		slog.Info("using reporting backend", slog.String("base_url", cfg.BackendBaseURL))
	} else {
		backendClient = backend.NewMockClient(cfg.MockBackendDelay)
		slog.Warn("BACKEND_BASE_URL not set, using the built-in mock backend")
	}

	// 6. Profile fetcher and session manager
	fetcher := profile.NewFetcher(backendClient, profile.Config{
		Timeout: cfg.ProfileFetchTimeout,
		Retries: cfg.ProfileFetchRetries,
		Backoff: cfg.ProfileFetchBackoff,
	}, collector)

	manager := session.NewManager(provider, fetcher, sessionRepo, session.ManagerConfig{
		SessionMaxAge:        cfg.SessionMaxAge,
		LogoutOnFetchFailure: cfg.LogoutOnFetchFailure,
	}, collector)
	defer manager.Close()

	// 7. Security services
	photoGuard := security.NewPhotoURLGuard()
	sanitizer := security.NewTextSanitizer()

	// 8. Domain services
	reportService := report.NewService(backendClient, sanitizer, collector, cfg.MaxImageBytes, slog.Default())
	userService := user.NewService(backendClient, sanitizer, photoGuard, slog.Default())
	leaderboardService := leaderboard.NewService(backendClient, slog.Default())
	constituencyService := constituency.NewService(backendClient, slog.Default())

	// 9. Router
	rateLimiterCfg := middleware.DefaultRateLimiterConfig()
	rateLimiterCfg.GeneralRate = rate.Limit(float64(cfg.RateLimitGeneral) / 60.0)
	rateLimiterCfg.GeneralBurst = cfg.RateLimitGeneral
	rateLimiterCfg.ReportRate = rate.Limit(float64(cfg.RateLimitReport) / 60.0)
	rateLimiterCfg.ReportBurst = cfg.RateLimitReport

	rateLimiter := middleware.NewRateLimiter(rateLimiterCfg)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		CSRFConfig: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		GuardCollector: collector,
		LoginPath:      cfg.LoginPath,

		Manager:       manager,
		StoreFinder:   manager,
		Google:        google,
		Resetter:      provider,
		AuthCollector: collector,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			LoginPath:     cfg.LoginPath,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},

		ReportService:       reportService,
		UserService:         userService,
		LeaderboardService:  leaderboardService,
		ConstituencyService: constituencyService,
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(registry))
	mux.Handle("/", handler.NewRouter(deps))

	// 10. HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API gateway starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	// Expired sessions are swept in the background
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go sweepExpiredSessions(sweepCtx, sessionRepo)

	<-stop
	slog.Info("shutting down API gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API gateway stopped gracefully")
	return nil
}

// sweepExpiredSessions deletes expired session records hourly.
func sweepExpiredSessions(ctx context.Context, sessions repository.SessionRepository) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := sessions.DeleteExpired(ctx)
			if err != nil {
				slog.Error("session sweep failed", slog.String("error", err.Error()))
				continue
			}
			if deleted > 0 {
				slog.Info("expired sessions removed", slog.Int64("count", deleted))
			}
		}
	}
}

// runMigrate applies every pending database migration in order.
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runHealthcheck probes the running gateway.
// Used as the Docker health check subcommand in distroless images.
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/healthz", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL masks the credentials in a database URL.
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
