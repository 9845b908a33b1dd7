package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application-wide configuration. It is loaded once from
// environment variables at startup and treated as immutable.
type Config struct {
	// Database
	DatabaseURL string

	// Identity service
	IdentityBaseURL string
	IdentityAPIKey  string

	// Reporting backend. Empty means the built-in mock backend is used.
	BackendBaseURL   string
	MockBackendDelay time.Duration

	// Google federated sign-in (optional; disabled when unset)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// Session
	SessionMaxAge        int
	LogoutOnFetchFailure bool

	// Profile fetch
	ProfileFetchTimeout time.Duration
	ProfileFetchRetries int
	ProfileFetchBackoff time.Duration

	// Report submission
	MaxImageBytes int64

	// Rate limits (requests per minute per session)
	RateLimitGeneral int
	RateLimitReport  int

	// Server
	ServerPort string
	BaseURL    string
	LoginPath  string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load reads the Config from environment variables.
// Returns an error when a required variable is missing.
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.IdentityBaseURL = os.Getenv("IDENTITY_BASE_URL")
	if cfg.IdentityBaseURL == "" {
		missing = append(missing, "IDENTITY_BASE_URL")
	}

	cfg.IdentityAPIKey = os.Getenv("IDENTITY_API_KEY")
	if cfg.IdentityAPIKey == "" {
		missing = append(missing, "IDENTITY_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.BackendBaseURL = os.Getenv("BACKEND_BASE_URL")
	cfg.MockBackendDelay = getEnvDuration("MOCK_BACKEND_DELAY", 500*time.Millisecond)

	cfg.GoogleClientID = os.Getenv("GOOGLE_CLIENT_ID")
	cfg.GoogleClientSecret = os.Getenv("GOOGLE_CLIENT_SECRET")
	cfg.GoogleRedirectURL = os.Getenv("GOOGLE_REDIRECT_URL")

	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.LogoutOnFetchFailure = getEnvBool("LOGOUT_ON_FETCH_FAILURE", false)
	cfg.ProfileFetchTimeout = getEnvDuration("PROFILE_FETCH_TIMEOUT", 5*time.Second)
	cfg.ProfileFetchRetries = getEnvInt("PROFILE_FETCH_RETRIES", 3)
	cfg.ProfileFetchBackoff = getEnvDuration("PROFILE_FETCH_BACKOFF", 500*time.Millisecond)
	cfg.MaxImageBytes = getEnvInt64("MAX_IMAGE_BYTES", 5242880)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitReport = getEnvInt("RATE_LIMIT_REPORT", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.LoginPath = getEnvString("LOGIN_PATH", "/login")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	return cfg, nil
}

// GoogleSignInEnabled reports whether the Google federated flow is configured.
func (c *Config) GoogleSignInEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURL != ""
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
