package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the rate limit settings.
type RateLimiterConfig struct {
	GeneralRate     rate.Limit    // overall API rate (req/sec)
	GeneralBurst    int           // overall API burst size
	ReportRate      rate.Limit    // report submission rate (req/sec)
	ReportBurst     int           // report submission burst size
	CleanupInterval time.Duration // interval for dropping idle entries
}

// DefaultRateLimiterConfig returns the default rate limit settings:
// 120 req/min/user overall, 10 report submissions/min/user.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(120.0 / 60.0),
		GeneralBurst:    120,
		ReportRate:      rate.Limit(10.0 / 60.0),
		ReportBurst:     10,
		CleanupInterval: 5 * time.Minute,
	}
}

// userLimiter holds one user's limiter and last access time.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter manages per-user rate limits. It provides two independent
// limits: one for the API overall and a stricter one for report
// submission.
type RateLimiter struct {
	config RateLimiterConfig

	generalMu       sync.RWMutex
	generalLimiters map[string]*userLimiter

	reportMu       sync.RWMutex
	reportLimiters map[string]*userLimiter

	stopCh chan struct{}
}

// NewRateLimiter creates a new RateLimiter and starts the background
// cleanup of idle entries.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		config:          config,
		generalLimiters: make(map[string]*userLimiter),
		reportLimiters:  make(map[string]*userLimiter),
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware returns the overall API rate limit middleware.
// The request context must carry a user ID (place it after the guard).
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateGeneralLimiter(userID)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.GeneralRate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ReportSubmissionMiddleware returns the report submission rate limit
// middleware. It is independent of the overall API limit.
func (rl *RateLimiter) ReportSubmissionMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			limiter := rl.getOrCreateReportLimiter(userID)

			if !limiter.Allow() {
				writeRateLimitResponse(w, rl.config.ReportRate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", "report_submission"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount returns the number of tracked overall limiters.
// For tests and metrics.
func (rl *RateLimiter) GeneralLimiterCount() int {
	rl.generalMu.RLock()
	defer rl.generalMu.RUnlock()
	return len(rl.generalLimiters)
}

// ReportLimiterCount returns the number of tracked report limiters.
// For tests and metrics.
func (rl *RateLimiter) ReportLimiterCount() int {
	rl.reportMu.RLock()
	defer rl.reportMu.RUnlock()
	return len(rl.reportLimiters)
}

// getOrCreateGeneralLimiter fetches or creates a user's overall limiter.
func (rl *RateLimiter) getOrCreateGeneralLimiter(userID string) *rate.Limiter {
	rl.generalMu.RLock()
	ul, exists := rl.generalLimiters[userID]
	rl.generalMu.RUnlock()

	if exists {
		rl.generalMu.Lock()
		ul.lastAccess = time.Now()
		rl.generalMu.Unlock()
		return ul.limiter
	}

	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()

	// Double check
	if ul, exists := rl.generalLimiters[userID]; exists {
		ul.lastAccess = time.Now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(rl.config.GeneralRate, rl.config.GeneralBurst)
	rl.generalLimiters[userID] = &userLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// getOrCreateReportLimiter fetches or creates a user's report limiter.
func (rl *RateLimiter) getOrCreateReportLimiter(userID string) *rate.Limiter {
	rl.reportMu.RLock()
	ul, exists := rl.reportLimiters[userID]
	rl.reportMu.RUnlock()

	if exists {
		rl.reportMu.Lock()
		ul.lastAccess = time.Now()
		rl.reportMu.Unlock()
		return ul.limiter
	}

	rl.reportMu.Lock()
	defer rl.reportMu.Unlock()

	// Double check
	if ul, exists := rl.reportLimiters[userID]; exists {
		ul.lastAccess = time.Now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(rl.config.ReportRate, rl.config.ReportBurst)
	rl.reportLimiters[userID] = &userLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}

	return limiter
}

// cleanupLoop periodically drops idle entries in the background.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup removes entries idle for more than twice the cleanup interval.
func (rl *RateLimiter) cleanup() {
	ttl := rl.config.CleanupInterval * 2

	now := time.Now()

	rl.generalMu.Lock()
	for userID, ul := range rl.generalLimiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(rl.generalLimiters, userID)
		}
	}
	rl.generalMu.Unlock()

	rl.reportMu.Lock()
	for userID, ul := range rl.reportLimiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(rl.reportLimiters, userID)
		}
	}
	rl.reportMu.Unlock()
}

// writeRateLimitResponse writes a 429 Too Many Requests response.
// Retry-After carries the estimated seconds until a token refills.
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
