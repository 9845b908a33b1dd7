package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    3,
		ReportRate:      rate.Limit(1.0 / 60.0),
		ReportBurst:     2,
		CleanupInterval: time.Hour,
	}
}

func limitedRequest(mw func(http.Handler) http.Handler, userID string) *httptest.ResponseRecorder {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	if userID != "" {
		req = req.WithContext(ContextWithStore(req.Context(), nil, "sess-1", userID))
	}
	rec := httptest.NewRecorder()
	mw(next).ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_General_BurstThenReject(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	for i := 0; i < 3; i++ {
		if rec := limitedRequest(mw, "uid-1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := limitedRequest(mw, "uid-1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status after burst = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing on 429")
	}
}

func TestRateLimiter_UsersAreIsolated(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	mw := rl.GeneralMiddleware()
	for i := 0; i < 3; i++ {
		limitedRequest(mw, "uid-1")
	}
	if rec := limitedRequest(mw, "uid-1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("uid-1 status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// Another user's budget is untouched.
	if rec := limitedRequest(mw, "uid-2"); rec.Code != http.StatusOK {
		t.Errorf("uid-2 status = %d, want %d", rec.Code, http.StatusOK)
	}

	if got := rl.GeneralLimiterCount(); got != 2 {
		t.Errorf("GeneralLimiterCount() = %d, want 2", got)
	}
}

func TestRateLimiter_ReportLimitIsIndependent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	reportMw := rl.ReportSubmissionMiddleware()
	for i := 0; i < 2; i++ {
		if rec := limitedRequest(reportMw, "uid-1"); rec.Code != http.StatusOK {
			t.Fatalf("report %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
	if rec := limitedRequest(reportMw, "uid-1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("report status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// Exhausting the report budget leaves the overall budget intact.
	if rec := limitedRequest(rl.GeneralMiddleware(), "uid-1"); rec.Code != http.StatusOK {
		t.Errorf("general status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRateLimiter_MissingUser_Unauthorized(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	if rec := limitedRequest(rl.GeneralMiddleware(), ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("general status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if rec := limitedRequest(rl.ReportSubmissionMiddleware(), ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("report status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRateLimiter_CleanupDropsIdleEntries(t *testing.T) {
	cfg := testRateLimiterConfig()
	cfg.CleanupInterval = time.Millisecond
	rl := NewRateLimiter(cfg)
	defer rl.Stop()

	limitedRequest(rl.GeneralMiddleware(), "uid-1")
	limitedRequest(rl.ReportSubmissionMiddleware(), "uid-1")

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if rl.GeneralLimiterCount() == 0 && rl.ReportLimiterCount() == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("limiter counts = %d/%d, want 0/0 after cleanup",
		rl.GeneralLimiterCount(), rl.ReportLimiterCount())
}
