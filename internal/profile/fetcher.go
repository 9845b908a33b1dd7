// Package profile retrieves the extended user profile for a verified
// identity from the reporting backend.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/krishna-ananth-vk/potholed/internal/backend"
	"github.com/krishna-ananth-vk/potholed/internal/model"
)

// FetchResult classifies one fetch attempt by its HTTP status.
type FetchResult int

const (
	// FetchResultOK is a successful fetch (2xx).
	FetchResultOK FetchResult = iota
	// FetchResultAbsent means the identity has no profile record yet (404).
	// This is a valid empty result, not an error.
	FetchResultAbsent
	// FetchResultRetry is a transient failure worth retrying (429/5xx).
	FetchResultRetry
	// FetchResultFatal is a non-retryable failure (other 4xx).
	FetchResultFatal
)

// ClassifyStatus maps an HTTP status code to a fetch result.
func ClassifyStatus(statusCode int) FetchResult {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return FetchResultOK
	case statusCode == 404:
		return FetchResultAbsent
	case statusCode == 429:
		return FetchResultRetry
	case statusCode >= 500:
		return FetchResultRetry
	default:
		return FetchResultFatal
	}
}

// Collector receives fetch outcome metrics. Implemented by the metrics
// package; a nil Collector disables recording.
type Collector interface {
	RecordProfileFetch(outcome string, duration time.Duration)
}

// Config holds the fetch policy.
type Config struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// Retries is the total number of attempts for transient failures.
	Retries int
	// Backoff is the delay before the second attempt; it doubles per attempt.
	Backoff time.Duration
}

// DefaultConfig returns the default fetch policy: 3 attempts, 5s per
// attempt, 500ms initial backoff.
func DefaultConfig() Config {
	return Config{
		Timeout: 5 * time.Second,
		Retries: 3,
		Backoff: 500 * time.Millisecond,
	}
}

// Fetcher retrieves profiles with bounded timeout and retry.
type Fetcher struct {
	client    backend.Client
	config    Config
	collector Collector
}

// NewFetcher creates a Fetcher. collector may be nil.
func NewFetcher(client backend.Client, config Config, collector Collector) *Fetcher {
	if config.Retries < 1 {
		config.Retries = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	return &Fetcher{client: client, config: config, collector: collector}
}

// Fetch retrieves the profile behind idToken.
//
// A missing backend record resolves to a profile with user_exist=false and a
// nil error. Transient failures (429, 5xx, transport errors) are retried
// with exponential backoff; when attempts are exhausted, or on any other
// client error, the result is a profile-fetch APIError.
func (f *Fetcher) Fetch(ctx context.Context, idToken string) (*model.Profile, error) {
	start := time.Now()
	profile, err := f.fetchWithRetry(ctx, idToken)

	outcome := "success"
	switch {
	case err != nil:
		outcome = "failure"
	case !profile.UserExist:
		outcome = "absent"
	}
	if f.collector != nil {
		f.collector.RecordProfileFetch(outcome, time.Since(start))
	}
	return profile, err
}

func (f *Fetcher) fetchWithRetry(ctx context.Context, idToken string) (*model.Profile, error) {
	var lastErr error

	for attempt := 1; attempt <= f.config.Retries; attempt++ {
		if attempt > 1 {
			// Exponential backoff: base, 2*base, 4*base, ...
			delay := f.config.Backoff << (attempt - 2)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, model.NewProfileFetchError(ctx.Err().Error())
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
		profile, err := f.client.FetchUserInfo(attemptCtx, idToken)
		cancel()

		if err == nil {
			return profile, nil
		}

		var statusErr *backend.StatusError
		if errors.As(err, &statusErr) {
			switch ClassifyStatus(statusErr.Status) {
			case FetchResultAbsent:
				// Fresh identity with no backend record.
				return &model.Profile{UserExist: false, Message: "user does not exist"}, nil
			case FetchResultRetry:
				lastErr = err
			default:
				return nil, model.NewProfileFetchError(fmt.Sprintf("backend rejected the request (status %d)", statusErr.Status))
			}
		} else {
			// Transport-level failure; retry.
			lastErr = err
		}

		slog.Warn("profile fetch attempt failed",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", f.config.Retries),
			slog.String("error", lastErr.Error()),
		)
	}

	return nil, model.NewProfileFetchError(fmt.Sprintf("all %d attempts failed: %v", f.config.Retries, lastErr))
}
