package retry

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kris-hansen/pfmea/utils/config"
)

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxRetries  int           // Maximum number of retry attempts
	InitialWait time.Duration // Initial wait time before first retry
	MaxWait     time.Duration // Maximum wait time between retries
	Factor      float64       // Exponential backoff factor
}

// DefaultRetryConfig provides sensible defaults for retry operations
var DefaultRetryConfig = RetryConfig{
	MaxRetries:  5,
	InitialWait: 1 * time.Second,
	MaxWait:     60 * time.Second,
	Factor:      2.0,
}

// WithRetry runs operation until it succeeds, returns an error shouldRetry
// rejects, the retries are exhausted, or ctx is done.
func WithRetry[T any](ctx context.Context, operation func(context.Context) (T, error), shouldRetry func(error) bool, cfg RetryConfig) (T, error) {
	var zero T
	wait := cfg.InitialWait

	for attempt := 0; ; attempt++ {
		result, err := operation(ctx)
		if err == nil || !shouldRetry(err) {
			return result, err
		}

		if attempt >= cfg.MaxRetries {
			return zero, fmt.Errorf("operation failed after %d retries: %w", cfg.MaxRetries, err)
		}

		retryWait := wait
		if cfg.MaxWait > 0 && retryWait > cfg.MaxWait {
			retryWait = cfg.MaxWait
		}
		// Server-provided hints take priority over our own backoff
		if hinted := extractRetryTime(err.Error()); hinted > 0 {
			retryWait = hinted
		}

		config.DebugLog("[Retry] Received retryable error: %v. Retrying in %v (attempt %d/%d)",
			err, retryWait, attempt+1, cfg.MaxRetries)
		log.Printf("Rate limit detected, retrying in %v (attempt %d/%d)...\n",
			retryWait, attempt+1, cfg.MaxRetries)

		timer := time.NewTimer(retryWait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, fmt.Errorf("retry aborted: %w", ctx.Err())
		case <-timer.C:
		}

		wait = time.Duration(float64(wait) * cfg.Factor)
	}
}

// Is429Error checks if the error is a rate limit (429) error
func Is429Error(err error) bool {
	if err == nil {
		return false
	}

	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "429") ||
		strings.Contains(errMsg, "rate limit") ||
		strings.Contains(errMsg, "quota exceeded") ||
		strings.Contains(errMsg, "too many requests")
}

// extractRetryTime pulls a wait hint such as "retry in 18s" or
// "try again after 30 seconds" out of an error message. Returns 0 if none.
func extractRetryTime(errMsg string) time.Duration {
	lower := strings.ToLower(errMsg)
	for _, pattern := range []string{"retry in ", "retry after ", "try again in ", "try again after "} {
		idx := strings.Index(lower, pattern)
		if idx < 0 {
			continue
		}
		rest := lower[idx+len(pattern):]

		var seconds int
		if _, err := fmt.Sscanf(rest, "%ds", &seconds); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		if _, err := fmt.Sscanf(rest, "%d seconds", &seconds); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return 0
}
