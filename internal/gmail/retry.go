package gmail

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	maxAttempts    = 3
	initialBackoff = 1 * time.Second
	maxBackoff     = 60 * time.Second
)

// StatusError is a non-2xx API response. Callers branch on Code; the
// retry layer decides which codes are transient.
type StatusError struct {
	Code int
	Op   string
	Body string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Body)
	}
	return fmt.Sprintf("%s: HTTP %d", e.Op, e.Code)
}

var retryableStatus = map[int]bool{429: true, 500: true, 503: true}

// Retryer wraps API calls with exponential backoff. Transient statuses
// (429, 500, 503) and transport errors back off base*2^attempt capped at
// 60s across 3 attempts. A 401 triggers one re-authentication without
// consuming an attempt; every other status propagates immediately.
type Retryer struct {
	// Reauth refreshes credentials after a 401. Nil disables re-auth.
	Reauth func(ctx context.Context) error
	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryer creates a Retryer with the given re-auth hook.
func NewRetryer(reauth func(ctx context.Context) error) *Retryer {
	return &Retryer{Reauth: reauth, sleep: sleepCtx}
}

// Do runs fn under the retry policy and returns the last error on
// exhaustion.
func (r *Retryer) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	reauthed := false

	for attempt := 0; attempt < maxAttempts; {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) {
			if se.Code == 401 && r.Reauth != nil && !reauthed {
				reauthed = true
				if aerr := r.Reauth(ctx); aerr != nil {
					return fmt.Errorf("re-authenticating after 401: %w", aerr)
				}
				continue
			}
			if !retryableStatus[se.Code] {
				return err
			}
		}

		// Retryable status or transport error.
		attempt++
		if attempt >= maxAttempts {
			break
		}
		if serr := sleep(ctx, backoff(attempt-1)); serr != nil {
			return serr
		}
	}
	return lastErr
}

func backoff(attempt int) time.Duration {
	d := initialBackoff << attempt
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
