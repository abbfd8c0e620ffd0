package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"

	"github.com/mmynk/familyfund/internal/metrics"
)

// Retrier runs a call with bounded exponential backoff.
type Retrier struct {
	// Backoff is copied per call; its state never leaks between calls.
	Backoff     gax.Backoff
	MaxAttempts int
	// Timeout bounds each attempt. Zero means no per-attempt bound.
	Timeout time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetrier retries up to four attempts starting at 500ms.
func DefaultRetrier(timeout time.Duration, maxAttempts int) Retrier {
	if maxAttempts < 1 {
		maxAttempts = 4
	}
	return Retrier{
		Backoff: gax.Backoff{
			Initial:    500 * time.Millisecond,
			Max:        8 * time.Second,
			Multiplier: 2,
		},
		MaxAttempts: maxAttempts,
		Timeout:     timeout,
	}
}

// Do calls fn until it succeeds, fails terminally, or attempts run out.
func (r Retrier) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	bo := r.Backoff
	sleep := r.sleep
	if sleep == nil {
		sleep = gax.Sleep
	}
	attempts := max(r.MaxAttempts, 1)

	var err error
	for attempt := 1; ; attempt++ {
		err = r.attempt(ctx, fn)
		if err == nil {
			return nil
		}
		if !Retryable(err) || attempt >= attempts {
			break
		}

		pause := bo.Pause()
		slog.Warn("Sheets call failed, retrying",
			"op", op,
			"attempt", attempt,
			"pause", pause,
			"error", err,
		)
		metrics.StoreRetries.WithLabelValues(backend, op).Inc()
		if serr := sleep(ctx, pause); serr != nil {
			return fmt.Errorf("%s: %w", op, serr)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (r Retrier) attempt(ctx context.Context, fn func(ctx context.Context) error) error {
	if r.Timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	return fn(ctx)
}

// Retryable reports whether err is worth another attempt: rate limiting,
// server errors and transport failures are; client errors and
// cancellation are not.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}

	// A per-attempt timeout is transient; the caller's own deadline is
	// checked by the sleep that follows.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
