// Package paginate provides the opt-in bounded retry wrapper and the two
// pagination strategies used by list-returning calls: deterministic
// time-window paging for bucketed data (OHLCV, funding history) and dynamic
// backward cursor paging for order/trade lists.
package paginate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"unifex/internal/errs"
)

// DefaultAttempts is the retry bound applied when the caller does not set one.
const DefaultAttempts = 3

// RetryPolicy bounds the automatic retry loop.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// Retry runs fn up to the policy's attempt bound, retrying only transient
// failures. Rate-limit errors are surfaced immediately so the caller can
// apply its own backoff; they are never retried here.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := policy.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	var last error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		last = fn(ctx)
		if last == nil {
			return nil
		}
		if errors.Is(last, errs.ErrRateLimitExceeded) {
			return last
		}
		if !errs.Transient(last) {
			return last
		}
		if policy.Delay > 0 && i < attempts-1 {
			select {
			case <-time.After(policy.Delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", attempts, last)
}

// Deterministic walks [since, until) in fixed-size windows and aggregates
// the pages. The fetch callback receives one closed window per call.
func Deterministic[T any](ctx context.Context, since, until time.Time, span time.Duration,
	fetch func(ctx context.Context, from, to time.Time) ([]T, error)) ([]T, error) {
	if span <= 0 {
		return nil, fmt.Errorf("window span must be positive, got %s", span)
	}
	var out []T
	for from := since; from.Before(until); from = from.Add(span) {
		to := from.Add(span)
		if to.After(until) {
			to = until
		}
		page, err := fetch(ctx, from, to)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
	}
	return out, nil
}

// Dynamic pages backward in time through an opaque "until" cursor. fetch
// returns one page plus the timestamp of its oldest row; paging stops when a
// page comes back empty, when the oldest row crosses since, or after
// maxPages. Rows older than since are trimmed by the caller's fetch, not
// here — the helper only drives the cursor.
func Dynamic[T any](ctx context.Context, since, start time.Time, maxPages int,
	fetch func(ctx context.Context, until time.Time) (page []T, oldest time.Time, err error)) ([]T, error) {
	if maxPages <= 0 {
		maxPages = 10
	}
	var out []T
	cursor := start
	for i := 0; i < maxPages; i++ {
		page, oldest, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		out = append(out, page...)
		if oldest.IsZero() || !oldest.After(since) || !oldest.Before(cursor) {
			break
		}
		cursor = oldest
	}
	return out, nil
}
