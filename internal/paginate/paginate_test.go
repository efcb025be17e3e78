package paginate

import (
	"context"
	"errors"
	"testing"
	"time"

	"unifex/internal/errs"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{}, func(ctx context.Context) error {
		calls++
		if calls < 2 {
			return errs.New("x", errs.KindExchangeNotAvailable, "", "down")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
}

func TestRetryBound(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 3}, func(ctx context.Context) error {
		calls++
		return errs.New("x", errs.KindOperationFailed, "", "flaky")
	})
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 3 {
		t.Fatalf("expected exactly 3 calls, got %d", calls)
	}
	if !errors.Is(err, errs.ErrOperationFailed) {
		t.Fatalf("final error should wrap the last failure, got %v", err)
	}
}

func TestRetryNeverRetriesRateLimit(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 5}, func(ctx context.Context) error {
		calls++
		return errs.New("x", errs.KindRateLimitExceeded, "429", "slow down")
	})
	if !errors.Is(err, errs.ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("rate limit must not be retried, got %d calls", calls)
	}
}

func TestRetryNonTransientImmediate(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryPolicy{Attempts: 5}, func(ctx context.Context) error {
		calls++
		return errs.New("x", errs.KindAuthenticationError, "", "bad key")
	})
	if !errors.Is(err, errs.ErrAuthentication) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("non-transient errors must not be retried, got %d calls", calls)
	}
}

func TestRetryContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryPolicy{}, func(ctx context.Context) error {
		t.Fatal("fn must not run after cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDeterministicWindows(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var got [][2]time.Time
	out, err := Deterministic(context.Background(), base, base.Add(25*time.Hour), 12*time.Hour,
		func(ctx context.Context, from, to time.Time) ([]int, error) {
			got = append(got, [2]time.Time{from, to})
			return []int{len(got)}, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(got))
	}
	if !got[2][1].Equal(base.Add(25 * time.Hour)) {
		t.Fatalf("last window must be clamped to until, got %v", got[2][1])
	}
	if len(out) != 3 {
		t.Fatalf("expected aggregated pages, got %v", out)
	}
}

func TestDeterministicPropagatesError(t *testing.T) {
	base := time.Now().UTC()
	_, err := Deterministic(context.Background(), base, base.Add(time.Hour), 30*time.Minute,
		func(ctx context.Context, from, to time.Time) ([]int, error) {
			return nil, errs.New("x", errs.KindExchangeNotAvailable, "", "down")
		})
	if !errors.Is(err, errs.ErrExchangeNotAvailable) {
		t.Fatalf("expected fetch error, got %v", err)
	}
}

func TestDynamicWalksBackward(t *testing.T) {
	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	start := since.Add(10 * time.Hour)
	var cursors []time.Time
	out, err := Dynamic(context.Background(), since, start, 10,
		func(ctx context.Context, until time.Time) ([]string, time.Time, error) {
			cursors = append(cursors, until)
			oldest := until.Add(-4 * time.Hour)
			return []string{"page"}, oldest, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 10h -> 6h -> 2h; the third page's oldest (-2h) crosses since and stops.
	if len(cursors) != 3 {
		t.Fatalf("expected 3 pages, got %d: %v", len(cursors), cursors)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 aggregated pages, got %d", len(out))
	}
}

func TestDynamicStopsOnEmptyPage(t *testing.T) {
	since := time.Now().UTC().Add(-24 * time.Hour)
	calls := 0
	_, err := Dynamic(context.Background(), since, time.Now().UTC(), 10,
		func(ctx context.Context, until time.Time) ([]string, time.Time, error) {
			calls++
			return nil, time.Time{}, nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Fatalf("empty page must stop paging, got %d calls", calls)
	}
}

func TestDynamicPageBound(t *testing.T) {
	since := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	calls := 0
	_, err := Dynamic(context.Background(), since, time.Now().UTC(), 4,
		func(ctx context.Context, until time.Time) ([]string, time.Time, error) {
			calls++
			return []string{"p"}, until.Add(-time.Minute), nil
		})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected the page bound to cap at 4, got %d", calls)
	}
}
