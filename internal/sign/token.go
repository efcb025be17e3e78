package sign

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// FetchTokenFunc performs the exchange's login call and returns a bearer
// token with its expiry.
type FetchTokenFunc func(ctx context.Context) (token string, expiry time.Time, err error)

// TokenSource lazily obtains and caches a session token. Before any private
// call the adapter asks for the token; when the cached one is absent or past
// its recorded expiry a synchronous re-authentication precedes the original
// request. A failed refresh surfaces as an error, never as a stale token.
type TokenSource struct {
	mu     sync.Mutex
	now    Clock
	fetch  FetchTokenFunc
	token  string
	expiry time.Time

	// Leeway refreshes slightly before the recorded expiry to absorb clock
	// skew against the exchange.
	Leeway time.Duration
}

// NewTokenSource builds a TokenSource around the given login call.
func NewTokenSource(fetch FetchTokenFunc, now Clock) *TokenSource {
	if now == nil {
		now = time.Now
	}
	return &TokenSource{fetch: fetch, now: now, Leeway: 30 * time.Second}
}

// Token returns a live session token, re-authenticating first if needed.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" && t.now().Add(t.Leeway).Before(t.expiry) {
		return t.token, nil
	}
	token, expiry, err := t.fetch(ctx)
	if err != nil {
		t.token = ""
		return "", fmt.Errorf("session re-authentication failed: %w", err)
	}
	t.token = token
	t.expiry = expiry
	return token, nil
}

// Invalidate drops the cached token, forcing the next call to re-login.
func (t *TokenSource) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}

// Bearer attaches "Authorization: bearer <token>" headers from a TokenSource.
type Bearer struct {
	Source *TokenSource
}

func (b Bearer) Sign(ctx context.Context, req Request) (Signed, error) {
	token, err := b.Source.Token(ctx)
	if err != nil {
		return Signed{}, err
	}
	headers := http.Header{}
	headers.Set("Authorization", "bearer "+token)
	return Signed{Headers: headers, Query: cloneValues(req.Query), Body: req.Body}, nil
}
