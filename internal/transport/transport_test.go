package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestDoCarriesQueryHeadersAndBody(t *testing.T) {
	var gotPath, gotQuery, gotAgent, gotHeader string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotAgent = r.Header.Get("User-Agent")
		gotHeader = r.Header.Get("X-Test")
		gotBody = make([]byte, r.ContentLength)
		r.Body.Read(gotBody)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, nil, WithUserAgent("unifex-test/1.0"))
	headers := http.Header{}
	headers.Set("X-Test", "yes")
	resp, err := c.Do(context.Background(), http.MethodPost, "/api/v1/order",
		url.Values{"symbol": {"BTCUSDT"}}, headers, []byte("price=1"))
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if !resp.OK() || string(resp.Body) != `{"ok":true}` {
		t.Fatalf("resp: %+v", resp)
	}
	if gotPath != "/api/v1/order" || gotQuery != "symbol=BTCUSDT" {
		t.Fatalf("url: %s?%s", gotPath, gotQuery)
	}
	if gotAgent != "unifex-test/1.0" || gotHeader != "yes" {
		t.Fatalf("headers: %s %s", gotAgent, gotHeader)
	}
	if string(gotBody) != "price=1" {
		t.Fatalf("body: %s", gotBody)
	}
}

// Non-2xx responses are data for the classifier, not transport errors.
func TestDoReturnsErrorBodies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte(`{"code":"-20001"}`))
	}))
	defer srv.Close()

	resp, err := New(srv.URL, nil).Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	if err != nil {
		t.Fatalf("non-2xx must not be a transport error: %v", err)
	}
	if resp.OK() || resp.Status != http.StatusTeapot || string(resp.Body) != `{"code":"-20001"}` {
		t.Fatalf("resp: %+v", resp)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A tiny rate limit forces the limiter to block, which the cancelled
	// context must interrupt.
	c := New("http://127.0.0.1:0", nil, WithRateLimit(0.001, 1))
	c.limiter.Allow() // drain the initial burst token
	if _, err := c.Do(ctx, http.MethodGet, "/x", nil, nil, nil); err == nil {
		t.Fatalf("expected context cancellation error")
	}
}
