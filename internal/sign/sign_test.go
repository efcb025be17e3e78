package sign

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"
	"time"
)

var (
	testCreds  = Credentials{APIKey: "key", Secret: "secret"}
	fixedTime  = func() time.Time { return time.UnixMilli(1700000000000).UTC() }
	fixedNonce = func() string { return "nonce-1" }
)

func TestCheckFailsFastWithoutSecret(t *testing.T) {
	schemes := []func() (Signed, error){
		func() (Signed, error) {
			return HeaderNonce{KeyHeader: "BX-APIKEY", TimestampHeader: "BX-TIMESTAMP", NonceHeader: "BX-NONCE", SignatureHeader: "BX-SIGNATURE"}.
				Sign(Credentials{}, Request{Method: "GET", Path: "/x"}, fixedTime, fixedNonce)
		},
		func() (Signed, error) {
			return MethodPath{KeyHeader: "api-key", TimestampHeader: "api-timestamp"}.
				Sign(Credentials{APIKey: "only-key"}, Request{Method: "GET", Path: "/x"}, fixedTime)
		},
		func() (Signed, error) {
			return SortedQuery{KeyHeader: "AccessKey", TimestampHeader: "Timestamp", SignatureHeader: "Signature"}.
				Sign(Credentials{}, Request{Method: "GET", Path: "/x"}, fixedTime)
		},
		func() (Signed, error) {
			return QueryAppend{KeyHeader: "X-BB-APIKEY"}.
				Sign(Credentials{}, Request{Method: "GET", Path: "/x"}, fixedTime)
		},
	}
	for i, sign := range schemes {
		if _, err := sign(); err == nil {
			t.Fatalf("scheme %d accepted empty credentials", i)
		}
	}
}

func TestHeaderNonceDeterministic(t *testing.T) {
	scheme := HeaderNonce{KeyHeader: "BX-APIKEY", TimestampHeader: "BX-TIMESTAMP", NonceHeader: "BX-NONCE", SignatureHeader: "BX-SIGNATURE"}
	req := Request{Method: http.MethodGet, Path: "/api/v1/balance"}
	first, err := scheme.Sign(testCreds, req, fixedTime, fixedNonce)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	second, _ := scheme.Sign(testCreds, req, fixedTime, fixedNonce)
	if first.Headers.Get("BX-SIGNATURE") != second.Headers.Get("BX-SIGNATURE") {
		t.Fatalf("signature not deterministic for fixed inputs")
	}
	// The GET signature is a plain HMAC over ts+nonce+method+path.
	want := HMACSHA256Hex("secret", "1700000000000nonce-1GET/api/v1/balance")
	if got := first.Headers.Get("BX-SIGNATURE"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
	if first.Headers.Get("BX-TIMESTAMP") != "1700000000000" || first.Headers.Get("BX-NONCE") != "nonce-1" {
		t.Fatalf("headers: %v", first.Headers)
	}
}

// POST on this scheme hashes the payload first and HMACs the hex digest —
// hash-of-a-hash, not a single HMAC.
func TestHeaderNonceDoubleHashOnPost(t *testing.T) {
	scheme := HeaderNonce{KeyHeader: "BX-APIKEY", TimestampHeader: "BX-TIMESTAMP", NonceHeader: "BX-NONCE", SignatureHeader: "BX-SIGNATURE"}
	body := []byte(`{"symbol":"BTC-USDT"}`)
	req := Request{Method: http.MethodPost, Path: "/api/v1/order", Body: body}
	signed, err := scheme.Sign(testCreds, req, fixedTime, fixedNonce)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	payload := "1700000000000nonce-1POST/api/v1/order" + string(body)
	single := HMACSHA256Hex("secret", payload)
	double := HMACSHA256Hex("secret", SHA256Hex(payload))
	got := signed.Headers.Get("BX-SIGNATURE")
	if got == single {
		t.Fatalf("POST must not use the single-HMAC path")
	}
	if got != double {
		t.Fatalf("got %s, want double-hash %s", got, double)
	}
}

func TestMethodPathSecondsTimestamp(t *testing.T) {
	scheme := MethodPath{KeyHeader: "api-key", TimestampHeader: "api-timestamp"}
	query := url.Values{"symbol": {"btc-usdt"}}
	signed, err := scheme.Sign(testCreds, Request{Method: "GET", Path: "/v2/orders", Query: query}, fixedTime)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.Headers.Get("api-timestamp") != "1700000000" {
		t.Fatalf("timestamp must be wall-clock seconds: %v", signed.Headers)
	}
	want := HMACSHA256Hex("secret", "GET1700000000/v2/orders?symbol=btc-usdt")
	if got := signed.Headers.Get("signature"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

// Changing the insertion order of query keys must not change the signature:
// the sort step is applied to the signed string.
func TestSortedQueryKeyOrderInvariant(t *testing.T) {
	scheme := SortedQuery{KeyHeader: "AccessKey", TimestampHeader: "Timestamp", SignatureHeader: "Signature"}

	forward := url.Values{}
	forward.Set("marketCode", "BTC-USDT")
	forward.Set("limit", "10")
	backward := url.Values{}
	backward.Set("limit", "10")
	backward.Set("marketCode", "BTC-USDT")

	a, err := scheme.Sign(testCreds, Request{Method: "GET", Path: "/v3/orders", Query: forward}, fixedTime)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	b, _ := scheme.Sign(testCreds, Request{Method: "GET", Path: "/v3/orders", Query: backward}, fixedTime)
	if a.Headers.Get("Signature") != b.Headers.Get("Signature") {
		t.Fatalf("signature depends on query insertion order")
	}
	want := HMACSHA256Hex("secret", "GET\n/v3/orders\nlimit=10&marketCode=BTC-USDT\n1700000000000")
	if got := a.Headers.Get("Signature"); got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestQueryAppendInjectsTimestampAndRecvWindow(t *testing.T) {
	scheme := QueryAppend{KeyHeader: "X-BB-APIKEY", RecvWindow: "5000"}
	query := url.Values{"symbol": {"BTCUSDT"}}
	signed, err := scheme.Sign(testCreds, Request{Method: "POST", Path: "/api/v1/order", Query: query}, fixedTime)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.Query.Get("timestamp") != "1700000000000" || signed.Query.Get("recvWindow") != "5000" {
		t.Fatalf("query: %v", signed.Query)
	}
	payload := "recvWindow=5000&symbol=BTCUSDT&timestamp=1700000000000"
	if got := signed.Query.Get("signature"); got != HMACSHA256Hex("secret", payload) {
		t.Fatalf("signature mismatch: %s", got)
	}
	// The caller's query must stay untouched.
	if query.Get("timestamp") != "" || query.Get("signature") != "" {
		t.Fatalf("input query mutated: %v", query)
	}
}

// Body-string concatenated before query-string is the signed payload.
func TestQueryAppendBodyBeforeQuery(t *testing.T) {
	scheme := QueryAppend{KeyHeader: "X-BB-APIKEY", RecvWindow: "5000"}
	body := []byte("price=100&quantity=1")
	signed, err := scheme.Sign(testCreds, Request{Method: "POST", Path: "/api/v1/order", Body: body}, fixedTime)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	payload := "price=100&quantity=1" + "recvWindow=5000&timestamp=1700000000000"
	if got := signed.Query.Get("signature"); got != HMACSHA256Hex("secret", payload) {
		t.Fatalf("signature mismatch: %s", got)
	}
}

func TestTokenSourceLazyRefresh(t *testing.T) {
	calls := 0
	now := time.UnixMilli(0)
	clock := func() time.Time { return now }
	src := NewTokenSource(func(ctx context.Context) (string, time.Time, error) {
		calls++
		return "tok", now.Add(time.Hour), nil
	}, clock)

	for i := 0; i < 3; i++ {
		tok, err := src.Token(context.Background())
		if err != nil || tok != "tok" {
			t.Fatalf("token: %v %v", tok, err)
		}
	}
	if calls != 1 {
		t.Fatalf("valid token re-fetched %d times", calls)
	}

	now = now.Add(2 * time.Hour) // past expiry
	if _, err := src.Token(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expired token not refreshed, calls=%d", calls)
	}
}

func TestTokenSourceFailedRefresh(t *testing.T) {
	boom := errors.New("login rejected")
	src := NewTokenSource(func(ctx context.Context) (string, time.Time, error) {
		return "", time.Time{}, boom
	}, nil)
	if _, err := src.Token(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected login error, got %v", err)
	}
}

func TestHashPrimitives(t *testing.T) {
	if SHA256Hex("") != "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855" {
		t.Fatalf("sha256 vector")
	}
	if HMACSHA256Hex("key", "The quick brown fox jumps over the lazy dog") !=
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8" {
		t.Fatalf("hmac vector")
	}
}
