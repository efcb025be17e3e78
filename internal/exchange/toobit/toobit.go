// Package toobit implements the toobit spot and USDT-swap adapter. Private
// endpoints are signed binance-style: the request parameters plus an injected
// millisecond timestamp and recvWindow are HMAC-SHA256 signed and the
// signature is appended to the query string.
package toobit

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/safe"
	"unifex/internal/sign"
	"unifex/internal/transport"
	"unifex/logger"
)

const (
	name        = "toobit"
	defaultHost = "https://api.toobit.com"
)

func init() {
	exchange.Register(name, New)
}

var errTable = errs.Table{
	Exact: map[string]errs.Kind{
		"-1002": errs.KindAuthenticationError,
		"-1013": errs.KindInvalidOrder,
		"-1021": errs.KindInvalidNonce,
		"-1022": errs.KindAuthenticationError,
		"-1121": errs.KindBadSymbol,
		"-2010": errs.KindInsufficientFunds,
		"-2013": errs.KindOrderNotFound,
		"-2014": errs.KindAuthenticationError,
	},
	Broad: map[string]errs.Kind{
		"insufficient balance": errs.KindInsufficientFunds,
		"too many requests":    errs.KindRateLimitExceeded,
		"unknown order":        errs.KindOrderNotFound,
	},
}

var timeframes = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "6h": "6h", "8h": "8h", "12h": "12h",
	"1d": "1d", "1w": "1w", "1M": "1M",
}

// Adapter is the toobit exchange adapter.
type Adapter struct {
	exchange.Base
	creds   sign.Credentials
	scheme  sign.QueryAppend
	client  *transport.Client
	markets exchange.MarketCache
	log     *logger.Entry
	now     sign.Clock

	// offset is the server-minus-local clock difference applied to signing
	// timestamps after SyncTime.
	offset time.Duration
}

// New builds a toobit adapter.
func New(cfg exchange.Config, log *logger.Entry) (exchange.Adapter, error) {
	host := cfg.BaseURL
	if host == "" {
		host = defaultHost
	}
	opts := []transport.Option{}
	if cfg.RateLimit > 0 {
		opts = append(opts, transport.WithRateLimit(cfg.RateLimit, max(cfg.Burst, 1)))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, transport.WithTimeout(cfg.Timeout))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, transport.WithHTTPClient(cfg.HTTPClient))
	}
	a := &Adapter{
		Base:   exchange.Base{Exchange: name, Retry: cfg.Retry},
		creds:  cfg.Credentials,
		scheme: sign.QueryAppend{KeyHeader: "X-BB-APIKEY", RecvWindow: "5000"},
		client: transport.New(host, log, opts...),
		log:    log,
	}
	a.now = func() time.Time { return time.Now().Add(a.offset) }
	return a, nil
}

// SyncTime measures the server clock offset and applies it to all subsequent
// signing timestamps.
func (a *Adapter) SyncTime(ctx context.Context) error {
	before := time.Now()
	raw, err := a.public(ctx, "/api/v1/time", nil)
	if err != nil {
		return err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return errs.New(name, errs.KindExchangeError, "", "unexpected time payload: "+err.Error())
	}
	server := safe.MillisTime(obj, "serverTime")
	if server.IsZero() {
		return errs.New(name, errs.KindExchangeError, "", "time response missing serverTime")
	}
	a.offset = server.Sub(before)
	return nil
}

func (a *Adapter) public(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var body []byte
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		body, err = a.roundTrip(ctx, http.MethodGet, path, query, nil)
		return err
	})
	return body, err
}

// private signs and executes an authenticated call. Only GETs are retried;
// a mutating request the exchange may have applied is never replayed.
func (a *Adapter) private(ctx context.Context, method, path string, query url.Values) ([]byte, error) {
	call := func(ctx context.Context) ([]byte, error) {
		signed, err := a.scheme.Sign(a.creds, sign.Request{Method: method, Path: path, Query: query}, a.now)
		if err != nil {
			return nil, errs.Authentication(name, err.Error())
		}
		return a.roundTrip(ctx, method, path, signed.Query, signed.Headers)
	}
	if method != http.MethodGet {
		return call(ctx)
	}
	var body []byte
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		body, err = call(ctx)
		return err
	})
	return body, err
}

func (a *Adapter) roundTrip(ctx context.Context, method, path string, query url.Values, headers http.Header) ([]byte, error) {
	resp, err := a.client.Do(ctx, method, path, query, headers, nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
	}
	return a.check(resp)
}

// check classifies error payloads before any normalization sees the body.
// Success bodies may be objects or bare arrays; arrays never carry an error
// code.
func (a *Adapter) check(resp *transport.Response) ([]byte, error) {
	if obj, err := safe.ParseObject(resp.Body); err == nil {
		code := safe.String(obj, "code")
		if code != "" && code != "200" && code != "0" {
			return nil, errTable.Classify(name, code, safe.String(obj, "msg"), resp.Status)
		}
	}
	if !resp.OK() {
		return nil, errTable.Classify(name, "", string(resp.Body), resp.Status)
	}
	return resp.Body, nil
}

func (a *Adapter) loadMarkets(ctx context.Context) error {
	if a.markets.Loaded() {
		return nil
	}
	_, err := a.FetchMarkets(ctx, nil)
	return err
}
