// Package hollaex implements the hollaex spot adapter. Private requests are
// signed with HMAC-SHA256 over method + timestamp + path(+query) [+ body],
// with a wall-clock seconds timestamp; the exchange also runs a public
// sandbox host selectable through the Sandbox config flag.
package hollaex

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
	name        = "hollaex"
	defaultHost = "https://api.hollaex.com"
	sandboxHost = "https://api.sandbox.hollaex.com"
)

// bookTiers are the depth sizes the exchange serves; requested limits are
// quantized up to the next tier.
var bookTiers = []int{5, 25, 50, 100}

func init() {
	exchange.Register(name, New)
}

var errTable = errs.Table{
	Exact: map[string]errs.Kind{},
	Broad: map[string]errs.Kind{
		"invalid token":        errs.KindAuthenticationError,
		"order not found":      errs.KindOrderNotFound,
		"insufficient balance": errs.KindInsufficientFunds,
		"order rejected":       errs.KindOperationRejected,
	},
}

// Adapter is the hollaex exchange adapter.
type Adapter struct {
	exchange.Base
	creds   sign.Credentials
	scheme  sign.MethodPath
	client  *transport.Client
	markets exchange.MarketCache
	log     *logger.Entry
	now     sign.Clock
}

// New builds a hollaex adapter.
func New(cfg exchange.Config, log *logger.Entry) (exchange.Adapter, error) {
	host := cfg.BaseURL
	if host == "" {
		host = defaultHost
		if cfg.Sandbox {
			host = sandboxHost
		}
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
	return &Adapter{
		Base:   exchange.Base{Exchange: name, Retry: cfg.Retry},
		creds:  cfg.Credentials,
		scheme: sign.MethodPath{KeyHeader: "api-key", TimestampHeader: "api-timestamp"},
		client: transport.New(host, log, opts...),
		log:    log,
		now:    time.Now,
	}, nil
}

func (a *Adapter) public(ctx context.Context, path string, query url.Values) ([]byte, error) {
	var out []byte
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		resp, err := a.client.Do(ctx, http.MethodGet, path, query, nil, nil)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
		}
		out, err = a.check(resp)
		return err
	})
	return out, err
}

// private signs and executes an authenticated call, re-signing with a fresh
// timestamp on every attempt. Only GETs are retried; a mutating request the
// exchange may have applied is never replayed.
func (a *Adapter) private(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	call := func(ctx context.Context) ([]byte, error) {
		signed, err := a.scheme.Sign(a.creds, sign.Request{Method: method, Path: path, Query: query, Body: body}, a.now)
		if err != nil {
			return nil, errs.Authentication(name, err.Error())
		}
		if len(body) > 0 {
			signed.Headers.Set("Content-Type", "application/json")
		}
		resp, err := a.client.Do(ctx, method, path, signed.Query, signed.Headers, signed.Body)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			return nil, errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
		}
		return a.check(resp)
	}
	if method != http.MethodGet {
		return call(ctx)
	}
	var out []byte
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		out, err = call(ctx)
		return err
	})
	return out, err
}

// check classifies error payloads, which arrive as {"message": "..."} with a
// non-2xx status.
func (a *Adapter) check(resp *transport.Response) ([]byte, error) {
	if resp.OK() {
		return resp.Body, nil
	}
	message := ""
	if obj, err := safe.ParseObject(resp.Body); err == nil {
		message = safe.String(obj, "message")
	}
	return nil, errTable.Classify(name, "", message, resp.Status)
}

func (a *Adapter) loadMarkets(ctx context.Context) error {
	if a.markets.Loaded() {
		return nil
	}
	_, err := a.FetchMarkets(ctx, nil)
	return err
}
