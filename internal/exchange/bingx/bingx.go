// Package bingx implements the bingx USDT-swap adapter. Every response
// travels in a {code, msg, data} envelope; private requests are signed with
// HMAC-SHA256 over timestamp + nonce + method + path [+ body] and the
// material ships in BX-* headers. POST payloads are SHA-256 digested before
// the HMAC.
package bingx

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
	name        = "bingx"
	defaultHost = "https://open-api.bingx.com"

	// the exchange rejects fill history older than this
	maxLookback = 90 * 24 * time.Hour
	// window applied when the caller gives no bounds
	defaultWindow = 7 * 24 * time.Hour
)

func init() {
	exchange.Register(name, New)
}

var errTable = errs.Table{
	Exact: map[string]errs.Kind{
		"100001": errs.KindAuthenticationError,
		"100412": errs.KindAuthenticationError,
		"100419": errs.KindPermissionDenied,
		"100414": errs.KindAccountSuspended,
		"100202": errs.KindInsufficientFunds,
		"101204": errs.KindInsufficientFunds,
		"100204": errs.KindBadRequest,
		"100400": errs.KindBadRequest,
		"100421": errs.KindBadSymbol,
		"100437": errs.KindBadRequest,
		"80001":  errs.KindBadRequest,
		"80012":  errs.KindExchangeNotAvailable,
		"80014":  errs.KindBadRequest,
		"80016":  errs.KindOrderNotFound,
		"80017":  errs.KindOrderNotFound,
	},
	Broad: map[string]errs.Kind{
		"insufficient margin": errs.KindInsufficientFunds,
		"risk control":        errs.KindAccountSuspended,
	},
}

// Adapter is the bingx exchange adapter.
type Adapter struct {
	exchange.Base
	creds   sign.Credentials
	scheme  sign.HeaderNonce
	client  *transport.Client
	markets exchange.MarketCache
	log     *logger.Entry
	now     sign.Clock
	nonce   sign.NonceFunc
}

// New builds a bingx adapter.
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
	return &Adapter{
		Base:  exchange.Base{Exchange: name, Retry: cfg.Retry},
		creds: cfg.Credentials,
		scheme: sign.HeaderNonce{
			KeyHeader:       "BX-APIKEY",
			TimestampHeader: "BX-TIMESTAMP",
			NonceHeader:     "BX-NONCE",
			SignatureHeader: "BX-SIGNATURE",
		},
		client: transport.New(host, log, opts...),
		log:    log,
		now:    time.Now,
		nonce:  sign.UUIDNonce,
	}, nil
}

func (a *Adapter) public(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	var out map[string]any
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		resp, err := a.client.Do(ctx, http.MethodGet, path, query, nil, nil)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
		}
		out, err = a.envelope(resp)
		return err
	})
	return out, err
}

// private signs and executes an authenticated call, re-signing with a fresh
// timestamp and nonce on every attempt. Only GETs are retried; a mutating
// request the exchange may have applied is never replayed.
func (a *Adapter) private(ctx context.Context, method, path string, query url.Values, body []byte) (map[string]any, error) {
	call := func(ctx context.Context) (map[string]any, error) {
		signed, err := a.scheme.Sign(a.creds, sign.Request{Method: method, Path: path, Query: query, Body: body}, a.now, a.nonce)
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
		return a.envelope(resp)
	}
	if method != http.MethodGet {
		return call(ctx)
	}
	var out map[string]any
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		var err error
		out, err = call(ctx)
		return err
	})
	return out, err
}

// envelope unwraps the {code, msg, data} wrapper, classifying non-zero codes
// before any normalization runs.
func (a *Adapter) envelope(resp *transport.Response) (map[string]any, error) {
	obj, err := safe.ParseObject(resp.Body)
	if err != nil {
		if !resp.OK() {
			return nil, errTable.Classify(name, "", string(resp.Body), resp.Status)
		}
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected payload: "+err.Error())
	}
	code := safe.String(obj, "code")
	if code != "" && code != "0" {
		return nil, errTable.Classify(name, code, safe.String(obj, "msg"), resp.Status)
	}
	if !resp.OK() {
		return nil, errTable.Classify(name, code, safe.String(obj, "msg"), resp.Status)
	}
	return obj, nil
}

func (a *Adapter) loadMarkets(ctx context.Context) error {
	if a.markets.Loaded() {
		return nil
	}
	_, err := a.FetchMarkets(ctx, nil)
	return err
}
