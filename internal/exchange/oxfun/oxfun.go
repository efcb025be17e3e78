// Package oxfun implements the ox.fun adapter for OX linear swaps and spot
// pairs. Private requests carry an HMAC-SHA256 hex signature over
// method \n path \n sortedQuery \n timestamp in AccessKey/Timestamp/Signature
// headers; every response arrives in a {success, code, message, data}
// envelope.
package oxfun

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
	name        = "oxfun"
	defaultHost = "https://api.ox.fun"
	stagingHost = "https://stgapi.ox.fun"

	// startTime and endTime must be within 7 days of each other on the
	// history endpoints
	historyWindow = 7 * 24 * time.Hour
)

func init() {
	exchange.Register(name, New)
}

var errTable = errs.Table{
	Exact: map[string]errs.Kind{
		"0010":   errs.KindOperationFailed,
		"429":    errs.KindRateLimitExceeded,
		"05001":  errs.KindAuthenticationError,
		"20000":  errs.KindBadRequest,
		"20001":  errs.KindBadRequest,
		"20002":  errs.KindBadRequest,
		"20003":  errs.KindNotSupported,
		"20005":  errs.KindAuthenticationError,
		"20006":  errs.KindBadRequest,
		"20007":  errs.KindAuthenticationError,
		"20010":  errs.KindArgumentsRequired,
		"20011":  errs.KindArgumentsRequired,
		"20015":  errs.KindBadSymbol,
		"20022":  errs.KindArgumentsRequired,
		"20025":  errs.KindAuthenticationError,
		"20031":  errs.KindMarketClosed,
		"20032":  errs.KindExchangeNotAvailable,
		"100005": errs.KindOrderNotFound,
		"100006": errs.KindInvalidOrder,
		"100015": errs.KindExchangeNotAvailable,
		"300011": errs.KindInvalidOrder,
		"300012": errs.KindInvalidOrder,
		"710002": errs.KindBadRequest,
		"710003": errs.KindBadRequest,
		"710004": errs.KindBadRequest,
		"710005": errs.KindInsufficientFunds,
		"710006": errs.KindInsufficientFunds,
		"710007": errs.KindInsufficientFunds,
		"000101": errs.KindExchangeNotAvailable,
		"000201": errs.KindExchangeNotAvailable,
	},
	Broad: map[string]errs.Kind{
		"insufficient":   errs.KindInsufficientFunds,
		"signature":      errs.KindAuthenticationError,
		"rate limit":     errs.KindRateLimitExceeded,
		"system failure": errs.KindExchangeNotAvailable,
	},
}

var timeframes = map[string]string{
	"1m":  "60s",
	"5m":  "300s",
	"15m": "900s",
	"30m": "1800s",
	"1h":  "3600s",
	"2h":  "7200s",
	"4h":  "14400s",
	"1d":  "86400s",
}

// Adapter is the ox.fun exchange adapter.
type Adapter struct {
	exchange.Base
	creds   sign.Credentials
	scheme  sign.SortedQuery
	client  *transport.Client
	markets exchange.MarketCache
	log     *logger.Entry
	now     sign.Clock
}

// New builds an ox.fun adapter. Sandbox selects the exchange's staging
// environment.
func New(cfg exchange.Config, log *logger.Entry) (exchange.Adapter, error) {
	host := cfg.BaseURL
	if host == "" {
		host = defaultHost
		if cfg.Sandbox {
			host = stagingHost
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
		Base:  exchange.Base{Exchange: name, Retry: cfg.Retry},
		creds: cfg.Credentials,
		scheme: sign.SortedQuery{
			KeyHeader:       "AccessKey",
			TimestampHeader: "Timestamp",
			SignatureHeader: "Signature",
		},
		client: transport.New(host, log, opts...),
		log:    log,
		now:    time.Now,
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
// timestamp on every attempt. Only GETs are retried; a mutating request the
// exchange may have applied is never replayed.
func (a *Adapter) private(ctx context.Context, method, path string, query url.Values, body []byte) (map[string]any, error) {
	call := func(ctx context.Context) (map[string]any, error) {
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

// envelope unwraps the {success, code, message, data} wrapper and classifies
// failures through the error table.
func (a *Adapter) envelope(resp *transport.Response) (map[string]any, error) {
	obj, err := safe.ParseObject(resp.Body)
	if err != nil {
		if !resp.OK() {
			return nil, errTable.Classify(name, "", string(resp.Body), resp.Status)
		}
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected payload: "+err.Error())
	}
	if ok, present := safe.Bool(obj, "success"); present && !ok || !resp.OK() {
		code := safe.String(obj, "code")
		return nil, errTable.Classify(name, code, safe.String(obj, "message"), resp.Status)
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
