// Package btcex implements the btcex adapter. The exchange runs a JSON-RPC
// style REST surface: authentication is a session sign-in that trades client
// credentials for a bearer token, private GETs carry the token with plain
// query params, and private POSTs wrap their params in a JSON-RPC envelope.
package btcex

import (
	"context"
	"encoding/json"
	"errors"
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
	name        = "btcex"
	defaultHost = "https://api.btcex.com"
	apiPrefix   = "/api/v1"
)

func init() {
	exchange.Register(name, New)
}

var errTable = errs.Table{
	Exact: map[string]errs.Kind{
		"9999": errs.KindExchangeError,
		"9900": errs.KindExchangeNotAvailable,
		"401":  errs.KindAuthenticationError,
		"403":  errs.KindAuthenticationError,
		"1000": errs.KindExchangeNotAvailable,
		"1001": errs.KindBadRequest,
		"1005": errs.KindRateLimitExceeded,
		"2000": errs.KindAuthenticationError,
		"2001": errs.KindAuthenticationError,
		"2002": errs.KindAuthenticationError,
		"2003": errs.KindAuthenticationError,
		"2010": errs.KindPermissionDenied,
		"3004": errs.KindBadRequest,
		"3008": errs.KindAuthenticationError,
		"4006": errs.KindInsufficientFunds,
		"5001": errs.KindInvalidOrder,
		"5002": errs.KindOrderNotFound,
		"5004": errs.KindInvalidOrder,
		"5005": errs.KindInvalidOrder,
		"5006": errs.KindInvalidOrder,
		"5007": errs.KindInvalidOrder,
		"5008": errs.KindInvalidOrder,
		"5009": errs.KindInvalidOrder,
		"5119": errs.KindInvalidOrder,
		"8000": errs.KindRateLimitExceeded,
	},
	Broad: map[string]errs.Kind{
		"unauthentication": errs.KindAuthenticationError,
		"not enough":       errs.KindInsufficientFunds,
		"service is busy":  errs.KindExchangeNotAvailable,
	},
}

// Adapter is the btcex exchange adapter.
type Adapter struct {
	exchange.Base
	creds   sign.Credentials
	session *sign.TokenSource
	client  *transport.Client
	markets exchange.MarketCache
	log     *logger.Entry
	rpcID   int64
}

// New builds a btcex adapter.
func New(cfg exchange.Config, log *logger.Entry) (exchange.Adapter, error) {
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
	host := cfg.BaseURL
	if host == "" {
		host = defaultHost
	}
	a := &Adapter{
		Base:   exchange.Base{Exchange: name, Retry: cfg.Retry},
		creds:  cfg.Credentials,
		client: transport.New(host, log, opts...),
		log:    log,
	}
	a.session = sign.NewTokenSource(a.signIn, time.Now)
	return a, nil
}

// signIn trades the API key pair for a session token.
func (a *Adapter) signIn(ctx context.Context) (string, time.Time, error) {
	if err := a.creds.Check(); err != nil {
		return "", time.Time{}, err
	}
	result, err := a.rpc(ctx, nil, "/public/auth", map[string]any{
		"grant_type":    "client_credentials",
		"client_id":     a.creds.APIKey,
		"client_secret": a.creds.Secret,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	grant := safe.Map(result, "result")
	token := safe.String(grant, "access_token")
	if token == "" {
		return "", time.Time{}, errs.Authentication(name, "auth response carries no access_token")
	}
	expiresIn := safe.IntOr(grant, 0, "expires_in")
	return token, time.Now().Add(time.Duration(expiresIn) * time.Second), nil
}

func (a *Adapter) public(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	var out map[string]any
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		resp, err := a.client.Do(ctx, http.MethodGet, apiPrefix+"/public"+path, query, nil, nil)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
		}
		out, err = a.unwrap(resp)
		return err
	})
	return out, err
}

// privateGet performs an authenticated GET, re-authenticating lazily when
// the session token is absent or expired. GETs are the only private calls
// retried; the JSON-RPC POSTs are never replayed.
func (a *Adapter) privateGet(ctx context.Context, path string, query url.Values) (map[string]any, error) {
	var out map[string]any
	err := a.WithRetry(ctx, func(ctx context.Context) error {
		signed, err := sign.Bearer{Source: a.session}.Sign(ctx, sign.Request{Query: query})
		if err != nil {
			return errs.Authentication(name, err.Error())
		}
		resp, err := a.client.Do(ctx, http.MethodGet, apiPrefix+"/private"+path, signed.Query, signed.Headers, nil)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
		}
		out, err = a.unwrap(resp)
		if errors.Is(err, errs.ErrAuthentication) {
			a.session.Invalidate()
		}
		return err
	})
	return out, err
}

// privatePost performs an authenticated JSON-RPC POST.
func (a *Adapter) privatePost(ctx context.Context, path string, params map[string]any) (map[string]any, error) {
	signed, err := sign.Bearer{Source: a.session}.Sign(ctx, sign.Request{})
	if err != nil {
		return nil, errs.Authentication(name, err.Error())
	}
	result, err := a.rpc(ctx, signed.Headers, "/private"+path, params)
	if errors.Is(err, errs.ErrAuthentication) {
		a.session.Invalidate()
	}
	return result, err
}

func (a *Adapter) rpc(ctx context.Context, headers http.Header, path string, params map[string]any) (map[string]any, error) {
	a.rpcID++
	body, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"id":      a.rpcID,
		"method":  path,
		"params":  params,
	})
	if err != nil {
		return nil, errs.Local(name, errs.KindBadRequest, "encode rpc request: "+err.Error())
	}
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Type", "application/json")
	resp, err := a.client.Do(ctx, http.MethodPost, apiPrefix+path, nil, headers, body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, errs.New(name, errs.KindExchangeNotAvailable, "", err.Error())
	}
	return a.unwrap(resp)
}

// unwrap pulls the result out of the {jsonrpc, result, error} envelope and
// classifies any error member.
func (a *Adapter) unwrap(resp *transport.Response) (map[string]any, error) {
	obj, err := safe.ParseObject(resp.Body)
	if err != nil {
		if !resp.OK() {
			return nil, errTable.Classify(name, "", string(resp.Body), resp.Status)
		}
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected payload: "+err.Error())
	}
	if rpcErr := safe.Map(obj, "error"); rpcErr != nil {
		return nil, errTable.Classify(name, safe.String(rpcErr, "code"), safe.String(rpcErr, "message"), resp.Status)
	}
	if !resp.OK() {
		return nil, errTable.Classify(name, "", string(resp.Body), resp.Status)
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
