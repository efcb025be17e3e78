// Package sign produces exchange authentication material for private REST
// requests. Builders never mutate the caller's request; they return fresh
// header/query/body structures. The HTTP call itself belongs to the
// transport layer.
package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Credentials is the API key material for one exchange account.
type Credentials struct {
	APIKey   string
	Secret   string
	UID      string
	Password string
}

// Check fails fast when the key or secret is absent.
func (c Credentials) Check() error {
	if c.APIKey == "" || c.Secret == "" {
		return fmt.Errorf("api key and secret are required for private endpoints")
	}
	return nil
}

// Clock supplies the signing timestamp; injectable for deterministic tests.
type Clock func() time.Time

// NonceFunc supplies a unique request nonce.
type NonceFunc func() string

// UUIDNonce is the default nonce source.
func UUIDNonce() string {
	return uuid.NewString()
}

// Request is the canonical unsigned request. Builders treat it as read-only.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

// Signed is the authentication material to merge into the outgoing request.
// Query is a copy of the input query, possibly extended by the scheme.
type Signed struct {
	Headers http.Header
	Query   url.Values
	Body    []byte
}

// HMACSHA256Hex computes the hex HMAC-SHA256 of payload under secret.
func HMACSHA256Hex(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SHA256Hex computes the hex SHA-256 digest of payload.
func SHA256Hex(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		cp := make([]string, len(vs))
		copy(cp, vs)
		out[k] = cp
	}
	return out
}

// sortedEncode urlencodes values with keys in lexicographic order.
// url.Values.Encode already sorts by key; the helper exists to make the
// invariant explicit at call sites that depend on it.
func sortedEncode(v url.Values) string {
	return v.Encode()
}
