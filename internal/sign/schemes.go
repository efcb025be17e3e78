package sign

import (
	"net/http"
	"strconv"
)

// HeaderNonce signs with HMAC-SHA256 over timestamp + nonce + method + path
// [+ body] and ships the material in custom headers. For POST requests the
// payload is first SHA-256 digested and the HMAC is computed over the hex
// digest, a documented double-hash step on this scheme.
type HeaderNonce struct {
	KeyHeader       string // e.g. "BX-APIKEY"
	TimestampHeader string // e.g. "BX-TIMESTAMP"
	NonceHeader     string // e.g. "BX-NONCE"
	SignatureHeader string // e.g. "BX-SIGNATURE"
}

func (s HeaderNonce) Sign(creds Credentials, req Request, now Clock, nonce NonceFunc) (Signed, error) {
	if err := creds.Check(); err != nil {
		return Signed{}, err
	}
	timestamp := strconv.FormatInt(now().UnixMilli(), 10)
	n := nonce()
	payload := timestamp + n + req.Method + req.Path
	if len(req.Body) > 0 {
		payload += string(req.Body)
	}
	var signature string
	if req.Method == http.MethodPost {
		signature = HMACSHA256Hex(creds.Secret, SHA256Hex(payload))
	} else {
		signature = HMACSHA256Hex(creds.Secret, payload)
	}
	headers := http.Header{}
	headers.Set(s.KeyHeader, creds.APIKey)
	headers.Set(s.TimestampHeader, timestamp)
	headers.Set(s.NonceHeader, n)
	headers.Set(s.SignatureHeader, signature)
	return Signed{Headers: headers, Query: cloneValues(req.Query), Body: req.Body}, nil
}

// MethodPath signs with HMAC-SHA256 hex over method + timestamp + path
// (+ "?" + query) [+ body]. The timestamp is wall-clock seconds and the
// signature travels in a plain "signature" header.
type MethodPath struct {
	KeyHeader       string // e.g. "api-key"
	TimestampHeader string // e.g. "api-timestamp"
}

func (s MethodPath) Sign(creds Credentials, req Request, now Clock) (Signed, error) {
	if err := creds.Check(); err != nil {
		return Signed{}, err
	}
	timestamp := strconv.FormatInt(now().Unix(), 10)
	path := req.Path
	if encoded := sortedEncode(req.Query); encoded != "" {
		path += "?" + encoded
	}
	payload := req.Method + timestamp + path
	if len(req.Body) > 0 {
		payload += string(req.Body)
	}
	headers := http.Header{}
	headers.Set(s.KeyHeader, creds.APIKey)
	headers.Set(s.TimestampHeader, timestamp)
	headers.Set("signature", HMACSHA256Hex(creds.Secret, payload))
	return Signed{Headers: headers, Query: cloneValues(req.Query), Body: req.Body}, nil
}

// SortedQuery signs with HMAC-SHA256 over
// method \n path \n sortedQueryString \n timestamp.
// Query keys are sorted lexicographically before hashing, so the signed
// string does not depend on the caller's insertion order.
type SortedQuery struct {
	KeyHeader       string // e.g. "AccessKey"
	TimestampHeader string // e.g. "Timestamp"
	SignatureHeader string // e.g. "Signature"
}

func (s SortedQuery) Sign(creds Credentials, req Request, now Clock) (Signed, error) {
	if err := creds.Check(); err != nil {
		return Signed{}, err
	}
	timestamp := strconv.FormatInt(now().UnixMilli(), 10)
	payload := req.Method + "\n" + req.Path + "\n" + sortedEncode(req.Query) + "\n" + timestamp
	headers := http.Header{}
	headers.Set(s.KeyHeader, creds.APIKey)
	headers.Set(s.TimestampHeader, timestamp)
	headers.Set(s.SignatureHeader, HMACSHA256Hex(creds.Secret, payload))
	return Signed{Headers: headers, Query: cloneValues(req.Query), Body: req.Body}, nil
}

// QueryAppend signs with HMAC-SHA256 hex over the urlencoded body-string
// concatenated before the query-string, injects a millisecond timestamp and
// a fixed recvWindow, and appends the signature as &signature=... to the
// query (or to the body when there is no query).
type QueryAppend struct {
	KeyHeader  string // e.g. "X-BB-APIKEY"
	RecvWindow string // e.g. "5000"
}

func (s QueryAppend) Sign(creds Credentials, req Request, now Clock) (Signed, error) {
	if err := creds.Check(); err != nil {
		return Signed{}, err
	}
	query := cloneValues(req.Query)
	query.Set("timestamp", strconv.FormatInt(now().UnixMilli(), 10))
	if s.RecvWindow != "" {
		query.Set("recvWindow", s.RecvWindow)
	}
	queryString := sortedEncode(query)
	payload := string(req.Body) + queryString
	signature := HMACSHA256Hex(creds.Secret, payload)

	// The injected timestamp guarantees a non-empty query, so the signature
	// always travels there.
	query.Set("signature", signature)
	headers := http.Header{}
	headers.Set(s.KeyHeader, creds.APIKey)
	return Signed{Headers: headers, Query: query, Body: req.Body}, nil
}
