package errs

import (
	"sort"
	"strings"
)

// Table maps an exchange's error vocabulary onto the shared taxonomy.
// Exact entries match the raw error code (or a full message used as a code)
// verbatim; Broad entries match as case-insensitive substrings of the error
// message. Exact always wins over Broad.
type Table struct {
	Exact map[string]Kind
	Broad map[string]Kind
}

// Classify turns a decoded error payload into a typed *Error. The raw code
// and message are carried verbatim; when nothing matches, the result is the
// catch-all KindExchangeError rather than a swallowed failure.
func (t Table) Classify(exchange, code, message string, httpStatus int) *Error {
	if kind, ok := t.Exact[code]; ok {
		return New(exchange, kind, code, message)
	}
	if kind, ok := t.Exact[message]; ok {
		return New(exchange, kind, code, message)
	}
	if kind, ok := t.broadMatch(message); ok {
		return New(exchange, kind, code, message)
	}
	if kind, ok := httpStatusKind(httpStatus); ok {
		return New(exchange, kind, code, message)
	}
	return New(exchange, KindExchangeError, code, message)
}

// broadMatch scans Broad entries in sorted key order so classification is
// deterministic when several substrings apply.
func (t Table) broadMatch(message string) (Kind, bool) {
	if message == "" || len(t.Broad) == 0 {
		return 0, false
	}
	lower := strings.ToLower(message)
	keys := make([]string, 0, len(t.Broad))
	for k := range t.Broad {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.Contains(lower, strings.ToLower(k)) {
			return t.Broad[k], true
		}
	}
	return 0, false
}

// httpStatusKind covers exchanges that signal failures through the HTTP
// status alone, with an empty or unrecognised body.
func httpStatusKind(status int) (Kind, bool) {
	switch status {
	case 400:
		return KindBadRequest, true
	case 401:
		return KindAuthenticationError, true
	case 403:
		return KindPermissionDenied, true
	case 404:
		return KindBadRequest, true
	case 429:
		return KindRateLimitExceeded, true
	case 418:
		return KindPermissionDenied, true
	case 502, 503, 504:
		return KindExchangeNotAvailable, true
	}
	return 0, false
}
