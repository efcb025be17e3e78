// Package errs defines the error taxonomy shared by every exchange adapter.
// All failures, regardless of the underlying wire format, surface as *Error
// values that unwrap to one of the kind sentinels below, so callers can use
// errors.Is across exchanges.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one class of failure in the shared taxonomy.
type Kind int

const (
	KindExchangeError Kind = iota // catch-all for unclassified remote failures
	KindBadRequest
	KindBadSymbol
	KindInvalidOrder
	KindOrderNotFound
	KindInsufficientFunds
	KindArgumentsRequired
	KindAuthenticationError
	KindPermissionDenied
	KindRateLimitExceeded
	KindInvalidNonce
	KindOperationRejected
	KindOperationFailed
	KindAccountSuspended
	KindNotSupported
	KindMarketClosed
	KindExchangeNotAvailable
	KindOnMaintenance
	KindDuplicateOrderID
)

// Kind sentinels. An *Error unwraps to the sentinel matching its kind.
var (
	ErrExchange             = errors.New("exchange error")
	ErrBadRequest           = errors.New("bad request")
	ErrBadSymbol            = errors.New("bad symbol")
	ErrInvalidOrder         = errors.New("invalid order")
	ErrOrderNotFound        = errors.New("order not found")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrArgumentsRequired    = errors.New("arguments required")
	ErrAuthentication       = errors.New("authentication error")
	ErrPermissionDenied     = errors.New("permission denied")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrInvalidNonce         = errors.New("invalid nonce")
	ErrOperationRejected    = errors.New("operation rejected")
	ErrOperationFailed      = errors.New("operation failed")
	ErrAccountSuspended     = errors.New("account suspended")
	ErrNotSupported         = errors.New("not supported")
	ErrMarketClosed         = errors.New("market closed")
	ErrExchangeNotAvailable = errors.New("exchange not available")
	ErrOnMaintenance        = errors.New("on maintenance")
	ErrDuplicateOrderID     = errors.New("duplicate order id")
)

var sentinels = map[Kind]error{
	KindExchangeError:        ErrExchange,
	KindBadRequest:           ErrBadRequest,
	KindBadSymbol:            ErrBadSymbol,
	KindInvalidOrder:         ErrInvalidOrder,
	KindOrderNotFound:        ErrOrderNotFound,
	KindInsufficientFunds:    ErrInsufficientFunds,
	KindArgumentsRequired:    ErrArgumentsRequired,
	KindAuthenticationError:  ErrAuthentication,
	KindPermissionDenied:     ErrPermissionDenied,
	KindRateLimitExceeded:    ErrRateLimitExceeded,
	KindInvalidNonce:         ErrInvalidNonce,
	KindOperationRejected:    ErrOperationRejected,
	KindOperationFailed:      ErrOperationFailed,
	KindAccountSuspended:     ErrAccountSuspended,
	KindNotSupported:         ErrNotSupported,
	KindMarketClosed:         ErrMarketClosed,
	KindExchangeNotAvailable: ErrExchangeNotAvailable,
	KindOnMaintenance:        ErrOnMaintenance,
	KindDuplicateOrderID:     ErrDuplicateOrderID,
}

// Error carries the adapter id, the taxonomy kind and the untranslated
// exchange code/message for diagnosis. Local reports whether the error was
// raised before any network call was attempted.
type Error struct {
	Exchange string
	Kind     Kind
	Code     string
	Message  string
	Local    bool
}

func (e *Error) Error() string {
	base := sentinels[e.Kind].Error()
	switch {
	case e.Code != "" && e.Message != "":
		return fmt.Sprintf("%s: %s (code %s): %s", e.Exchange, base, e.Code, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: %s: %s", e.Exchange, base, e.Message)
	case e.Code != "":
		return fmt.Sprintf("%s: %s (code %s)", e.Exchange, base, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Exchange, base)
}

// Unwrap returns the sentinel for the error's kind so that
// errors.Is(err, errs.ErrRateLimitExceeded) works.
func (e *Error) Unwrap() error {
	return sentinels[e.Kind]
}

// New builds a remote error of the given kind.
func New(exchange string, kind Kind, code, message string) *Error {
	return &Error{Exchange: exchange, Kind: kind, Code: code, Message: message}
}

// Local builds a local-validation error: raised synchronously, before any
// network call.
func Local(exchange string, kind Kind, message string) *Error {
	return &Error{Exchange: exchange, Kind: kind, Message: message, Local: true}
}

// ArgumentsRequired reports a missing unified parameter.
func ArgumentsRequired(exchange, message string) *Error {
	return Local(exchange, KindArgumentsRequired, message)
}

// NotSupported reports an operation the exchange does not offer.
func NotSupported(exchange, operation string) *Error {
	return Local(exchange, KindNotSupported, operation+" is not supported")
}

// InvalidOrder reports a parameter combination the exchange would reject.
func InvalidOrder(exchange, message string) *Error {
	return Local(exchange, KindInvalidOrder, message)
}

// Authentication reports missing or expired credentials.
func Authentication(exchange, message string) *Error {
	return Local(exchange, KindAuthenticationError, message)
}

// BadRequest reports an out-of-bounds or malformed request detected locally.
func BadRequest(exchange, message string) *Error {
	return Local(exchange, KindBadRequest, message)
}

// Transient reports whether err is worth one more attempt. Rate limit errors
// are deliberately excluded: the caller owns its own backoff.
func Transient(err error) bool {
	return errors.Is(err, ErrExchangeNotAvailable) ||
		errors.Is(err, ErrOnMaintenance) ||
		errors.Is(err, ErrOperationFailed)
}
