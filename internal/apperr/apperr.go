// Package apperr defines the closed set of error kinds the kernel can raise
// and maps each to an HTTP status at the transport edge. It replaces the
// substring-sniffing style spec.md §9 flags as a bug in the source this
// platform is modelled on.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies one of the error categories from spec.md §7.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthRequired
	KindInvalidCredentials
	KindNotFound
	KindInsufficientBalance
	KindInsufficientLiquidity
	KindZeroOutput
	KindRateLimited
	KindSafetyBlocked
	KindVenueError
	KindTimeout
	KindConflict
	KindBadInput
	KindCryptographic
)

// Error is a typed application error carrying a Kind plus free-form detail.
type Error struct {
	Kind    Kind
	Subject string // e.g. "pool", "order", field name, venue status payload
	Err     error  // wrapped cause, optional
}

func (e *Error) Error() string {
	if e.Err != nil {
		if e.Subject != "" {
			return fmt.Sprintf("%s: %s: %v", e.Kind.String(), e.Subject, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Kind.String(), e.Err)
	}
	if e.Subject != "" {
		return fmt.Sprintf("%s: %s", e.Kind.String(), e.Subject)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Err }

func (k Kind) String() string {
	switch k {
	case KindAuthRequired:
		return "auth required"
	case KindInvalidCredentials:
		return "invalid credentials"
	case KindNotFound:
		return "not found"
	case KindInsufficientBalance:
		return "insufficient balance"
	case KindInsufficientLiquidity:
		return "insufficient liquidity"
	case KindZeroOutput:
		return "zero output"
	case KindRateLimited:
		return "rate limited"
	case KindSafetyBlocked:
		return "safety blocked"
	case KindVenueError:
		return "venue error"
	case KindTimeout:
		return "timeout"
	case KindConflict:
		return "conflict"
	case KindBadInput:
		return "bad input"
	case KindCryptographic:
		return "cryptographic error"
	default:
		return "unknown"
	}
}

// New builds an *Error with the given kind and subject.
func New(kind Kind, subject string) *Error {
	return &Error{Kind: kind, Subject: subject}
}

// Wrap builds an *Error around an existing cause.
func Wrap(kind Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Is reports whether err (or anything it wraps) carries the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// HTTPStatus maps an error to the status code the transport layer should
// return. Errors that are not *Error default to 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindAuthRequired, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInsufficientBalance, KindInsufficientLiquidity, KindZeroOutput,
		KindSafetyBlocked, KindBadInput:
		return http.StatusBadRequest
	case KindVenueError:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCryptographic:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
