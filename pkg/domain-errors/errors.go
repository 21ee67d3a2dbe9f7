// Package domainerrors defines the coded error vocabulary of the core.
//
// Errors fall into four kinds: authorization (Unauthorized, NotCompliant),
// input validity (AmountZero, ParameterOutOfRange, InvalidCommitment),
// invariant violation (BorrowTooLarge, InsufficientCollateral,
// InsufficientBalance), and external-effect failure (PayoutFailed). Every
// failure aborts the whole operation; nothing is retried or silently
// recovered inside the core.
package domainerrors

import (
	"errors"
	"net/http"
)

// Code classifies a domain error for callers and for HTTP translation.
type Code string

const (
	// Authorization.
	CodeUnauthorized Code = "unauthorized"
	CodeNotCompliant Code = "not_compliant"

	// Input validity.
	CodeAmountZero          Code = "amount_zero"
	CodeParameterOutOfRange Code = "parameter_out_of_range"
	CodeInvalidCommitment   Code = "invalid_commitment"
	CodeNoPendingRequest    Code = "no_pending_request"
	CodeNoDebt              Code = "no_debt"
	CodeBadRequest          Code = "bad_request"

	// Invariant violation.
	CodeBorrowTooLarge         Code = "borrow_too_large"
	CodeInsufficientCollateral Code = "insufficient_collateral"
	CodeInsufficientBalance    Code = "insufficient_balance"
	CodeReentrantCall          Code = "reentrant_call"

	// External-effect failure.
	CodePayoutFailed Code = "payout_failed"

	// Transport / infrastructure.
	CodeNotFound Code = "not_found"
	CodeInternal Code = "internal"
)

// DomainError carries a code and a human-readable message. The message is
// safe to return to callers; it never contains dossier contents or secrets.
type DomainError struct {
	Code    Code
	Message string
	cause   error
}

func (e DomainError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return e.Message
}

func (e DomainError) Unwrap() error {
	return e.cause
}

// New creates a coded domain error.
func New(code Code, message string) error {
	return DomainError{Code: code, Message: message}
}

// Wrap creates a coded domain error that preserves the underlying cause for
// errors.Is/errors.As chains.
func Wrap(code Code, message string, cause error) error {
	return DomainError{Code: code, Message: message, cause: cause}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var de DomainError
	for e := err; e != nil; e = errors.Unwrap(e) {
		if errors.As(e, &de) && de.Code == code {
			return true
		}
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors.
func CodeOf(err error) Code {
	var de DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the status the HTTP layer should return.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeNotCompliant:
		return http.StatusForbidden
	case CodeAmountZero, CodeParameterOutOfRange, CodeInvalidCommitment,
		CodeNoPendingRequest, CodeNoDebt, CodeBadRequest:
		return http.StatusBadRequest
	case CodeBorrowTooLarge, CodeInsufficientCollateral,
		CodeInsufficientBalance, CodeReentrantCall:
		return http.StatusConflict
	case CodePayoutFailed:
		return http.StatusBadGateway
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
