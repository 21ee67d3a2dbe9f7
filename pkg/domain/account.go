package domain

import (
	dErrors "clearledger/pkg/domain-errors"
)

// AccountID identifies a participant in the ledger. It is an opaque external
// identifier (wallet address, custody reference, institution code); the core
// never derives meaning from its contents.
//
// Usage: construct via ParseAccountID at trust boundaries to enforce basic
// shape; direct casting bypasses validation.
type AccountID string

const maxAccountIDLen = 128

// ParseAccountID constructs an AccountID from external input.
//
// Errors: returns CodeBadRequest when the value is empty or oversized; no
// other errors are expected.
func ParseAccountID(s string) (AccountID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "account id cannot be empty")
	}
	if len(s) > maxAccountIDLen {
		return "", dErrors.New(dErrors.CodeBadRequest, "account id too long")
	}
	return AccountID(s), nil
}

// IsZero reports whether the account ID is unset.
func (a AccountID) IsZero() bool {
	return a == ""
}

// String returns the string representation of the account ID.
func (a AccountID) String() string {
	return string(a)
}
