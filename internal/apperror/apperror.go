// Package apperror defines the error taxonomy shared by the ledger domains.
//
// Every business failure is an *Error carrying a Kind, a machine-readable
// code and the domain that raised it. Package-level sentinels are compared
// with errors.Is; detailed variants created with Withf still match their
// sentinel.
package apperror

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindSystem Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
	KindInsufficientFunds
	KindInvalidState
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindInvalidState:
		return "invalid_state"
	}

	return "system"
}

type Error struct {
	Kind    Kind
	Code    string
	Domain  string
	Message string

	base *Error
}

func New(kind Kind, domain, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Domain: domain, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is e or the sentinel e was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t == e || (e.base != nil && t == e.base)
}

// Withf returns a copy of e with a more specific message.
func (e *Error) Withf(format string, args ...any) *Error {
	base := e
	if e.base != nil {
		base = e.base
	}

	return &Error{
		Kind:    e.Kind,
		Code:    e.Code,
		Domain:  e.Domain,
		Message: fmt.Sprintf(format, args...),
		base:    base,
	}
}

// As extracts the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}

	return nil, false
}

// KindOf returns KindSystem for anything that is not an *Error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}

	return KindSystem
}

// IsBusiness reports whether err is a domain rule violation rather than an
// infrastructure failure.
func IsBusiness(err error) bool {
	return err != nil && KindOf(err) != KindSystem
}
