package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies why an analysis could not produce a result.
type ErrorKind string

const (
	KindInsufficientData    ErrorKind = "INSUFFICIENT_DATA"
	KindMissingFinancials   ErrorKind = "MISSING_FINANCIALS"
	KindInvalidAssumptions  ErrorKind = "INVALID_ASSUMPTIONS"
	KindProviderUnavailable ErrorKind = "PROVIDER_UNAVAILABLE"
)

// Sentinels for errors.Is matching on kind.
var (
	ErrInsufficientData    = &Error{Kind: KindInsufficientData}
	ErrMissingFinancials   = &Error{Kind: KindMissingFinancials}
	ErrInvalidAssumptions  = &Error{Kind: KindInvalidAssumptions}
	ErrProviderUnavailable = &Error{Kind: KindProviderUnavailable}
)

// Error carries the kind of failure plus enough context to render a message.
type Error struct {
	Kind   ErrorKind
	Symbol string
	Stage  string
	Param  string
	Msg    string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.ReplaceAll(string(e.Kind), "_", " ")))
	if e.Symbol != "" {
		fmt.Fprintf(&b, " [%s]", e.Symbol)
	}
	if e.Stage != "" {
		fmt.Fprintf(&b, " %s", e.Stage)
	}
	if e.Param != "" {
		fmt.Fprintf(&b, " (%s)", e.Param)
	}
	if e.Msg != "" {
		fmt.Fprintf(&b, ": %s", e.Msg)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so the sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Symbol == "" && t.Stage == "" && t.Msg == ""
}

// Insufficient builds an InsufficientData error.
func Insufficient(stage, format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientData, Stage: stage, Msg: fmt.Sprintf(format, args...)}
}

// Missing builds a MissingFinancials error for a named line item.
func Missing(stage, item string) *Error {
	return &Error{Kind: KindMissingFinancials, Stage: stage, Param: item, Msg: "line item not reported"}
}

// Invalid builds an InvalidAssumptions error naming the offending parameter.
func Invalid(stage, param, format string, args ...any) *Error {
	return &Error{Kind: KindInvalidAssumptions, Stage: stage, Param: param, Msg: fmt.Sprintf(format, args...)}
}

// Unavailable wraps a provider failure.
func Unavailable(stage string, err error) *Error {
	return &Error{Kind: KindProviderUnavailable, Stage: stage, Err: err}
}

// WithSymbol attaches a symbol to err if it is an *Error without one.
// Other errors are returned unchanged.
func WithSymbol(err error, symbol string) error {
	e, ok := err.(*Error)
	if !ok {
		return err
	}
	if e.Symbol == "" {
		cp := *e
		cp.Symbol = symbol
		return &cp
	}
	return err
}

// KindOf reports the kind of err, or "" when it is not an analysis error.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
