// Package tradeerr defines the stable error kinds returned for rejected or
// failed orders.
package tradeerr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindInvalidQuantity         Kind = "INVALID_QUANTITY"
	KindInvalidOrder            Kind = "INVALID_ORDER"
	KindInstrumentNotFound      Kind = "INSTRUMENT_NOT_FOUND"
	KindAccountNotFound         Kind = "ACCOUNT_NOT_FOUND"
	KindContractExpired         Kind = "CONTRACT_EXPIRED"
	KindInsufficientFunds       Kind = "INSUFFICIENT_FUNDS"
	KindInsufficientHoldings    Kind = "INSUFFICIENT_HOLDINGS"
	KindCannotSellUnownedOption Kind = "CANNOT_SELL_UNOWNED_OPTION"
	KindConcurrencyConflict     Kind = "CONCURRENCY_CONFLICT"
	KindPersistenceFailure      Kind = "PERSISTENCE_FAILURE"
)

// Sentinels for errors.Is; every *Error matches the sentinel of its kind.
var (
	ErrInvalidQuantity         = errors.New("invalid quantity")
	ErrInvalidOrder            = errors.New("invalid order")
	ErrInstrumentNotFound      = errors.New("instrument not found")
	ErrAccountNotFound         = errors.New("account not found")
	ErrContractExpired         = errors.New("contract expired")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrInsufficientHoldings    = errors.New("insufficient holdings")
	ErrCannotSellUnownedOption = errors.New("cannot sell unowned option")
	ErrConcurrencyConflict     = errors.New("concurrency conflict")
	ErrPersistenceFailure      = errors.New("persistence failure")
)

// ErrOutcomeUnknown marks a persistence failure raised while committing. The
// order may or may not have been written.
var ErrOutcomeUnknown = errors.New("commit outcome unknown")

var sentinels = map[Kind]error{
	KindInvalidQuantity:         ErrInvalidQuantity,
	KindInvalidOrder:            ErrInvalidOrder,
	KindInstrumentNotFound:      ErrInstrumentNotFound,
	KindAccountNotFound:         ErrAccountNotFound,
	KindContractExpired:         ErrContractExpired,
	KindInsufficientFunds:       ErrInsufficientFunds,
	KindInsufficientHoldings:    ErrInsufficientHoldings,
	KindCannotSellUnownedOption: ErrCannotSellUnownedOption,
	KindConcurrencyConflict:     ErrConcurrencyConflict,
	KindPersistenceFailure:      ErrPersistenceFailure,
}

// Error carries a stable Kind plus a human readable reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Retryable reports whether resubmitting the identical order is safe and may
// succeed. A failed commit is not: the first order may have gone through.
func (e *Error) Retryable() bool {
	if errors.Is(e.Err, ErrOutcomeUnknown) {
		return false
	}
	return e.Kind == KindConcurrencyConflict || e.Kind == KindPersistenceFailure
}

func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return false
}

// OutcomeUnknown reports whether err failed at commit time.
func OutcomeUnknown(err error) bool {
	return errors.Is(err, ErrOutcomeUnknown)
}

// Reason returns the human readable part of err, falling back to err.Error().
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return err.Error()
}
