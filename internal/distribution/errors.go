package distribution

import (
	"errors"
	"fmt"
)

// Kind classifies an engine failure for callers that map errors to transport codes.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindNotFound            Kind = "not_found"
	KindAuthorization       Kind = "authorization"
	KindStateConflict       Kind = "state_conflict"
	KindTransientDependency Kind = "transient_dependency"
	KindInternal            Kind = "internal"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicateDistribution  = errors.New("distribution already exists for this period")
	ErrNoCirculatingTokens    = errors.New("project has no circulating tokens")
	ErrDistributionNotFound   = errors.New("distribution not found")
	ErrClaimNotFound          = errors.New("claim not found")
	ErrNotClaimOwner          = errors.New("caller does not own this claim")
	ErrForbidden              = errors.New("operation not permitted")
	ErrClaimNotPending        = errors.New("claim is not pending")
	ErrDistributionNotOpen    = errors.New("distribution is not open for claims")
	ErrSettlementReferenceSet = errors.New("settlement reference already attached")
	ErrClaimProcessingFailed  = errors.New("claim processing failed, please retry")
	ErrLedgerUnavailable      = errors.New("investment ledger unavailable")

	// ErrStaleClaim is returned by ClaimStore.SwapClaim when the stored claim no
	// longer matches the expected status and version.
	ErrStaleClaim = errors.New("claim was modified concurrently")

	// ErrReservationNotFound is returned by DistributionStore when a conditional
	// update finds no row in the expected status.
	ErrReservationNotFound = errors.New("no distribution in the expected status")
)

// Error is the typed error returned by Engine operations.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the same request unchanged.
func (e *Error) Retryable() bool { return e.Kind == KindTransientDependency }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func validationf(op, format string, args ...any) *Error {
	return newError(KindValidation, op, fmt.Errorf("%w: "+format, append([]any{ErrInvalidInput}, args...)...))
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is a transient failure the caller may retry.
func Retryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable()
}
