package fintrack

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by a run wraps one of them, or is an
// infrastructure error from the store.
var (
	// ErrPrecondition reports invalid input: the run did not write anything
	// beyond the step that detected it.
	ErrPrecondition = errors.New("precondition failed")
	// ErrMissingReferenceData reports a forex rate or a stock price required
	// by a conversion and not present in the store.
	ErrMissingReferenceData = errors.New("missing reference data")
)

// Preconditions.
var (
	ErrStartDateNotAfterOpening = fmt.Errorf("%w: start date must be after the opening date", ErrPrecondition)
	ErrFutureStartDate          = fmt.Errorf("%w: start date is in the future", ErrPrecondition)
	ErrUnknownAccount           = fmt.Errorf("%w: unknown account", ErrPrecondition)
	ErrMissingLeg               = fmt.Errorf("%w: missing booking leg", ErrPrecondition)
	ErrUnbalanced               = fmt.Errorf("%w: unbalanced transaction", ErrPrecondition)
	ErrInvalidTransaction       = fmt.Errorf("%w: invalid transaction", ErrPrecondition)
	ErrMissingBaseBalances      = fmt.Errorf("%w: missing base day balances", ErrPrecondition)
	ErrDuplicateTransfer        = fmt.Errorf("%w: transfer recorded in two periods", ErrPrecondition)
)

// Missing reference data.
var (
	ErrMissingRate  = fmt.Errorf("%w: forex rate", ErrMissingReferenceData)
	ErrMissingPrice = fmt.Errorf("%w: stock price", ErrMissingReferenceData)
)

// RunError is returned by Engine.Recalculate. Step names the step that
// failed, Err the cause.
type RunError struct {
	Run  string
	Step string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("recalculation %s failed at %s: %v", e.Run, e.Step, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
