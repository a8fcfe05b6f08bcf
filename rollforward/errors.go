/*
errors.go - Centralized error types for the roll-forward engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Upper layers (dataset, api) wrap these with additional context.

ERROR CATEGORIES:
  1. Period errors   - Malformed or out-of-order user selections
  2. Config errors   - Unknown policy / recognition strategy names
  3. Source errors   - Upstream data load failures (non-fatal to the UI)

USAGE:
  if errors.Is(err, rollforward.ErrInvalidPeriod) {
      // 400 to the client, nothing computed
  }
*/
package rollforward

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidPeriod is returned for a malformed period selection
	// (end before start, zero dates). No computation is attempted.
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrPeriodsNotOrdered is returned when a rolling computation receives
	// sub-periods that are not strictly consecutive in time.
	ErrPeriodsNotOrdered = errors.New("sub-periods out of order")

	// ErrUnknownRenewalPolicy is returned for an unrecognized sibling-matching
	// policy name.
	ErrUnknownRenewalPolicy = errors.New("unknown renewal policy")

	// ErrUnknownRecognition is returned for an unrecognized renewal-recognition
	// mode name.
	ErrUnknownRecognition = errors.New("unknown renewal recognition mode")

	// ErrSourceUnavailable wraps upstream connectivity failures. The report
	// layer degrades to an empty record set instead of crashing.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// PeriodError reports which selection was rejected.
type PeriodError struct {
	Period Period
	Reason string
}

func (e *PeriodError) Error() string {
	return fmt.Sprintf("invalid period %s: %s", e.Period, e.Reason)
}

func (e *PeriodError) Unwrap() error { return ErrInvalidPeriod }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid user input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrPeriodsNotOrdered) ||
		errors.Is(err, ErrUnknownRenewalPolicy) ||
		errors.Is(err, ErrUnknownRecognition)
}

// IsSourceError returns true if the error came from the upstream store and
// should be surfaced as a warning rather than a failure.
func IsSourceError(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
