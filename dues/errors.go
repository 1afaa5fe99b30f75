/*
errors.go - Centralized error types for the dues engine and ledger

ERROR CATEGORIES:
  1. Definition errors - recurrence configuration the engine cannot use
  2. Request errors - caller asked for something that makes no sense
  3. Ledger errors - payment writes that break a ledger rule
  4. Store errors - missing rows

USAGE:
  if errors.Is(err, dues.ErrNotPeriodic) {
      // once-kind type: show the single status instead of progress
  }

SEE ALSO:
  - period.go, aggregate.go: engine errors
  - ledger.go: ledger errors
  - api/handlers.go: maps these errors to HTTP statuses
*/
package dues

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrUnsupportedPeriodKind is returned for kinds without period rules
	// (daily, or anything unrecognized).
	ErrUnsupportedPeriodKind = errors.New("unsupported period kind")

	// ErrNotPeriodic is returned when period statistics are requested for a
	// once-kind definition.
	ErrNotPeriodic = errors.New("contribution type is not periodic")

	// ErrInvalidPeriodKey is returned when a period key does not match the
	// canonical format of the definition's kind.
	ErrInvalidPeriodKey = errors.New("invalid period key")

	// ErrInvalidDefinition is returned by the configuration layer.
	ErrInvalidDefinition = errors.New("invalid recurrence definition")

	// ErrNotFound is returned when a referenced row doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrWalletRequired is returned when a contribution type has no wallet
	// to receive payments.
	ErrWalletRequired = errors.New("contribution type has no wallet")

	// ErrAlreadyVerified is returned when verifying a record that is no
	// longer pending.
	ErrAlreadyVerified = errors.New("payment already verified or rejected")

	// ErrInvalidStatus is returned for a verification target other than
	// paid or rejected.
	ErrInvalidStatus = errors.New("invalid payment status")

	// ErrDuplicatePayment is returned when a subject already has a live
	// (pending or paid) record for the period.
	ErrDuplicatePayment = errors.New("payment already recorded for period")

	// ErrPeriodRequired is returned when a payment for a periodic type
	// carries no period key.
	ErrPeriodRequired = errors.New("payment period required")

	// ErrTypeInUse is returned when deleting a contribution type that
	// already has payment records.
	ErrTypeInUse = errors.New("contribution type has payment records")

	// ErrInvalidAmount is returned for negative amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrAlreadyExists is returned when creating a row whose ID is taken.
	ErrAlreadyExists = errors.New("already exists")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// DefinitionError names the kind that could not be enumerated.
type DefinitionError struct {
	Kind PeriodKind
	Err  error
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("period kind %q: %v", e.Kind, e.Err)
}

func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// PeriodKeyError carries the rejected key.
type PeriodKeyError struct {
	Kind PeriodKind
	Key  string
}

func (e *PeriodKeyError) Error() string {
	return fmt.Sprintf("invalid period key %q for %s", e.Key, e.Kind)
}

func (e *PeriodKeyError) Unwrap() error {
	return ErrInvalidPeriodKey
}

// NotFoundError names what was missing.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError names the row a create collided with.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s %q already exists", e.Entity, e.ID)
}

func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnsupportedPeriodKind) ||
		errors.Is(err, ErrNotPeriodic) ||
		errors.Is(err, ErrInvalidPeriodKey) ||
		errors.Is(err, ErrInvalidDefinition) ||
		errors.Is(err, ErrWalletRequired) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrPeriodRequired) ||
		errors.Is(err, ErrInvalidAmount)
}

// IsConflict returns true if the request clashes with existing ledger state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyVerified) ||
		errors.Is(err, ErrDuplicatePayment) ||
		errors.Is(err, ErrTypeInUse) ||
		errors.Is(err, ErrAlreadyExists)
}

// IsNotFound returns true if the error indicates a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
