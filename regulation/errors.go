/*
errors.go - Centralized error taxonomy for the engine

PURPOSE:
  All error types in one place. Components wrap these with context;
  callers branch with errors.Is/errors.As rather than string matching.

ERROR CATEGORIES:
  1. Lifecycle errors  - store used before a successful load
  2. Document errors   - persisted rule document missing or invalid
  3. Input errors      - caller value outside a defined band/range
  4. Lookup errors     - unknown regulation or sector key
  5. Collaborator errors - external ranking service failed or timed out

RECOVERY CONTRACT:
  Only ErrExternalService is recoverable (callers fall back to local
  keyword search). Everything else surfaces to the caller as a typed
  failure; no operation returns a partial result.
*/
package regulation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotInitialized is returned when a store operation runs before a
	// successful Load.
	ErrNotInitialized = errors.New("regulation store not initialized")

	// ErrCorruptDocument is returned when a persisted regulation document
	// is missing or structurally invalid.
	ErrCorruptDocument = errors.New("corrupt regulation document")

	// ErrInvalidInput is returned when a caller-supplied value falls
	// outside a defined band or range.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownRegulation is returned when a regulation id is not held
	// by the store.
	ErrUnknownRegulation = errors.New("unknown regulation")

	// ErrUnknownSector is returned when a sector is absent from the
	// business impact matrix.
	ErrUnknownSector = errors.New("unknown sector")

	// ErrExternalService is returned when the semantic ranking
	// collaborator fails or times out. Callers recover by falling back
	// to local keyword search.
	ErrExternalService = errors.New("external service failure")
)

// =============================================================================
// STRUCTURED ERRORS - Carry the offending field/value and allowed range
// =============================================================================

// CorruptDocumentError identifies which document failed and why.
type CorruptDocumentError struct {
	ID     RegulationID
	Path   string
	Reason string
}

func (e *CorruptDocumentError) Error() string {
	return fmt.Sprintf("corrupt regulation document %q (%s): %s", e.ID, e.Path, e.Reason)
}

func (e *CorruptDocumentError) Unwrap() error { return ErrCorruptDocument }

// InvalidInputError names the offending field and value, and the allowed
// range when one is defined.
type InvalidInputError struct {
	Field string
	Value any
	Min   any
	Max   any
}

func (e *InvalidInputError) Error() string {
	if e.Min != nil || e.Max != nil {
		return fmt.Sprintf("invalid %s: %v (allowed range %v..%v)", e.Field, e.Value, e.Min, e.Max)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Value)
}

func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// UnknownRegulationError carries the missing id and the ids actually held.
type UnknownRegulationError struct {
	ID    RegulationID
	Known []RegulationID
}

func (e *UnknownRegulationError) Error() string {
	return fmt.Sprintf("unknown regulation %q (known: %v)", e.ID, e.Known)
}

func (e *UnknownRegulationError) Unwrap() error { return ErrUnknownRegulation }

// UnknownSectorError carries the missing sector and the sectors defined
// by the impact matrix.
type UnknownSectorError struct {
	Sector string
	Known  []string
}

func (e *UnknownSectorError) Error() string {
	return fmt.Sprintf("unknown sector %q (known: %v)", e.Sector, e.Known)
}

func (e *UnknownSectorError) Unwrap() error { return ErrUnknownSector }

// ExternalServiceError wraps a failed collaborator call.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return ErrExternalService }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing lookup key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUnknownRegulation) ||
		errors.Is(err, ErrUnknownSector)
}

// IsRecoverable returns true if the caller may fall back to a local path.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrExternalService)
}
