package entities

import (
	"errors"
	"fmt"

	"github.com/sigwatch-dev/sigwatch/collection/values"
)

// Sentinel errors for common error patterns.
// These allow both errors.Is() checks and errors.As() for detailed information.
var (
	// ErrValidationFailed is returned when at least one collection failed
	// signature verification.
	ErrValidationFailed = errors.New("signature validation failed")

	// ErrConsistencyFailed is returned when at least one registry entry
	// disagrees with its collection's live timestamp.
	ErrConsistencyFailed = errors.New("changes consistency check failed")

	// ErrMissingSignature is returned when collection metadata carries no
	// signature to verify.
	ErrMissingSignature = errors.New("collection has no signature")
)

// ValidationError aggregates every per-collection failure of a validation
// run. Its message is the full diagnostic report, sufficient to diagnose
// without re-running.
type ValidationError struct {
	Failures []ReportEntry
	Message  string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is implements error matching for errors.Is() checks.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ConsistencyMismatch is one registry entry whose recorded timestamp
// disagrees with the referenced collection's live timestamp.
type ConsistencyMismatch struct {
	Ref      values.CollectionRef
	Recorded string
	Live     string
}

func (m ConsistencyMismatch) String() string {
	return fmt.Sprintf("%s: recorded %s != live %s", m.Ref, m.Recorded, m.Live)
}

// ConsistencyError aggregates every mismatch found by the consistency
// checker.
type ConsistencyError struct {
	Mismatches []ConsistencyMismatch
}

func (e *ConsistencyError) Error() string {
	msg := fmt.Sprintf("%d collections did not validate", len(e.Mismatches))
	for _, m := range e.Mismatches {
		msg += "\n - " + m.String()
	}
	return msg
}

// Is implements error matching for errors.Is() checks.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistencyFailed
}
