package policy

import (
	"errors"
	"fmt"
)

// Reason codes every policy rejection carries, so trust decisions can be
// audited with the exact failing rule rather than a generic failure.
type Reason string

const (
	ReasonEntityNotInOwner Reason = "entity-not-in-owner"
	ReasonWrongIssuer      Reason = "wrong-issuer"
	ReasonWrongType        Reason = "wrong-type"
	ReasonExpired          Reason = "already-expired"
	ReasonStructure        Reason = "structure-invalid"
	ReasonSignature        Reason = "signature-invalid"
)

// Error is raised only from the apply phase of an operation. The operation is
// not applied; clean still runs.
type Error struct {
	Op     string
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("policy %s rejected (%s): %v", e.Op, e.Reason, e.Err)
	}
	return fmt.Sprintf("policy %s rejected (%s)", e.Op, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any policy Error, or one with the same reason when the target
// carries one.
func (e *Error) Is(target error) bool {
	var pe *Error
	if !errors.As(target, &pe) {
		return false
	}
	return pe.Reason == "" || pe.Reason == e.Reason
}

func reject(op string, reason Reason, err error) *Error {
	return &Error{Op: op, Reason: reason, Err: err}
}
