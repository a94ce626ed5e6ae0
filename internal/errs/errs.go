// Package errs defines the fatal error kinds the critical-path backends can
// surface from Finish, each wrapped with context via github.com/pkg/errors.
package errs

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

// Sentinel errors for the three fatal kinds a backend's Finish can report.
// SoftSkip and SendAfterClose are not here: they are absorbed locally and
// never surface as errors.
var (
	ErrContractViolation  = errors.New("graph contract violation")
	ErrOverflow           = errors.New("duration exceeds 64-bit microsecond range")
	ErrComputationFailure = errors.New("critical path computation failed")
)

// ContractViolation wraps ErrContractViolation with context, e.g. a
// duplicate vertex key rejected by the graph builder.
func ContractViolation(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrContractViolation, format, args...)
}

// Overflow wraps ErrOverflow with context, e.g. the vertex key whose
// duration didn't fit in a uint64 microsecond count.
func Overflow(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrOverflow, format, args...)
}

// ComputationFailure wraps ErrComputationFailure with context from the
// longest-path-with-potentials routine.
func ComputationFailure(format string, args ...any) error {
	return pkgerrors.Wrapf(ErrComputationFailure, format, args...)
}

// Is reports whether err is (or wraps) one of the sentinel kinds above.
// Exposed so callers outside this package don't need to import both
// "errors" and this package to check kinds.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
