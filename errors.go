package bmm

import (
	"errors"
	"fmt"
)

// Sentinel errors for the fatal conditions named in the error handling
// design: capacity exhaustion, unsupported selectors, I/O on the snapshot
// sink, and asynchronous interruption. Particle-add and link-creation
// capacity exhaustion are NOT in this list: those are non-error, silent
// no-ops per spec, not fatal conditions.
var (
	ErrCellOverflow  = errors.New("bmm: cell list exceeded NGROUP")
	ErrNeighOverflow = errors.New("bmm: neighbor list exceeded capacity")
	ErrUnsupported   = errors.New("bmm: unsupported selector")
	ErrSinkWrite     = errors.New("bmm: snapshot sink write failed")
	ErrInterrupted   = errors.New("bmm: interrupted")
)

// Fatal marks an error as one that must bubble to the main loop and
// terminate the run, per the propagation policy in the error handling
// design. Link capacity overflow deliberately does not implement Fatal.
type Fatal interface {
	error
	Fatal() bool
}

type fatalError struct {
	cause error
	where string
}

func newFatal(where string, cause error) *fatalError {
	return &fatalError{cause: cause, where: where}
}

func (e *fatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.where, e.cause)
}

func (e *fatalError) Unwrap() error { return e.cause }

func (e *fatalError) Fatal() bool { return true }
