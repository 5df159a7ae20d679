// Package errs holds the domain error taxonomy shared by the store, the
// services and the HTTP layer.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrAlreadyExists     = errors.New("record already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrExternalService   = errors.New("external service failure")
	ErrPartialWrite      = errors.New("partial write")
	ErrTicketClosed      = errors.New("ticket is closed")
	ErrUnauthenticated   = errors.New("unauthenticated")
)

// PartialWriteError reports a composite operation whose first step committed
// and whose later step failed. The record stays in the first step's state.
type PartialWriteError struct {
	Step string
	Err  error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write at %s: %v", e.Step, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

func (e *PartialWriteError) Is(target error) bool { return target == ErrPartialWrite }

// Transition builds an ErrInvalidTransition carrying both statuses.
func Transition(from, to string) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Invalid builds an ErrInvalidArgument with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
