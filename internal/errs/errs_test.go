package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartialWriteError(t *testing.T) {
	cause := errors.New("template read failed")
	err := error(&PartialWriteError{Step: "copy_program_form", Err: cause})

	assert.True(t, errors.Is(err, ErrPartialWrite))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "copy_program_form")

	var pw *PartialWriteError
	assert.True(t, errors.As(err, &pw))
	assert.Equal(t, "copy_program_form", pw.Step)
}

func TestTransitionAndInvalid(t *testing.T) {
	err := Transition("rejected", "approved")
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Contains(t, err.Error(), "rejected -> approved")

	err = Invalid("kind %q", "other")
	assert.True(t, errors.Is(err, ErrInvalidArgument))
	assert.Contains(t, err.Error(), `kind "other"`)
}
