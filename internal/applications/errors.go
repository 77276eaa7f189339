package applications

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound          = errors.New("application not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNoStepsConfigured = errors.New("no steps configured")
	ErrStepNotEnabled    = errors.New("step not enabled for this university")
	ErrNavigationDenied  = errors.New("navigation to step denied")
	ErrAlreadySubmitted  = errors.New("application already submitted")
	ErrStepsIncomplete   = errors.New("required steps incomplete")
	ErrForbidden         = errors.New("not the owner of this application")
)

// IncompleteStepsError reports the steps still blocking final submission.
type IncompleteStepsError struct {
	Missing []string
}

func (e *IncompleteStepsError) Error() string {
	return fmt.Sprintf("%v: %s", ErrStepsIncomplete, strings.Join(e.Missing, ", "))
}

func (e *IncompleteStepsError) Unwrap() error { return ErrStepsIncomplete }
