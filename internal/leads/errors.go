package leads

import "errors"

var (
	ErrNotFound     = errors.New("lead not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidState = errors.New("stage transition not allowed")
	ErrForbidden    = errors.New("lead belongs to another university")
)
