package exams

import "errors"

var (
	ErrNotFound      = errors.New("attempt not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrAttemptExists = errors.New("an attempt already exists for this application")
	ErrInvalidState  = errors.New("action not valid in the attempt's current state")
	ErrConflict      = errors.New("evaluator already holds answers for this attempt")
	ErrNotConfigured = errors.New("entrance test is not configured for this university")
	ErrForbidden     = errors.New("attempt belongs to another student")
)
