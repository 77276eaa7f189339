package payments

import "errors"

var (
	ErrNotFound      = errors.New("payment not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotConfigured = errors.New("no application fee is configured for this university")
	ErrAlreadyPaid   = errors.New("application fee is already paid")
	ErrGateway       = errors.New("payment gateway request failed")
)
