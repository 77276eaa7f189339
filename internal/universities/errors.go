package universities

import "errors"

var (
	ErrNotFound       = errors.New("university not found")
	ErrConfigNotFound = errors.New("registration config not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDuplicateCode  = errors.New("university code already exists")
)
