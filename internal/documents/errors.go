package documents

import "errors"

var (
	ErrNotFound       = errors.New("document not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrAlreadyLive    = errors.New("a non-rejected upload already exists for this document")
	ErrVerifiedLocked = errors.New("verified documents cannot be removed")
	ErrForbidden      = errors.New("document belongs to another student")
)
