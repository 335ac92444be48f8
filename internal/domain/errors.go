package domain

import "errors"

// Storage-level sentinel errors. Repositories wrap these; services translate
// them into apperr values with a message fit for the caller.
var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicate   = errors.New("duplicate record")
	ErrStaleStatus = errors.New("status changed concurrently")
)
