package apperrors

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrConnection marks failures to connect to or borrow from a database pool.
	ErrConnection = errors.New("database connection error")
)
