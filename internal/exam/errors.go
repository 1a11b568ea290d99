package exam

import "errors"

var (
	// ErrTestNotFound covers both a missing test and a test owned by another
	// user; callers must not be able to tell the two apart.
	ErrTestNotFound    = errors.New("test not found")
	ErrAttemptNotFound = errors.New("attempt not found")

	// ErrAlreadyCompleted is returned when a completed attempt is submitted
	// again. The stored result is left untouched.
	ErrAlreadyCompleted = errors.New("attempt already submitted")

	// ErrInsufficientContent means the bank had zero eligible questions for
	// the requested assembly. Nothing is persisted.
	ErrInsufficientContent = errors.New("not enough questions in the bank")

	ErrInvalidSection = errors.New("invalid section")
	ErrInvalidType    = errors.New("invalid test type")

	ErrMissingAttemptID = errors.New("attempt id is missing")
)
