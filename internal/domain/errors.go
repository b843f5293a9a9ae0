package domain

import (
	"errors"
	"fmt"
)

// KnownError is an expected operational failure: delivery rejection,
// connectivity loss after retries, a validation failure. Its message is the
// whole story, so the CLI logs it without the usual diagnostic detail.
type KnownError struct {
	Msg string
	Err error
}

func (e *KnownError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *KnownError) Unwrap() error { return e.Err }

// Knownf creates a KnownError from a format string.
func Knownf(format string, args ...interface{}) error {
	return &KnownError{Msg: fmt.Sprintf(format, args...)}
}

// BatchTooLargeError reports that a single message serializes above the
// request size limit, so no amount of splitting can produce a deliverable
// body. It is fatal and never retried.
type BatchTooLargeError struct {
	Limit int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("a single record is larger than the batch size limit of %d bytes", e.Limit)
}

// IsKnown reports whether err belongs to the known error class.
func IsKnown(err error) bool {
	var ke *KnownError
	var be *BatchTooLargeError
	return errors.As(err, &ke) || errors.As(err, &be)
}
