package models

import "errors"

// Sentinel errors for pipeline rejections
var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrCSRFInvalid   = errors.New("csrf token invalid")
	ErrSpamSuspected = errors.New("spam suspected")
	ErrTiming        = errors.New("form timing invalid")
	ErrValidation    = errors.New("validation failed")
	ErrNotifyFailed  = errors.New("notification delivery failed")
)

// ErrNotFound is returned by stores for unknown keys
var ErrNotFound = errors.New("resource not found")

// RejectionError carries the user-facing message for a rejected submission.
// Kind is one of the pipeline sentinels above.
type RejectionError struct {
	Kind    error
	Gate    string
	Message string
}

func (e *RejectionError) Error() string {
	return e.Gate + ": " + e.Kind.Error()
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

// Reject builds a RejectionError for the given gate.
func Reject(gate string, kind error, message string) *RejectionError {
	return &RejectionError{Kind: kind, Gate: gate, Message: message}
}
