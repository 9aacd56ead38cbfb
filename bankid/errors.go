package bankid

import "fmt"

// ErrorKind classifies every failed exchange with the relying-party API.
// It implements error so callers can match it with errors.Is.
type ErrorKind string

const (
	ErrNotInitialized       ErrorKind = "NOT_INITIALIZED"
	ErrInvalidParameters    ErrorKind = "INVALID_PARAMETERS"
	ErrUnauthorized         ErrorKind = "UNAUTHORIZED"
	ErrNotFound             ErrorKind = "NOT_FOUND"
	ErrMethodNotAllowed     ErrorKind = "METHOD_NOT_ALLOWED"
	ErrRequestTimeout       ErrorKind = "REQUEST_TIMEOUT"
	ErrUnsupportedMediaType ErrorKind = "UNSUPPORTED_MEDIA_TYPE"
	ErrInternal             ErrorKind = "INTERNAL_ERROR"
	ErrMaintenance          ErrorKind = "MAINTENANCE"

	// ErrAlreadyInProgress is never produced by dispatch. It is reserved for
	// callers guarding against starting a second order for the same user.
	ErrAlreadyInProgress ErrorKind = "ALREADY_IN_PROGRESS"
)

func (k ErrorKind) Error() string {
	return string(k)
}

// Error is the only error type returned by Session operations.
type Error struct {
	// Status is the HTTP status of the response, 0 if none was received.
	Status int

	Kind    ErrorKind
	Details string

	// Err is the underlying transport or decode failure, if any.
	Err error
}

func newError(status int, kind ErrorKind, details string) *Error {
	return &Error{Status: status, Kind: kind, Details: details}
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("bankid: %s: %s", e.Kind, e.Details)
	}
	return fmt.Sprintf("bankid: %s (status %d): %s", e.Kind, e.Status, e.Details)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
