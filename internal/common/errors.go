package common

import "errors"

// AppError carries a machine-readable code and HTTP status alongside the
// wrapped cause. Domain packages map repository errors into these; the
// response layer turns them into the canonical error body.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
	Details    any
}

// Error implements the error interface.
func (e *AppError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Message
	}
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// IsAppError reports whether err carries AppError metadata anywhere in
// its chain.
func IsAppError(err error) bool {
	var target *AppError
	return errors.As(err, &target)
}
