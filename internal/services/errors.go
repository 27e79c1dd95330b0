package services

import "errors"

// Sentinel errors shared by the services. Handlers map them to HTTP statuses.
var (
	ErrValidation          = errors.New("validation error")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrNotFound            = errors.New("not found")
	ErrUploadFailed        = errors.New("upload failed")
	ErrInsufficientStorage = errors.New("insufficient staging storage")
	ErrTooLarge            = errors.New("file too large")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// Is makes errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// UploadError wraps the upstream cause of a failed image upload.
type UploadError struct {
	Cause error
}

func (e *UploadError) Error() string {
	return "upload failed: " + e.Cause.Error()
}

func (e *UploadError) Is(target error) bool {
	return target == ErrUploadFailed
}

func (e *UploadError) Unwrap() error {
	return e.Cause
}
