package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidArgument = errors.New("invalid arguments")
	ErrInProgress      = errors.New("in progress")
	ErrAssetLocked     = errors.New("asset already uploaded")
	ErrUploadFailed    = errors.New("upload failed")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
)

// ValidationError describes a rejected input field. It matches
// ErrInvalidArgument with errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// UploadError is a failed asset transfer. Error keeps the transport detail
// for logs; ClientMessage is the only text that may reach a client.
type UploadError struct {
	Kind AssetKind
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrUploadFailed, e.Kind, e.Err)
}

func (e *UploadError) Unwrap() []error { return []error{ErrUploadFailed, e.Err} }

func (e *UploadError) ClientMessage() string {
	return UploadFailedMessage(e.Kind)
}

// UploadFailedMessage is the retryable message shown for a failed upload.
func UploadFailedMessage(kind AssetKind) string {
	if kind == AssetTrailer {
		return "trailer upload failed, retry"
	}
	return "movie upload failed, retry"
}
