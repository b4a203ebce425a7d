package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is the application error carried up to the HTTP layer.
type AppError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Error codes
const (
	CodeAuthorization     = "AUTHORIZATION"
	CodeReferenceNotFound = "REFERENCE_NOT_FOUND"
	CodeImageNotFound     = "IMAGE_NOT_FOUND"
	CodeStorageWrite      = "STORAGE_WRITE"
	CodeStorageDelete     = "STORAGE_DELETE"
	CodeCatalogWrite      = "CATALOG_WRITE"
	CodeInvalidTransition = "INVALID_TRANSITION"
	CodeValidation        = "VALIDATION"
)

// NewAuthorizationError indicates the caller presented no valid session evidence.
func NewAuthorizationError(message string) *AppError {
	return &AppError{
		Code:       CodeAuthorization,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

// NewReferenceNotFoundError indicates a referenced entity id or name does not resolve.
func NewReferenceNotFoundError(entity string, ref interface{}) *AppError {
	return &AppError{
		Code:       CodeReferenceNotFound,
		Message:    fmt.Sprintf("%s not found: %v", entity, ref),
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// NewImageNotFoundError indicates an image id does not belong to the given vehicle.
func NewImageNotFoundError(vehicleID, imageID int64) *AppError {
	return &AppError{
		Code:       CodeImageNotFound,
		Message:    fmt.Sprintf("image %d not found for vehicle %d", imageID, vehicleID),
		StatusCode: http.StatusNotFound,
	}
}

// NewStorageWriteError indicates a blob-store write failed; the operation aborts.
func NewStorageWriteError(err error) *AppError {
	return &AppError{
		Code:       CodeStorageWrite,
		Message:    "blob storage write failed",
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// NewStorageDeleteError indicates a blob-store delete failed. Callers log and
// continue; catalog rows are still removed.
func NewStorageDeleteError(err error) *AppError {
	return &AppError{
		Code:       CodeStorageDelete,
		Message:    "blob storage delete failed",
		StatusCode: http.StatusBadGateway,
		Err:        err,
	}
}

// NewCatalogWriteError indicates a persistent-store write failed after a
// successful blob upload.
func NewCatalogWriteError(err error) *AppError {
	return &AppError{
		Code:       CodeCatalogWrite,
		Message:    "catalog write failed",
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInvalidTransitionError rejects a disallowed vehicle status change.
func NewInvalidTransitionError(err error) *AppError {
	return &AppError{
		Code:       CodeInvalidTransition,
		Message:    "invalid status transition",
		StatusCode: http.StatusConflict,
		Err:        err,
	}
}

// NewValidationError reports invalid caller input.
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:       CodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
	}
}

// FileFailure is one failed file inside a batch upload.
type FileFailure struct {
	FileName string
	Err      error
}

// PartialBatchFailure is returned by the sequential upload fallback when some
// files in a batch failed. Uploaded holds the URLs that did succeed.
type PartialBatchFailure struct {
	Uploaded []string
	Failed   []FileFailure
}

func (e *PartialBatchFailure) Error() string {
	return fmt.Sprintf("batch upload partially failed: %d uploaded, %d failed",
		len(e.Uploaded), len(e.Failed))
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// HTTPStatus extracts the status code for an error, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return http.StatusInternalServerError
}
