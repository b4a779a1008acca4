// Package errors provides structured error types for the Strata engine.
// All errors include a category, code, message, and retryable flag for
// consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by engine component.
type ErrorCategory string

const (
	ErrCategoryConfiguration ErrorCategory = "CONFIGURATION"
	ErrCategoryLock          ErrorCategory = "LOCK"
	ErrCategoryStorage       ErrorCategory = "STORAGE"
	ErrCategoryQuery         ErrorCategory = "QUERY"
	ErrCategoryCatalog       ErrorCategory = "CATALOG"
	ErrCategoryInternal      ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Configuration codes
	CodeEmptySchema       = "EMPTY_SCHEMA"
	CodeDuplicateVariable = "DUPLICATE_VARIABLE"
	CodeBadVariableType   = "BAD_VARIABLE_TYPE"
	CodeBadConfig         = "BAD_CONFIG"

	// Lock codes
	CodeLockTimeout = "LOCK_TIMEOUT"

	// Storage codes
	CodeReadFailed    = "READ_FAILED"
	CodeWriteFailed   = "WRITE_FAILED"
	CodeResizeFailed  = "RESIZE_FAILED"
	CodeCorruptedFile = "CORRUPTED_FILE"
	CodeNotContainer  = "NOT_A_CONTAINER"

	// Query codes
	CodeUnsupportedLayout = "UNSUPPORTED_LAYOUT"
	CodeMissingTimeSeries = "MISSING_TIME_SERIES"

	// Catalog codes
	CodeCatalogFailed = "CATALOG_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// StrataError is the structured error type used throughout the engine.
type StrataError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *StrataError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *StrataError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *StrataError) Is(target error) bool {
	var t *StrataError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new StrataError.
func New(category ErrorCategory, code, message string) *StrataError {
	return &StrataError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new StrataError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *StrataError {
	return &StrataError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *StrataError) WithDetails(details map[string]interface{}) *StrataError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var se *StrataError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a StrataError.
func GetCategory(err error) ErrorCategory {
	var se *StrataError
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a StrataError.
func GetCode(err error) string {
	var se *StrataError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable. Lock contention is
// the only condition a caller can sensibly retry: the holder finishes its
// single blocking operation and releases.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryLock && code == CodeLockTimeout
}

// Convenience constructors for the engine's error taxonomy.

// NewConfigurationError reports bad or missing schema/config essentials.
func NewConfigurationError(code, message string) *StrataError {
	return New(ErrCategoryConfiguration, code, message)
}

// NewLockTimeout reports an exhausted lock retry budget.
func NewLockTimeout(message string, cause error) *StrataError {
	return Wrap(ErrCategoryLock, CodeLockTimeout, message, cause)
}

// NewStorageError reports an underlying read/write/resize failure.
func NewStorageError(code, message string, cause error) *StrataError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

// NewUnsupportedOperation reports an operation the container layout cannot serve.
func NewUnsupportedOperation(message string) *StrataError {
	return New(ErrCategoryQuery, CodeUnsupportedLayout, message)
}

// NewQueryError reports a failed read operation.
func NewQueryError(code, message string) *StrataError {
	return New(ErrCategoryQuery, code, message)
}

// NewCatalogError reports a dataset registry failure.
func NewCatalogError(message string, cause error) *StrataError {
	return Wrap(ErrCategoryCatalog, CodeCatalogFailed, message, cause)
}

// NewInternalError reports an unexpected failure.
func NewInternalError(message string, cause error) *StrataError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
