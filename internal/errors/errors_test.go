package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestStrataError_Error(t *testing.T) {
	err := New(ErrCategoryLock, CodeLockTimeout, "lock not acquired")
	expected := "[LOCK:LOCK_TIMEOUT] lock not acquired"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestStrataError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("resource temporarily unavailable")
	err := Wrap(ErrCategoryStorage, CodeWriteFailed, "chunk write failed", cause)
	expected := "[STORAGE:WRITE_FAILED] chunk write failed: resource temporarily unavailable"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestStrataError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStorage, CodeReadFailed, "read failed", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestStrataError_Is(t *testing.T) {
	err1 := New(ErrCategoryQuery, CodeUnsupportedLayout, "first")
	err2 := New(ErrCategoryQuery, CodeUnsupportedLayout, "second")
	err3 := New(ErrCategoryQuery, CodeMissingTimeSeries, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryLock, CodeLockTimeout, true},
		{ErrCategoryStorage, CodeWriteFailed, false},
		{ErrCategoryStorage, CodeCorruptedFile, false},
		{ErrCategoryQuery, CodeUnsupportedLayout, false},
		{ErrCategoryConfiguration, CodeEmptySchema, false},
		{ErrCategoryCatalog, CodeCatalogFailed, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewUnsupportedOperation("combined layout query")
	if GetCategory(err) != ErrCategoryQuery {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryQuery)
	}
	if GetCode(err) != CodeUnsupportedLayout {
		t.Errorf("got %q, want %q", GetCode(err), CodeUnsupportedLayout)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-StrataError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-StrataError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewConfigurationError(CodeDuplicateVariable, "variable declared twice")
	detailed := err.WithDetails(map[string]interface{}{"variable": "time"})

	if detailed.Details["variable"] != "time" {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("original error should be unmodified")
	}
}

func TestWrappedErrorThroughChain(t *testing.T) {
	inner := NewStorageError(CodeWriteFailed, "write failed", fmt.Errorf("disk full"))
	outer := fmt.Errorf("append: %w", inner)

	if GetCategory(outer) != ErrCategoryStorage {
		t.Errorf("category should survive fmt.Errorf wrapping, got %q", GetCategory(outer))
	}
}
