// Package errhandling provides error types and classification helpers.
package errhandling

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"testing"
)

// TestErrorCategory tests error category constants and their string values.
func TestErrorCategory(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{CategoryNotFound, "not_found"},
		{CategoryEncoding, "encoding"},
		{CategoryParse, "parse"},
		{CategoryInput, "input"},
		{CategorySchema, "schema"},
		{CategoryInvalidFilterKind, "invalid_filter_kind"},
		{CategoryIO, "io"},
		{CategoryConfig, "config"},
		{CategoryUnknown, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.category) != tt.expected {
				t.Errorf("ErrorCategory = %v, want %v", tt.category, tt.expected)
			}
		})
	}
}

// TestClassifiedError tests the ClassifiedError type.
func TestClassifiedError(t *testing.T) {
	t.Run("Error message formatting", func(t *testing.T) {
		err := NewParseError("min and max must be numbers", nil)
		errorStr := err.Error()
		if !strings.Contains(errorStr, "parse") || !strings.Contains(errorStr, "min and max") {
			t.Errorf("Error() = %v, want to contain category and message", errorStr)
		}
	})

	t.Run("Unwrap returns original error", func(t *testing.T) {
		original := errors.New("original error")
		err := NewIOError("read failed", original)
		if !errors.Is(err, original) {
			t.Error("errors.Is should find the original error")
		}
	})

	t.Run("errors.As extracts classified error from wrap", func(t *testing.T) {
		wrapped := fmt.Errorf("loading dataset: %w", NewEncodingError("bad bytes", nil))
		var classified *ClassifiedError
		if !errors.As(wrapped, &classified) {
			t.Fatal("errors.As should find ClassifiedError")
		}
		if classified.Category != CategoryEncoding {
			t.Errorf("Category = %v, want %v", classified.Category, CategoryEncoding)
		}
	})
}

// TestSentinelMatching tests that errors.Is matches category sentinels.
func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"not found", NewNotFoundError("missing", nil), ErrFileNotFound},
		{"encoding", NewEncodingError("bad", nil), ErrEncoding},
		{"parse", NewParseError("bad", nil), ErrParse},
		{"input", NewInputError("empty"), ErrMissingInput},
		{"schema", NewSchemaError("no column"), ErrSchema},
		{"invalid kind", NewInvalidFilterKindError("Colour"), ErrInvalidFilterKind},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.sentinel)
			}
			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("wrapped errors.Is(%v, %v) = false", wrapped, tt.sentinel)
			}
		})
	}

	if errors.Is(NewParseError("x", nil), ErrEncoding) {
		t.Error("parse error must not match ErrEncoding")
	}
}

// TestClassifyError tests classification of raw errors.
func TestClassifyError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantCategory ErrorCategory
		wantFatal    bool
	}{
		{"nil", nil, CategoryUnknown, false},
		{"already classified", NewSchemaError("x"), CategorySchema, false},
		{"wrapped sentinel", fmt.Errorf("%w: abc", ErrParse), CategoryParse, false},
		{"os not exist", &fs.PathError{Op: "open", Path: "x.csv", Err: os.ErrNotExist}, CategoryNotFound, true},
		{"permission", &fs.PathError{Op: "open", Path: "x.csv", Err: os.ErrPermission}, CategoryIO, true},
		{"plain", errors.New("boom"), CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Category != tt.wantCategory {
				t.Errorf("Category = %v, want %v", got.Category, tt.wantCategory)
			}
			if got.Fatal != tt.wantFatal {
				t.Errorf("Fatal = %v, want %v", got.Fatal, tt.wantFatal)
			}
		})
	}
}

// TestIsFatal tests the fatal classification per category.
func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"not found", NewNotFoundError("x", nil), true},
		{"encoding", NewEncodingError("x", nil), true},
		{"invalid kind", NewInvalidFilterKindError("x"), true},
		{"config", NewConfigError("x", nil), true},
		{"parse", NewParseError("x", nil), false},
		{"input", NewInputError("x"), false},
		{"schema", NewSchemaError("x"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	if got := GetErrorCategory(nil); got != CategoryUnknown {
		t.Errorf("GetErrorCategory(nil) = %v", got)
	}
	if got := GetErrorCategory(errors.New("x")); got != CategoryUnknown {
		t.Errorf("GetErrorCategory(plain) = %v", got)
	}
	if got := GetErrorCategory(fmt.Errorf("w: %w", NewInputError("x"))); got != CategoryInput {
		t.Errorf("GetErrorCategory(wrapped input) = %v", got)
	}
}
