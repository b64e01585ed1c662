// Package errhandling provides error types and classification helpers.
// This file defines error categories, classification functions, and helper
// utilities shared by the loader, the filter engine and the CLI.
package errhandling

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// ErrorCategory represents the type/category of an error.
// Categories decide whether the application can continue after the error.
type ErrorCategory string

// Error categories for classification.
const (
	// CategoryNotFound represents a dataset path that does not exist.
	// Not found errors are fatal: nothing can be filtered without a table.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryEncoding represents bytes that cannot be decoded under the
	// configured text encoding. Encoding errors are fatal.
	CategoryEncoding ErrorCategory = "encoding"

	// CategoryParse represents text that cannot be parsed, such as a
	// malformed numeric range or a broken expression.
	// Parse errors are recoverable: the user corrects the input and resubmits.
	CategoryParse ErrorCategory = "parse"

	// CategoryInput represents required user input that is missing.
	CategoryInput ErrorCategory = "input"

	// CategorySchema represents a filter that does not fit the loaded table,
	// such as a missing column or a range over a text column.
	CategorySchema ErrorCategory = "schema"

	// CategoryInvalidFilterKind represents a filter kind outside the closed set.
	// It indicates a caller bug, not a user error.
	CategoryInvalidFilterKind ErrorCategory = "invalid_filter_kind"

	// CategoryIO represents other file system failures.
	CategoryIO ErrorCategory = "io"

	// CategoryConfig represents an unusable configuration.
	CategoryConfig ErrorCategory = "config"

	// CategoryUnknown represents unclassified errors.
	CategoryUnknown ErrorCategory = "unknown"
)

// Sentinels matched by errors.Is against any ClassifiedError of the same category.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrEncoding          = errors.New("encoding error")
	ErrParse             = errors.New("parse error")
	ErrMissingInput      = errors.New("missing input")
	ErrSchema            = errors.New("schema mismatch")
	ErrInvalidFilterKind = errors.New("invalid filter kind")
)

var categorySentinels = map[ErrorCategory]error{
	CategoryNotFound:          ErrFileNotFound,
	CategoryEncoding:          ErrEncoding,
	CategoryParse:             ErrParse,
	CategoryInput:             ErrMissingInput,
	CategorySchema:            ErrSchema,
	CategoryInvalidFilterKind: ErrInvalidFilterKind,
}

// ClassifiedError wraps an error with classification metadata.
type ClassifiedError struct {
	// Category is the error classification category.
	Category ErrorCategory

	// Fatal indicates the application cannot continue after this error.
	Fatal bool

	// Message is a human-readable error message.
	Message string

	// OriginalErr is the underlying error that was classified.
	OriginalErr error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s error: %s", e.Category, e.Message)
}

// Unwrap returns the original error for use with errors.Is and errors.As.
func (e *ClassifiedError) Unwrap() error {
	return e.OriginalErr
}

// Is reports whether target is the sentinel for this error's category.
func (e *ClassifiedError) Is(target error) bool {
	sentinel, ok := categorySentinels[e.Category]
	return ok && sentinel == target
}

// ClassifyError classifies any error into a ClassifiedError.
// Already classified errors are returned as is.
func ClassifyError(err error) *ClassifiedError {
	if err == nil {
		return &ClassifiedError{
			Category: CategoryUnknown,
			Message:  "nil error",
		}
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified
	}

	for category, sentinel := range categorySentinels {
		if errors.Is(err, sentinel) {
			return &ClassifiedError{
				Category:    category,
				Fatal:       isFatalCategory(category),
				Message:     err.Error(),
				OriginalErr: err,
			}
		}
	}

	if errors.Is(err, os.ErrNotExist) {
		return NewNotFoundError(err.Error(), err)
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return NewIOError(fmt.Sprintf("%s %s: %v", pathErr.Op, pathErr.Path, pathErr.Err), err)
	}

	return &ClassifiedError{
		Category:    CategoryUnknown,
		Message:     err.Error(),
		OriginalErr: err,
	}
}

// IsFatal returns true if the error should halt the application.
// Nil errors return false.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return ClassifyError(err).Fatal
}

// GetErrorCategory returns the error category for a given error.
// Returns CategoryUnknown for nil or unclassified errors.
func GetErrorCategory(err error) ErrorCategory {
	if err == nil {
		return CategoryUnknown
	}

	var classified *ClassifiedError
	if errors.As(err, &classified) {
		return classified.Category
	}

	return CategoryUnknown
}

func isFatalCategory(category ErrorCategory) bool {
	switch category {
	case CategoryNotFound, CategoryEncoding, CategoryInvalidFilterKind, CategoryIO, CategoryConfig:
		return true
	default:
		return false
	}
}

// NewNotFoundError creates a ClassifiedError for a missing dataset file.
func NewNotFoundError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryNotFound, message, originalErr)
}

// NewEncodingError creates a ClassifiedError for undecodable content.
func NewEncodingError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryEncoding, message, originalErr)
}

// NewParseError creates a ClassifiedError for unparsable text.
func NewParseError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryParse, message, originalErr)
}

// NewInputError creates a ClassifiedError for missing user input.
func NewInputError(message string) *ClassifiedError {
	return newClassified(CategoryInput, message, nil)
}

// NewSchemaError creates a ClassifiedError for a filter that does not fit the table.
func NewSchemaError(message string) *ClassifiedError {
	return newClassified(CategorySchema, message, nil)
}

// NewInvalidFilterKindError creates a ClassifiedError for a kind outside the closed set.
func NewInvalidFilterKindError(kind string) *ClassifiedError {
	return newClassified(CategoryInvalidFilterKind, fmt.Sprintf("unsupported filter kind %q", kind), nil)
}

// NewIOError creates a ClassifiedError for file system failures.
func NewIOError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryIO, message, originalErr)
}

// NewConfigError creates a ClassifiedError for unusable configuration.
func NewConfigError(message string, originalErr error) *ClassifiedError {
	return newClassified(CategoryConfig, message, originalErr)
}

func newClassified(category ErrorCategory, message string, originalErr error) *ClassifiedError {
	return &ClassifiedError{
		Category:    category,
		Fatal:       isFatalCategory(category),
		Message:     message,
		OriginalErr: originalErr,
	}
}
