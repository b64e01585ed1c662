package config

import (
	"fmt"
	"strings"
)

// Parse error types.
const (
	ErrorTypeIO     = "io"
	ErrorTypeSyntax = "syntax"
	ErrorTypeFormat = "format"
)

// ParseError is a parsing failure with its location in the source file.
type ParseError struct {
	// Path is the file path, empty when parsing a string
	Path string
	// Line is 1-based, 0 if unknown
	Line int
	// Column is 1-based, 0 if unknown
	Column int
	// Message describes the failure
	Message string
	// Type is one of the ErrorType constants
	Type string
}

// Error implements the error interface.
func (e ParseError) Error() string {
	var sb strings.Builder
	if e.Path != "" {
		sb.WriteString(e.Path)
		sb.WriteString(": ")
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "line %d", e.Line)
		if e.Column > 0 {
			fmt.Fprintf(&sb, ", column %d", e.Column)
		}
		sb.WriteString(": ")
	}
	sb.WriteString(e.Message)
	return sb.String()
}

// ValidationError is a schema violation at a JSON pointer path.
type ValidationError struct {
	// Path is the JSON pointer of the offending value (e.g. "/presets/0/kind")
	Path string
	// Type is a short keyword (required, type, enum, ...)
	Type string
	// Message is the validator's description
	Message string
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.Message)
	}
	return e.Message
}

// Result holds the outcome of parsing and validating a configuration file.
type Result struct {
	// Data is the raw parsed document
	Data map[string]interface{}
	// ParseErrors stops validation when non-empty
	ParseErrors []ParseError
	// ValidationErrors lists schema violations
	ValidationErrors []ValidationError
	// FilePath is the source file, empty when parsing a string
	FilePath string
	// Format is "json" or "yaml"
	Format string
}

// IsValid returns true if no errors occurred.
func (r *Result) IsValid() bool {
	return len(r.ParseErrors) == 0 && len(r.ValidationErrors) == 0
}

// AllErrors returns parse errors followed by validation errors.
func (r *Result) AllErrors() []error {
	errs := make([]error, 0, len(r.ParseErrors)+len(r.ValidationErrors))
	for _, e := range r.ParseErrors {
		errs = append(errs, e)
	}
	for _, e := range r.ValidationErrors {
		errs = append(errs, e)
	}
	return errs
}
