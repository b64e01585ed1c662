// Package cli provides terminal output and the interactive shell.
package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/Threestaxx/SalesDateFilter/internal/config"
	"github.com/Threestaxx/SalesDateFilter/internal/errhandling"
)

// PrintParseErrors prints configuration parse errors.
func PrintParseErrors(w io.Writer, errs []config.ParseError, verbose bool) {
	fmt.Fprintln(w, "✗ Parse errors:")
	for _, err := range errs {
		location := formatErrorLocation(err.Path, err.Line, err.Column)
		if location != "" {
			fmt.Fprintf(w, "  %s: %s\n", location, err.Message)
		} else {
			fmt.Fprintf(w, "  %s\n", err.Message)
		}
		if verbose && err.Type != "" {
			fmt.Fprintf(w, "    Type: %s\n", err.Type)
		}
	}
}

// formatErrorLocation formats path:line:column, omitting unknown parts.
func formatErrorLocation(path string, line, column int) string {
	if path == "" {
		return ""
	}
	location := path
	if line > 0 {
		location += fmt.Sprintf(":%d", line)
		if column > 0 {
			location += fmt.Sprintf(":%d", column)
		}
	}
	return location
}

// PrintValidationErrors prints schema validation errors.
func PrintValidationErrors(w io.Writer, errs []config.ValidationError, verbose, quiet bool) {
	fmt.Fprintln(w, "✗ Validation errors:")
	for _, err := range errs {
		path := err.Path
		if path == "" {
			path = "/"
		}
		if verbose {
			fmt.Fprintf(w, "  %s:\n", path)
			fmt.Fprintf(w, "    Message: %s\n", err.Message)
			if err.Type != "" {
				fmt.Fprintf(w, "    Type: %s\n", err.Type)
			}
			continue
		}
		msg := err.Message
		if len(msg) > 80 {
			msg = msg[:77] + "..."
		}
		fmt.Fprintf(w, "  %s: %s\n", path, msg)
	}
	if !quiet && !verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hint: Use --verbose for detailed error information")
	}
}

// DescribeLoadError returns the user-facing message for a dataset load failure.
func DescribeLoadError(path string, err error) string {
	switch {
	case errors.Is(err, errhandling.ErrFileNotFound):
		return fmt.Sprintf("File '%s' not found. Please ensure the file is in the correct directory.", path)
	case errors.Is(err, errhandling.ErrEncoding):
		return "Unable to read the file. Please check the file encoding."
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
