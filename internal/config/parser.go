package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported configuration formats.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ParseConfig reads, parses and validates the configuration file at path.
// The format comes from the extension (.json, .yaml, .yml), falling back to
// content sniffing.
func ParseConfig(path string) *Result {
	result := &Result{FilePath: path}

	content, err := os.ReadFile(path)
	if err != nil {
		result.ParseErrors = append(result.ParseErrors, ParseError{
			Path:    path,
			Message: fmt.Sprintf("failed to read file: %v", err),
			Type:    ErrorTypeIO,
		})
		return result
	}

	parsed := ParseConfigString(string(content), DetectFormat(path))
	parsed.FilePath = path
	for i := range parsed.ParseErrors {
		if parsed.ParseErrors[i].Path == "" {
			parsed.ParseErrors[i].Path = path
		}
	}
	return parsed
}

// ParseConfigString parses and validates configuration content.
// An empty format is detected from the content.
func ParseConfigString(content, format string) *Result {
	result := &Result{Format: format}

	if format == "" {
		switch {
		case IsJSON(content):
			format = FormatJSON
		case IsYAML(content):
			format = FormatYAML
		default:
			result.ParseErrors = append(result.ParseErrors, ParseError{
				Message: "unable to detect configuration format: not valid JSON or YAML",
				Type:    ErrorTypeFormat,
			})
			return result
		}
		result.Format = format
	}

	var (
		data map[string]interface{}
		perr *ParseError
	)
	switch format {
	case FormatJSON:
		data, perr = parseJSON(content)
	case FormatYAML:
		data, perr = parseYAML(content)
	default:
		perr = &ParseError{Message: fmt.Sprintf("unsupported format: %s", format), Type: ErrorTypeFormat}
	}
	if perr != nil {
		result.ParseErrors = append(result.ParseErrors, *perr)
		return result
	}

	result.Data = data
	result.ValidationErrors = ValidateConfig(data).Errors
	return result
}

// DetectFormat returns the format implied by the file extension, or "".
func DetectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return ""
	}
}

// IsJSON reports whether content looks like a JSON document.
func IsJSON(content string) bool {
	content = strings.TrimSpace(content)
	return strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[")
}

// IsYAML reports whether content parses as a non-empty YAML document.
// JSON is also YAML, so callers check IsJSON first.
func IsYAML(content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	var data interface{}
	return yaml.Unmarshal([]byte(content), &data) == nil && data != nil
}

func parseJSON(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected JSON object", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			perr.Line, perr.Column = offsetToLineColumn(content, syntaxErr.Offset)
			perr.Message = fmt.Sprintf("JSON syntax error: %v", syntaxErr)
		}
		return nil, perr
	}

	return asMapping(data, "JSON object")
}

func parseYAML(content string) (map[string]interface{}, *ParseError) {
	if strings.TrimSpace(content) == "" {
		return nil, &ParseError{Message: "empty content: expected YAML document", Type: ErrorTypeSyntax}
	}

	var data interface{}
	if err := yaml.Unmarshal([]byte(content), &data); err != nil {
		return nil, yamlError(err)
	}

	return asMapping(data, "YAML mapping")
}

func asMapping(data interface{}, want string) (map[string]interface{}, *ParseError) {
	if data == nil {
		return nil, &ParseError{Message: fmt.Sprintf("empty document: expected %s", want), Type: ErrorTypeFormat}
	}
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil, &ParseError{
			Message: fmt.Sprintf("invalid configuration: expected %s, got %T", want, data),
			Type:    ErrorTypeFormat,
		}
	}
	return m, nil
}

// yamlError extracts the line number yaml.v3 embeds in its messages.
func yamlError(err error) *ParseError {
	perr := &ParseError{Message: err.Error(), Type: ErrorTypeSyntax}

	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) {
		perr.Message = fmt.Sprintf("YAML type error: %s", strings.Join(typeErr.Errors, "; "))
	}

	var line int
	if _, scanErr := fmt.Sscanf(err.Error(), "yaml: line %d:", &line); scanErr == nil {
		perr.Line = line
	}
	return perr
}

// offsetToLineColumn converts a byte offset to 1-based line and column.
func offsetToLineColumn(content string, offset int64) (line, column int) {
	line, column = 1, 1
	for i := int64(0); i < offset && i < int64(len(content)); i++ {
		if content[i] == '\n' {
			line++
			column = 1
		} else {
			column++
		}
	}
	return line, column
}
