package review

import (
	"fmt"
	"strings"
)

// ParseError means the sanitized response was not a well-formed JSON object.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "response is not valid JSON: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// FieldError is one schema violation at a JSON path such as "issues[2].type".
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (f FieldError) String() string {
	return f.Path + ": " + f.Message
}

// ValidationError lists every way a well-formed response departs from the
// review schema.
type ValidationError struct {
	Problems []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = p.String()
	}
	return fmt.Sprintf("response does not match review schema (%d problems): %s",
		len(e.Problems), strings.Join(parts, "; "))
}
