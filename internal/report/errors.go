package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jimdaga/interview-ace/internal/steps"
)

var (
	// ErrTemplateUnavailable means the report template asset could not be loaded.
	ErrTemplateUnavailable = errors.New("report template unavailable")
	// ErrRenderFailed means the template was loaded but failed to execute.
	ErrRenderFailed = errors.New("report render failed")
)

// FieldError is one field-level problem with a request payload.
type FieldError = steps.FieldError

// ValidationError reports a malformed report request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "invalid report request: " + strings.Join(msgs, "; ")
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}
