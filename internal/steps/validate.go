package steps

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kaptinlin/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError is one field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError reports why a step payload was rejected.
type ValidationError struct {
	Step   int
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return fmt.Sprintf("step %d validation failed: %s", e.Step, strings.Join(msgs, "; "))
}

var (
	compileOnce sync.Once
	compiled    [Count + 1]*jsonschema.Schema
	compileErr  error
)

func schemas() ([Count + 1]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		for n := 1; n <= Count; n++ {
			data, err := schemaFS.ReadFile(fmt.Sprintf("schemas/step_%d.json", n))
			if err != nil {
				compileErr = fmt.Errorf("failed to read step %d schema: %w", n, err)
				return
			}
			schema, err := compiler.Compile(data)
			if err != nil {
				compileErr = fmt.Errorf("failed to compile step %d schema: %w", n, err)
				return
			}
			compiled[n] = schema
		}
	})
	return compiled, compileErr
}

// Validate checks a step payload at the store-write boundary: it must be a
// JSON object (never a top-level array) matching the step's JSON Schema.
func Validate(n int, raw []byte) error {
	if n < 1 || n > Count {
		return &ValidationError{Step: n, Fields: []FieldError{{Field: "step", Message: fmt.Sprintf("must be between 1 and %d", Count)}}}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return &ValidationError{Step: n, Fields: []FieldError{{Field: "data", Message: "must be a JSON object"}}}
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return &ValidationError{Step: n, Fields: []FieldError{{Field: "data", Message: "invalid JSON: " + err.Error()}}}
	}

	all, err := schemas()
	if err != nil {
		return err
	}

	result := all[n].Validate(doc)
	if result.IsValid() {
		return nil
	}

	fields := make([]FieldError, 0, len(result.Errors))
	for field, evalErr := range result.Errors {
		fields = append(fields, FieldError{Field: field, Message: evalErr.Error()})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })
	return &ValidationError{Step: n, Fields: fields}
}

// Canonicalize validates raw and returns it with every known field rewritten
// in its typed, defaulted form. Unknown keys are kept as sent.
func Canonicalize(n int, raw []byte) (json.RawMessage, error) {
	if err := Validate(n, raw); err != nil {
		return nil, err
	}
	return Encode(Decode(n, raw), raw)
}

// Encode marshals typed step data, overlaying it onto the keys of base
// (which may be nil).
func Encode(data Data, base []byte) (json.RawMessage, error) {
	typed, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode step %d: %w", data.StepNumber(), err)
	}

	merged := map[string]json.RawMessage{}
	if len(base) > 0 {
		_ = json.Unmarshal(base, &merged)
	}
	var known map[string]json.RawMessage
	if err := json.Unmarshal(typed, &known); err != nil {
		return nil, err
	}
	for k, v := range known {
		merged[k] = v
	}
	return json.Marshal(merged)
}
