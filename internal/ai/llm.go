// Package ai wraps the language model behind a small gateway. Every response
// is treated as untrusted: JSON is parsed and shape-checked before it is
// turned into step data, and any failure surfaces as ErrGenerationFailed.
package ai

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrGenerationFailed means the model errored or returned unusable output.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrInvalidInput means a task was called without its required inputs.
	ErrInvalidInput = errors.New("invalid input")
)

// CompleteOptions tune a single completion.
type CompleteOptions struct {
	// JSON asks the provider for a JSON object response.
	JSON        bool
	System      string
	Temperature float64
}

// LLM is the provider-facing contract.
type LLM interface {
	Complete(ctx context.Context, prompt string, opts CompleteOptions) (string, error)
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// GenerationError carries the task that failed. It matches
// ErrGenerationFailed with errors.Is.
type GenerationError struct {
	Task string
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrGenerationFailed, e.Task, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGenerationFailed }

func failed(task string, err error) error {
	return &GenerationError{Task: task, Err: err}
}

func invalidInput(task, msg string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidInput, task, msg)
}
