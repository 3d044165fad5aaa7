package ai

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no API key or project could be resolved
// for a call that requires credentials. It is always wrapped in a
// *ConfigurationError.
var ErrNotConfigured = errors.New("set GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT")

// ConfigurationError reports that a backend connection could not be set up.
// Use errors.Is(err, ErrNotConfigured) to tell missing credentials apart from
// a broken credential mechanism.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("llm configuration: %v", e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// CallError reports a failed backend call, including responses that carry
// no text payload.
type CallError struct {
	Err error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("llm call failed: %v", e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// NewCallError wraps err unless it already is a *CallError.
func NewCallError(err error) error {
	var ce *CallError
	if errors.As(err, &ce) {
		return err
	}
	return &CallError{Err: err}
}
