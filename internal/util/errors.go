package util

import (
	"errors"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
)

// ErrorMessage turns an extraction failure into the message shown to API
// callers. Configuration and output problems are reported verbatim so the
// caller can act on them.
func ErrorMessage(err error) string {
	var (
		confErr      *ai.ConfigurationError
		malformedErr *argmap.MalformedOutputError
		callErr      *ai.CallError
	)

	switch {
	case errors.Is(err, ai.ErrNotConfigured):
		return "LLM not configured: " + ai.ErrNotConfigured.Error()
	case errors.As(err, &confErr):
		return "LLM configuration error: " + confErr.Err.Error()
	case errors.As(err, &malformedErr):
		return "Extraction error: " + malformedErr.Err.Error()
	case errors.As(err, &callErr):
		return "LLM call failed: " + callErr.Err.Error()
	}
	return "Unexpected error: " + err.Error()
}
