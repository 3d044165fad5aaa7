package ai

import (
	"context"
)

// GenerateOptions holds configuration for AI generation requests.
type GenerateOptions struct {
	Model          string   // Model identifier to use for generation
	SystemPrompts  []string // System prompts prepended to the request
	Temperature    float64  // Sampling temperature (0.0-2.0)
	APIKey         string   // Explicit API key, highest priority during auth resolution
	ResponseSchema any      // Optional JSON schema describing the expected document
}

// StreamEvent represents an event in a streaming response.
//
// Type is "content" for a text fragment and "error" for a terminal failure.
// The channel carrying these events is closed once the backend is done.
type StreamEvent struct {
	Type    string
	Content string
	Err     error
}

// GenerateOption is a functional option for configuring AI generation requests.
type GenerateOption func(*GenerateOptions)

// WithModel returns a GenerateOption that sets the model to use for generation.
// An empty model keeps the client's default.
func WithModel(model string) GenerateOption {
	return func(o *GenerateOptions) {
		if model != "" {
			o.Model = model
		}
	}
}

// WithSystemPrompts returns a GenerateOption that sets the system prompts
// to prepend to the generation request.
func WithSystemPrompts(prompts ...string) GenerateOption {
	return func(o *GenerateOptions) {
		o.SystemPrompts = prompts
	}
}

// WithTemperature returns a GenerateOption that sets the sampling temperature.
// 0.0 asks the backend for the most deterministic output it can produce.
func WithTemperature(temp float64) GenerateOption {
	return func(o *GenerateOptions) {
		o.Temperature = temp
	}
}

// WithAPIKey returns a GenerateOption carrying an explicit API key for this
// call. It takes precedence over request-scoped and process-wide keys.
func WithAPIKey(key string) GenerateOption {
	return func(o *GenerateOptions) {
		o.APIKey = key
	}
}

// WithResponseSchema attaches a JSON schema for backends that can constrain
// their output to it.
func WithResponseSchema(schema any) GenerateOption {
	return func(o *GenerateOptions) {
		o.ResponseSchema = schema
	}
}

// NewGenerateOptions applies opts on top of the given defaults.
func NewGenerateOptions(defaults GenerateOptions, opts ...GenerateOption) GenerateOptions {
	options := defaults
	for _, o := range opts {
		o(&options)
	}
	return options
}

// ModelClient is the generative backend used by the extraction pipeline.
//
// GenerateJSON performs one blocking call and returns the JSON text produced
// by the model. GenerateJSONStream returns a channel of fragments whose
// concatenation is the same JSON text; the channel is single pass and is
// closed when the backend stream ends or ctx is canceled.
type ModelClient interface {
	GenerateJSON(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (string, error)
	GenerateJSONStream(
		ctx context.Context,
		prompt string,
		opts ...GenerateOption,
	) (<-chan StreamEvent, error)
}
