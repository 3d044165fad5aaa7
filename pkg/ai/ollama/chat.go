package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/logger"

	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
)

const defaultContextWindow = 4096

// contextWindow estimates the context needed for prompt plus an answer of
// similar size. Argument maps quote the source, so the answer is rarely
// shorter than the input.
func contextWindow(text string) (int, error) {
	enc, err := tiktoken.GetEncoding("o200k_base")
	if err != nil {
		return 0, err
	}
	tokens := len(enc.Encode(text, nil, nil))
	return 2*tokens + 1024, nil
}

func (c *OllamaClient) buildRequest(
	prompt string,
	options ai.GenerateOptions,
	stream bool,
) (*api.ChatRequest, error) {
	format := json.RawMessage(`"json"`)
	if options.ResponseSchema != nil {
		schema, err := json.Marshal(options.ResponseSchema)
		if err != nil {
			return nil, err
		}
		format = schema
	}

	msgs := make([]api.Message, 0, len(options.SystemPrompts)+1)
	for _, sys := range options.SystemPrompts {
		msgs = append(msgs, api.Message{Role: "system", Content: sys})
	}
	msgs = append(msgs, api.Message{Role: "user", Content: prompt})

	req := &api.ChatRequest{
		Model:    options.Model,
		Messages: msgs,
		Stream:   &stream,
		Format:   format,
		Options:  map[string]any{"temperature": options.Temperature},
	}

	var all strings.Builder
	for _, m := range msgs {
		all.WriteString(m.Content)
	}
	tokens, err := contextWindow(all.String())
	if err != nil {
		logger.Debug("Token count unavailable, using default context", "err", err)
	} else if tokens > defaultContextWindow {
		req.Options["num_ctx"] = tokens
	}

	return req, nil
}

func (c *OllamaClient) authContext(ctx context.Context, explicit string) (context.Context, error) {
	auth, err := ai.ResolveAuth(ctx, explicit, ai.AuthDefaults{APIKey: c.apiKey}, false)
	if err != nil {
		return nil, err
	}
	return ai.WithRequestAPIKey(ctx, auth.APIKey), nil
}

// GenerateJSON sends a single-turn prompt with JSON output enforced and
// returns the document text. When a response schema is set it is passed as
// Ollama's structured output format.
func (c *OllamaClient) GenerateJSON(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{Model: c.model}, opts...)

	ctx, err := c.authContext(ctx, options.APIKey)
	if err != nil {
		return "", err
	}

	req, err := c.buildRequest(prompt, options, false)
	if err != nil {
		return "", ai.NewCallError(err)
	}

	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	var final api.ChatResponse
	if err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
		final.Message.Content += cr.Message.Content
		if cr.Done {
			final.Done = true
			final.Metrics = cr.Metrics
		}
		return nil
	}); err != nil {
		return "", ai.NewCallError(err)
	}

	logger.Debug("LLM call finished",
		"model", options.Model,
		"duration_ms", final.Metrics.TotalDuration.Milliseconds(),
		"input_tokens", final.Metrics.PromptEvalCount,
		"output_tokens", final.Metrics.EvalCount,
	)

	if final.Message.Content == "" {
		return "", ai.NewCallError(errors.New("empty response from model"))
	}

	return final.Message.Content, nil
}

// GenerateJSONStream streams the JSON document fragment by fragment.
// The channel is closed when Ollama reports done, on failure (after an
// "error" event) or when ctx is canceled.
func (c *OllamaClient) GenerateJSONStream(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{Model: c.model}, opts...)

	ctx, err := c.authContext(ctx, options.APIKey)
	if err != nil {
		return nil, err
	}

	req, err := c.buildRequest(prompt, options, true)
	if err != nil {
		return nil, ai.NewCallError(err)
	}

	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	out := make(chan ai.StreamEvent, 16)

	go func() {
		defer c.release()
		defer close(out)

		received := 0
		err := c.Client.Chat(ctx, req, func(cr api.ChatResponse) error {
			if s := cr.Message.Content; s != "" {
				received += len(s)
				select {
				case out <- ai.StreamEvent{Type: "content", Content: s}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if cr.Done {
				logger.Debug("LLM stream finished",
					"model", options.Model,
					"duration_ms", cr.TotalDuration.Milliseconds(),
					"output_tokens", cr.EvalCount,
				)
			}
			return nil
		})

		if ctx.Err() != nil {
			return
		}
		if err == nil && received == 0 {
			err = errors.New("empty response from model")
		}
		if err != nil {
			select {
			case out <- ai.StreamEvent{Type: "error", Err: ai.NewCallError(err)}:
			case <-ctx.Done():
			}
		}
	}()

	return out, nil
}
