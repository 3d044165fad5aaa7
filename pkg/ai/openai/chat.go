package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/logger"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
)

func (c *OpenAIClient) buildBody(
	prompt string,
	options ai.GenerateOptions,
	model string,
) openai.ChatCompletionNewParams {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(options.SystemPrompts)+1)
	for _, sp := range options.SystemPrompts {
		msgs = append(msgs, openai.SystemMessage(sp))
	}
	msgs = append(msgs, openai.UserMessage(prompt))

	return openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    msgs,
		Temperature: openai.Float(options.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
}

// GenerateJSON sends a single-turn prompt to the chat model in JSON mode and
// returns the generated document as text.
//
// Missing credentials surface as *ai.ConfigurationError, backend failures and
// responses without text as *ai.CallError.
//
// Example:
//
//	out, err := client.GenerateJSON(ctx, "Extract the argument...",
//		ai.WithSystemPrompts(system),
//		ai.WithTemperature(0),
//	)
func (c *OpenAIClient) GenerateJSON(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{Model: c.model}, opts...)

	client, model, err := c.newOpenaiClient(ctx, options.APIKey, options.Model)
	if err != nil {
		return "", err
	}

	if err := c.acquire(ctx); err != nil {
		return "", err
	}
	defer c.release()

	start := time.Now()
	response, err := client.Chat.Completions.New(ctx, c.buildBody(prompt, options, model))
	if err != nil {
		return "", ai.NewCallError(err)
	}

	logger.Debug("LLM call finished",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", response.Usage.PromptTokens,
		"output_tokens", response.Usage.CompletionTokens,
	)

	if len(response.Choices) == 0 {
		return "", ai.NewCallError(errors.New("no choices in response from model"))
	}
	message := response.Choices[0].Message.Content
	if message == "" {
		return "", ai.NewCallError(fmt.Errorf("empty response from model (finish_reason: %s)", response.Choices[0].FinishReason))
	}

	return message, nil
}

// GenerateJSONStream sends the prompt in JSON mode and returns a channel that
// streams the document incrementally.
//
// The returned channel will be closed automatically when the stream ends
// or the context is canceled. A failure after the stream started is reported
// as a final event of Type "error".
//
// Example:
//
//	stream, err := client.GenerateJSONStream(ctx, prompt)
//	if err != nil {
//		log.Fatal(err)
//	}
//	for ev := range stream {
//		fmt.Print(ev.Content)
//	}
func (c *OpenAIClient) GenerateJSONStream(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{Model: c.model}, opts...)

	client, model, err := c.newOpenaiClient(ctx, options.APIKey, options.Model)
	if err != nil {
		return nil, err
	}

	if err := c.acquire(ctx); err != nil {
		return nil, err
	}

	body := c.buildBody(prompt, options, model)
	body.StreamOptions = openai.ChatCompletionStreamOptionsParam{
		IncludeUsage: openai.Bool(true),
	}

	start := time.Now()
	stream := client.Chat.Completions.NewStreaming(ctx, body)
	contentChan := make(chan ai.StreamEvent, 16)

	go func() {
		defer c.release()
		defer close(contentChan)
		defer stream.Close()

		received := 0
		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 {
				continue
			}
			content := chunk.Choices[0].Delta.Content
			if content == "" {
				continue
			}
			received += len(content)
			select {
			case contentChan <- ai.StreamEvent{Type: "content", Content: content}:
			case <-ctx.Done():
				return
			}
		}

		var streamErr error
		switch {
		case ctx.Err() != nil:
			return
		case stream.Err() != nil:
			streamErr = ai.NewCallError(stream.Err())
		case received == 0:
			streamErr = ai.NewCallError(errors.New("empty response from model"))
		}

		if streamErr != nil {
			select {
			case contentChan <- ai.StreamEvent{Type: "error", Err: streamErr}:
			case <-ctx.Done():
			}
			return
		}

		logger.Debug("LLM stream finished",
			"model", model,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", received,
		)
	}()

	return contentChan, nil
}
