package argmap

import (
	"context"
	"strings"
)

// StreamEvent is emitted by ExtractStream.
//
// Type is "chunk" for a raw fragment of the model output, "result" for the
// final map and "error" for a terminal failure. Exactly one "result" or
// "error" event ends a stream that was not canceled.
type StreamEvent struct {
	Type    string
	Content string
	Map     *ArgumentMap
	Err     error
}

// ExtractStream runs a streaming extraction for text.
//
// Fragments are forwarded in the order the backend produced them while being
// accumulated. Once the backend is done the accumulated text goes through the
// same conversion as Extract. The returned channel is single pass and closed
// after the terminal event, or as soon as ctx is canceled.
func (e *Extractor) ExtractStream(
	ctx context.Context,
	text string,
	opts ...ExtractOption,
) (<-chan StreamEvent, error) {
	ctx, cancel := context.WithCancel(ctx)

	stream, err := e.client.GenerateJSONStream(ctx, BuildPrompt(text), e.generateOptions(opts)...)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan StreamEvent)

	go func() {
		defer close(out)
		defer cancel()

		send := func(ev StreamEvent) bool {
			select {
			case out <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		var acc strings.Builder
		for ev := range stream {
			if ev.Type == "error" {
				send(StreamEvent{Type: "error", Err: ev.Err})
				return
			}
			acc.WriteString(ev.Content)
			if !send(StreamEvent{Type: "chunk", Content: ev.Content}) {
				return
			}
		}
		if ctx.Err() != nil {
			return
		}

		m, err := e.parse(text, acc.String())
		if err != nil {
			send(StreamEvent{Type: "error", Err: err})
			return
		}
		send(StreamEvent{Type: "result", Map: m})
	}()

	return out, nil
}
