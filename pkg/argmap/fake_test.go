package argmap

import (
	"context"
	"sync"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
)

// fakeClient answers every call with the same canned output.
type fakeClient struct {
	output string
	chunks []string
	err    error

	// streamErr is sent as final event after all chunks.
	streamErr error

	mu      sync.Mutex
	prompts []string
	options []ai.GenerateOptions
}

func (f *fakeClient) record(prompt string, opts []ai.GenerateOption) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompt)
	f.options = append(f.options, ai.NewGenerateOptions(ai.GenerateOptions{Model: "default-model"}, opts...))
}

func (f *fakeClient) lastOptions() ai.GenerateOptions {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.options[len(f.options)-1]
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	f.record(prompt, opts)
	if f.err != nil {
		return "", f.err
	}
	return f.output, nil
}

func (f *fakeClient) GenerateJSONStream(ctx context.Context, prompt string, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	f.record(prompt, opts)
	if f.err != nil {
		return nil, f.err
	}

	chunks := f.chunks
	if chunks == nil {
		chunks = splitEvery(f.output, 7)
	}

	out := make(chan ai.StreamEvent)
	go func() {
		defer close(out)
		for _, c := range chunks {
			select {
			case out <- ai.StreamEvent{Type: "content", Content: c}:
			case <-ctx.Done():
				return
			}
		}
		if f.streamErr != nil {
			select {
			case out <- ai.StreamEvent{Type: "error", Err: f.streamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
