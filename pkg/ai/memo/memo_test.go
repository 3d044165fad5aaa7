package memo

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	calls   atomic.Int32
	output  string
	err     error
	streams atomic.Int32
}

func (c *countingClient) GenerateJSON(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return c.output, nil
}

func (c *countingClient) GenerateJSONStream(ctx context.Context, prompt string, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	c.streams.Add(1)
	out := make(chan ai.StreamEvent, 1)
	out <- ai.StreamEvent{Type: "content", Content: c.output}
	close(out)
	return out, nil
}

func newMemo(inner ai.ModelClient) *Client {
	return NewClient(inner, cache.NewMemoryCache(time.Minute, time.Minute), "default-model")
}

func TestGenerateJSON_HitSkipsBackend(t *testing.T) {
	inner := &countingClient{output: `{"nodes":[]}`}
	c := newMemo(inner)
	ctx := context.Background()

	first, err := c.GenerateJSON(ctx, "prompt", ai.WithTemperature(0))
	require.NoError(t, err)
	second, err := c.GenerateJSON(ctx, "prompt", ai.WithTemperature(0))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestGenerateJSON_HitNeedsNoCredentials(t *testing.T) {
	inner := &countingClient{output: `{}`}
	c := newMemo(inner)
	ctx := context.Background()

	_, err := c.GenerateJSON(ctx, "prompt", ai.WithAPIKey("first"))
	require.NoError(t, err)

	inner.err = &ai.ConfigurationError{Err: ai.ErrNotConfigured}
	out, err := c.GenerateJSON(ctx, "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{}`, out)
}

func TestGenerateJSON_ErrorsAreNotCached(t *testing.T) {
	inner := &countingClient{err: ai.NewCallError(errors.New("unavailable"))}
	c := newMemo(inner)
	ctx := context.Background()

	_, err := c.GenerateJSON(ctx, "prompt")
	var callErr *ai.CallError
	require.ErrorAs(t, err, &callErr)

	inner.err = nil
	inner.output = `{}`
	out, err := c.GenerateJSON(ctx, "prompt")
	require.NoError(t, err)
	assert.Equal(t, `{}`, out)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestKey(t *testing.T) {
	c := newMemo(&countingClient{})

	base, err := c.Key("prompt", ai.WithTemperature(0.5))
	require.NoError(t, err)

	tests := []struct {
		name string
		opts []ai.GenerateOption
		same bool
	}{
		{name: "explicit default model", opts: []ai.GenerateOption{ai.WithTemperature(0.5), ai.WithModel("default-model")}, same: true},
		{name: "api key ignored", opts: []ai.GenerateOption{ai.WithTemperature(0.5), ai.WithAPIKey("k")}, same: true},
		{name: "temperature", opts: []ai.GenerateOption{ai.WithTemperature(0.6)}},
		{name: "model", opts: []ai.GenerateOption{ai.WithTemperature(0.5), ai.WithModel("other")}},
		{name: "system prompt", opts: []ai.GenerateOption{ai.WithTemperature(0.5), ai.WithSystemPrompts("sys")}},
		{name: "schema", opts: []ai.GenerateOption{ai.WithTemperature(0.5), ai.WithResponseSchema(map[string]string{"type": "object"})}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := c.Key("prompt", tt.opts...)
			require.NoError(t, err)
			if tt.same {
				assert.Equal(t, base, key)
			} else {
				assert.NotEqual(t, base, key)
			}
		})
	}

	other, err := c.Key("other prompt", ai.WithTemperature(0.5))
	require.NoError(t, err)
	assert.NotEqual(t, base, other)
}

// gatedClient blocks every call until release is closed. Calls without any
// API key then fail like an unconfigured backend.
type gatedClient struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func newGatedClient() *gatedClient {
	return &gatedClient{
		started: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (c *gatedClient) GenerateJSON(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	c.calls.Add(1)
	c.started <- struct{}{}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-c.release:
	}

	options := ai.NewGenerateOptions(ai.GenerateOptions{}, opts...)
	if _, err := ai.ResolveAuth(ctx, options.APIKey, ai.AuthDefaults{}, true); err != nil {
		return "", err
	}
	return `{"nodes":[]}`, nil
}

func (c *gatedClient) GenerateJSONStream(ctx context.Context, prompt string, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	return nil, errors.New("not used")
}

func TestGenerateJSON_ConcurrentCallsShareBackend(t *testing.T) {
	inner := newGatedClient()
	c := newMemo(inner)
	ctx := ai.WithRequestAPIKey(context.Background(), "key")

	go func() {
		_, _ = c.GenerateJSON(ctx, "prompt")
	}()
	<-inner.started

	var (
		ready sync.WaitGroup
		done  sync.WaitGroup
		start = make(chan struct{})
	)
	for range 5 {
		ready.Add(1)
		done.Add(1)
		go func() {
			defer done.Done()
			ready.Done()
			<-start
			out, err := c.GenerateJSON(ctx, "prompt")
			assert.NoError(t, err)
			assert.Equal(t, `{"nodes":[]}`, out)
		}()
	}
	ready.Wait()
	close(start)
	time.Sleep(50 * time.Millisecond)
	close(inner.release)
	done.Wait()

	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestGenerateJSON_ConcurrentCallsKeepOwnCredentials(t *testing.T) {
	inner := newGatedClient()
	c := newMemo(inner)

	errA := make(chan error, 1)
	go func() {
		_, err := c.GenerateJSON(context.Background(), "prompt")
		errA <- err
	}()
	<-inner.started

	outB := make(chan string, 1)
	go func() {
		out, err := c.GenerateJSON(ai.WithRequestAPIKey(context.Background(), "b-key"), "prompt")
		assert.NoError(t, err)
		outB <- out
	}()
	<-inner.started
	close(inner.release)

	assert.ErrorIs(t, <-errA, ai.ErrNotConfigured)
	assert.Equal(t, `{"nodes":[]}`, <-outB)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestGenerateJSON_CallerCancelDoesNotReachOthers(t *testing.T) {
	inner := newGatedClient()
	c := newMemo(inner)

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	errA := make(chan error, 1)
	go func() {
		_, err := c.GenerateJSON(ctxA, "prompt", ai.WithAPIKey("k"))
		errA <- err
	}()
	<-inner.started

	outB := make(chan string, 1)
	go func() {
		out, err := c.GenerateJSON(context.Background(), "prompt", ai.WithAPIKey("k"))
		assert.NoError(t, err)
		outB <- out
	}()
	time.Sleep(50 * time.Millisecond)

	cancelA()
	assert.ErrorIs(t, <-errA, context.Canceled)

	close(inner.release)
	assert.Equal(t, `{"nodes":[]}`, <-outB)
	assert.EqualValues(t, 1, inner.calls.Load())
}

func TestGenerateJSONStream_PassesThrough(t *testing.T) {
	inner := &countingClient{output: `{}`}
	c := newMemo(inner)

	for range 2 {
		stream, err := c.GenerateJSONStream(context.Background(), "prompt")
		require.NoError(t, err)
		for range stream {
		}
	}

	assert.EqualValues(t, 2, inner.streams.Load())
	assert.EqualValues(t, 0, inner.calls.Load())
}
