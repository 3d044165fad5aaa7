// Package memo memoizes blocking model calls by their exact input.
//
// The wrapped client is only reached on a miss, so credentials are resolved
// only when the backend is actually called. Streaming calls pass straight
// through: a cached document cannot reproduce the original chunk boundaries.
package memo

import (
	"context"
	"encoding/json"
	"math"
	"strconv"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/cache"
	"github.com/OFFIS-RIT/argmap/pkg/logger"

	"golang.org/x/sync/singleflight"
)

// Client wraps an ai.ModelClient and serves repeated blocking calls from a
// cache.Cache.
type Client struct {
	inner        ai.ModelClient
	cache        cache.Cache
	defaultModel string

	group singleflight.Group
}

var _ ai.ModelClient = (*Client)(nil)

// NewClient returns a memoizing client. defaultModel must be the model the
// inner client uses when a call names none, so that calls with and without
// an explicit model share entries.
func NewClient(inner ai.ModelClient, c cache.Cache, defaultModel string) *Client {
	return &Client{
		inner:        inner,
		cache:        c,
		defaultModel: defaultModel,
	}
}

// Key returns the cache key for a call. The API key is not
// part of it.
func (c *Client) Key(prompt string, opts ...ai.GenerateOption) (string, error) {
	options := ai.NewGenerateOptions(ai.GenerateOptions{Model: c.defaultModel}, opts...)

	system, err := json.Marshal(options.SystemPrompts)
	if err != nil {
		return "", err
	}
	schema, err := json.Marshal(options.ResponseSchema)
	if err != nil {
		return "", err
	}
	temp := strconv.FormatUint(math.Float64bits(options.Temperature), 16)

	return cache.Key("llm",
		[]byte(prompt),
		system,
		[]byte(options.Model),
		[]byte(temp),
		schema,
	), nil
}

// GenerateJSON returns the cached text for an identical earlier call or
// calls the wrapped client and stores its answer. Failed calls are not
// cached.
func (c *Client) GenerateJSON(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (string, error) {
	key, err := c.Key(prompt, opts...)
	if err != nil {
		return "", ai.NewCallError(err)
	}

	if val, ok := c.cache.Get(key); ok {
		logger.Debug("LLM cache hit", "key", key)
		return string(val), nil
	}

	// Only callers with the same credentials share an in-flight call, and
	// the call outlives any single caller's cancellation.
	callKey := c.callKey(ctx, key, opts...)
	callCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(callKey, func() (any, error) {
		text, err := c.inner.GenerateJSON(callCtx, prompt, opts...)
		if err != nil {
			return "", err
		}
		if err := c.cache.Set(key, []byte(text), 0); err != nil {
			logger.Warn("Failed to write LLM cache", "key", key, "err", err)
		}
		return text, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			logger.Debug("LLM call shared with concurrent caller", "key", key)
		}
		return res.Val.(string), nil
	}
}

// callKey extends a cache key with the credentials of the call.
func (c *Client) callKey(ctx context.Context, key string, opts ...ai.GenerateOption) string {
	options := ai.NewGenerateOptions(ai.GenerateOptions{}, opts...)
	return cache.Key(key,
		[]byte(options.APIKey),
		[]byte(ai.RequestAPIKey(ctx)),
	)
}

// GenerateJSONStream is never cached.
func (c *Client) GenerateJSONStream(
	ctx context.Context,
	prompt string,
	opts ...ai.GenerateOption,
) (<-chan ai.StreamEvent, error) {
	return c.inner.GenerateJSONStream(ctx, prompt, opts...)
}
