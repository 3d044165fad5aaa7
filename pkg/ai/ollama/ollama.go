package ollama

import (
	"context"
	"net/http"
	"net/url"

	"github.com/OFFIS-RIT/argmap/pkg/ai"

	"github.com/ollama/ollama/api"
	"golang.org/x/sync/semaphore"
)

// DefaultModel is used when neither the client nor the call names a model.
const DefaultModel = "qwen3:8b"

// OllamaClient implements the ai.ModelClient interface using Ollama as the backend.
// A local Ollama needs no credentials; when a key resolves it is sent as a
// bearer token, which is what hosted Ollama-compatible gateways expect.
type OllamaClient struct {
	model  string
	apiKey string

	reqLock *semaphore.Weighted

	baseURL    *url.URL
	httpClient *http.Client

	Client *api.Client
}

// NewOllamaClientParams contains configuration options for creating a new OllamaClient.
type NewOllamaClientParams struct {
	Model string

	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
}

// headerTransport adds the bearer token resolved for the request. The key
// travels in the request context so concurrent calls with different keys
// share one http.Client.
type headerTransport struct {
	rt http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := ai.RequestAPIKey(req.Context())
	if key == "" || req.Header.Get("Authorization") != "" {
		return t.rt.RoundTrip(req)
	}
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+key)
	return t.rt.RoundTrip(r)
}

// NewOllamaClient creates a new Ollama-based AI client with the specified configuration.
// It connects to the Ollama server at the given BaseURL (or the default if empty).
func NewOllamaClient(
	params NewOllamaClientParams,
) (*OllamaClient, error) {
	var (
		u   *url.URL
		err error
	)

	if params.BaseURL != "" {
		u, err = url.Parse(params.BaseURL)
		if err != nil {
			return nil, err
		}
	} else {
		u, err = url.Parse("http://127.0.0.1:11434")
		if err != nil {
			return nil, err
		}
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			rt: http.DefaultTransport,
		},
	}

	cli := api.NewClient(u, httpClient)

	var sem *semaphore.Weighted
	if params.MaxConcurrentRequests > 0 {
		sem = semaphore.NewWeighted(params.MaxConcurrentRequests)
	}

	model := params.Model
	if model == "" {
		model = DefaultModel
	}

	return &OllamaClient{
		model:  model,
		apiKey: params.ApiKey,

		reqLock: sem,

		baseURL:    u,
		httpClient: httpClient,

		Client: cli,
	}, nil
}

// Model returns the default model identifier of the client.
func (c *OllamaClient) Model() string {
	return c.model
}

func (c *OllamaClient) acquire(ctx context.Context) error {
	if c.reqLock == nil {
		return nil
	}
	return c.reqLock.Acquire(ctx, 1)
}

func (c *OllamaClient) release() {
	if c.reqLock != nil {
		c.reqLock.Release(1)
	}
}
