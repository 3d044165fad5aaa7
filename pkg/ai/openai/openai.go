package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/OFFIS-RIT/argmap/pkg/ai"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/sync/semaphore"
)

const (
	// GeminiBaseURL is the OpenAI-compatible endpoint of the Gemini API.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	// DefaultModel is used when neither the client nor the call names a model.
	DefaultModel = "gemini-2.5-flash"

	cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"
)

// OpenAIClient implements ai.ModelClient against any OpenAI-compatible chat
// completions endpoint. By default it talks to the Gemini API; when only a
// Google Cloud project is configured it switches to the Vertex AI OpenAI
// endpoint and authenticates with application default credentials.
//
// Credentials are resolved on every call so a request-scoped key only ever
// affects the request that carries it.
//
// An OpenAIClient should be created using NewOpenAIClient.
type OpenAIClient struct {
	baseURL string
	model   string
	auth    ai.AuthDefaults

	reqLock *semaphore.Weighted

	httpClient *http.Client

	tokenLock   sync.Mutex
	tokenSource oauth2.TokenSource
	findTokens  func(ctx context.Context, scopes ...string) (oauth2.TokenSource, error)
}

// NewOpenAIClientParams defines the configuration parameters for creating
// a new OpenAIClient.
//
// BaseURL overrides the Gemini endpoint (e.g. https://api.openai.com/v1).
// APIKey is the process-wide default key. Project and Location select
// Vertex AI when no key resolves. MaxConcurrentRequests bounds in-flight
// calls; zero leaves them unbounded.
type NewOpenAIClientParams struct {
	BaseURL string
	Model   string

	APIKey   string
	Project  string
	Location string

	MaxConcurrentRequests int64

	HTTPClient *http.Client
}

// NewOpenAIClient creates and returns a new OpenAIClient configured with
// the provided parameters.
//
// Example:
//
//	client := openai.NewOpenAIClient(openai.NewOpenAIClientParams{
//		Model:  "gemini-2.5-flash",
//		APIKey: os.Getenv("GEMINI_API_KEY"),
//	})
func NewOpenAIClient(params NewOpenAIClientParams) *OpenAIClient {
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = GeminiBaseURL
	}
	model := params.Model
	if model == "" {
		model = DefaultModel
	}

	var sem *semaphore.Weighted
	if params.MaxConcurrentRequests > 0 {
		sem = semaphore.NewWeighted(params.MaxConcurrentRequests)
	}

	return &OpenAIClient{
		baseURL: baseURL,
		model:   model,
		auth: ai.AuthDefaults{
			APIKey:   params.APIKey,
			Project:  params.Project,
			Location: params.Location,
		},
		reqLock:    sem,
		httpClient: params.HTTPClient,
		findTokens: google.DefaultTokenSource,
	}
}

// Model returns the default model identifier of the client.
func (c *OpenAIClient) Model() string {
	return c.model
}

// newOpenaiClient resolves credentials for one call and builds the SDK
// client for them together with the model name the endpoint expects.
func (c *OpenAIClient) newOpenaiClient(
	ctx context.Context,
	explicitKey string,
	model string,
) (*openai.Client, string, error) {
	auth, err := ai.ResolveAuth(ctx, explicitKey, c.auth, true)
	if err != nil {
		return nil, "", err
	}

	options := []option.RequestOption{
		option.WithMaxRetries(0),
	}

	if auth.UsesProject() {
		ts, err := c.projectTokenSource()
		if err != nil {
			return nil, "", &ai.ConfigurationError{Err: fmt.Errorf("failed to init vertex ai credentials: %w", err)}
		}
		base := c.httpClient
		if base == nil {
			base = http.DefaultClient
		}
		options = append(options,
			option.WithBaseURL(vertexBaseURL(auth.Project, auth.Location)),
			option.WithHTTPClient(&http.Client{
				Transport: &oauth2.Transport{Source: ts, Base: base.Transport},
				Timeout:   base.Timeout,
			}),
		)
		if !strings.Contains(model, "/") {
			model = "google/" + model
		}
	} else {
		options = append(options,
			option.WithAPIKey(auth.APIKey),
			option.WithBaseURL(c.baseURL),
		)
		if c.httpClient != nil {
			options = append(options, option.WithHTTPClient(c.httpClient))
		}
	}

	client := openai.NewClient(options...)
	return &client, model, nil
}

func (c *OpenAIClient) projectTokenSource() (oauth2.TokenSource, error) {
	c.tokenLock.Lock()
	defer c.tokenLock.Unlock()

	if c.tokenSource != nil {
		return c.tokenSource, nil
	}
	// Token refreshes outlive the request that triggered them.
	ts, err := c.findTokens(context.Background(), cloudPlatformScope)
	if err != nil {
		return nil, err
	}
	c.tokenSource = oauth2.ReuseTokenSource(nil, ts)
	return c.tokenSource, nil
}

func vertexBaseURL(project, location string) string {
	host := location + "-aiplatform.googleapis.com"
	if location == "global" {
		host = "aiplatform.googleapis.com"
	}
	return fmt.Sprintf(
		"https://%s/v1/projects/%s/locations/%s/endpoints/openapi/",
		host, project, location,
	)
}

func (c *OpenAIClient) acquire(ctx context.Context) error {
	if c.reqLock == nil {
		return nil
	}
	return c.reqLock.Acquire(ctx, 1)
}

func (c *OpenAIClient) release() {
	if c.reqLock != nil {
		c.reqLock.Release(1)
	}
}
