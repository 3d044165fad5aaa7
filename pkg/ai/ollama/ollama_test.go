package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/OFFIS-RIT/argmap/pkg/ai"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatServer struct {
	mu     sync.Mutex
	auth   []string
	bodies []api.ChatRequest
	parts  []string
}

func (s *chatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/chat" {
		http.NotFound(w, r)
		return
	}
	var req api.ChatRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	s.mu.Lock()
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.bodies = append(s.bodies, req)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/x-ndjson")
	enc := json.NewEncoder(w)
	for _, p := range s.parts {
		_ = enc.Encode(api.ChatResponse{
			Model:   req.Model,
			Message: api.Message{Role: "assistant", Content: p},
		})
	}
	_ = enc.Encode(api.ChatResponse{Model: req.Model, Done: true, DoneReason: "stop"})
}

func newTestClient(t *testing.T, apiKey string, parts ...string) (*OllamaClient, *chatServer) {
	t.Helper()
	cs := &chatServer{parts: parts}
	srv := httptest.NewServer(cs)
	t.Cleanup(srv.Close)

	client, err := NewOllamaClient(NewOllamaClientParams{
		Model:   "test-model",
		BaseURL: srv.URL,
		ApiKey:  apiKey,
	})
	require.NoError(t, err)
	return client, cs
}

func TestGenerateJSON(t *testing.T) {
	client, srv := newTestClient(t, "", `{"nodes"`, `:[]}`)

	out, err := client.GenerateJSON(context.Background(), "prompt",
		ai.WithSystemPrompts("system"),
		ai.WithTemperature(0.4),
	)
	require.NoError(t, err)
	assert.Equal(t, `{"nodes":[]}`, out)

	require.Len(t, srv.bodies, 1)
	req := srv.bodies[0]
	assert.Equal(t, "test-model", req.Model)
	assert.Equal(t, `"json"`, string(req.Format))
	assert.Equal(t, 0.4, req.Options["temperature"])
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "prompt", req.Messages[1].Content)
	assert.Empty(t, srv.auth[0])
}

func TestGenerateJSON_SchemaFormat(t *testing.T) {
	client, srv := newTestClient(t, "", `{}`)

	schema := map[string]any{"type": "object"}
	_, err := client.GenerateJSON(context.Background(), "prompt", ai.WithResponseSchema(schema))
	require.NoError(t, err)

	assert.JSONEq(t, `{"type":"object"}`, string(srv.bodies[0].Format))
}

func TestGenerateJSON_BearerKey(t *testing.T) {
	client, srv := newTestClient(t, "env-key", `{}`)

	_, err := client.GenerateJSON(context.Background(), "p")
	require.NoError(t, err)
	_, err = client.GenerateJSON(ai.WithRequestAPIKey(context.Background(), "request-key"), "p")
	require.NoError(t, err)
	_, err = client.GenerateJSON(context.Background(), "p", ai.WithAPIKey("explicit-key"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer env-key", "Bearer request-key", "Bearer explicit-key"}, srv.auth)
}

func TestGenerateJSON_Empty(t *testing.T) {
	client, _ := newTestClient(t, "")

	_, err := client.GenerateJSON(context.Background(), "p")
	var callErr *ai.CallError
	assert.ErrorAs(t, err, &callErr)
}

func TestGenerateJSONStream(t *testing.T) {
	client, _ := newTestClient(t, "", `{"nodes"`, `:[],`, `"edges":[]}`)

	stream, err := client.GenerateJSONStream(context.Background(), "p")
	require.NoError(t, err)

	var got strings.Builder
	n := 0
	for ev := range stream {
		require.Equal(t, "content", ev.Type, "unexpected error event: %v", ev.Err)
		got.WriteString(ev.Content)
		n++
	}
	assert.Equal(t, 3, n)
	assert.Equal(t, `{"nodes":[],"edges":[]}`, got.String())
}

func TestGenerateJSONStream_Empty(t *testing.T) {
	client, _ := newTestClient(t, "")

	stream, err := client.GenerateJSONStream(context.Background(), "p")
	require.NoError(t, err)

	var events []ai.StreamEvent
	for ev := range stream {
		events = append(events, ev)
	}
	require.Len(t, events, 1)
	assert.Equal(t, "error", events[0].Type)
}

func TestNewOllamaClient_Defaults(t *testing.T) {
	client, err := NewOllamaClient(NewOllamaClientParams{})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, client.Model())
	assert.Equal(t, "127.0.0.1:11434", client.baseURL.Host)
}
