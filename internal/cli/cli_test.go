package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OFFIS-RIT/argmap/internal/setup"
	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/argmap"
	"github.com/OFFIS-RIT/argmap/pkg/store"
	"github.com/OFFIS-RIT/argmap/pkg/store/fs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exampleOutput = `{"nodes":[{"id":"n1","content":"Exercise improves health","type":"premise"},{"id":"n2","content":"everyone should exercise daily","type":"conclusion"}],"edges":[{"source":"n1","target":"n2","type":"supports"}]}`

type cannedModel struct {
	output string
	err    error
	opts   ai.GenerateOptions
}

func (m *cannedModel) GenerateJSON(_ context.Context, _ string, opts ...ai.GenerateOption) (string, error) {
	m.opts = ai.NewGenerateOptions(ai.GenerateOptions{}, opts...)
	if m.err != nil {
		return "", m.err
	}
	return m.output, nil
}

func (m *cannedModel) GenerateJSONStream(_ context.Context, _ string, opts ...ai.GenerateOption) (<-chan ai.StreamEvent, error) {
	m.opts = ai.NewGenerateOptions(ai.GenerateOptions{}, opts...)
	if m.err != nil {
		return nil, m.err
	}
	out := make(chan ai.StreamEvent, 2)
	half := len(m.output) / 2
	out <- ai.StreamEvent{Type: "content", Content: m.output[:half]}
	out <- ai.StreamEvent{Type: "content", Content: m.output[half:]}
	close(out)
	return out, nil
}

// withFakes points the command factories at model and a store in a
// temporary directory.
func withFakes(t *testing.T, model *cannedModel) store.Store {
	t.Helper()
	s := fs.NewStore(t.TempDir())

	origExtractor, origStore := newExtractor, newStore
	newExtractor = func(setup.Config) (*argmap.Extractor, error) {
		return argmap.NewExtractor(model), nil
	}
	newStore = func(context.Context, setup.Config) (store.Store, func(), error) {
		return s, func() {}, nil
	}
	t.Cleanup(func() {
		newExtractor, newStore = origExtractor, origStore
	})
	return s
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	extractFile, extractURL, extractStream, extractTemperature = "", "", false, 0
	extractModel, extractAPIKey, extractNoSave = "", "", false
	savedJSON = false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	err := Execute(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestExtractCommand(t *testing.T) {
	model := &cannedModel{output: exampleOutput}
	s := withFakes(t, model)

	stdout, _, err := run(t, "", "extract", "Exercise improves health.", "-t", "0.5", "-m", "gemini-2.5-pro")
	require.NoError(t, err)

	var resp argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.True(t, resp.Success)
	assert.Len(t, resp.Result.Nodes, 2)
	require.NotNil(t, resp.SavedHash)

	assert.Equal(t, 0.5, model.opts.Temperature)
	assert.Equal(t, "gemini-2.5-pro", model.opts.Model)

	q, err := s.GetQuery(context.Background(), *resp.SavedHash)
	require.NoError(t, err)
	assert.Equal(t, "Exercise improves health.", q.Text)
	assert.Equal(t, "gemini-2.5-pro", *q.Model)
}

func TestExtractCommand_Inputs(t *testing.T) {
	model := &cannedModel{output: `{}`}
	withFakes(t, model)

	path := filepath.Join(t.TempDir(), "input.txt")
	require.NoError(t, os.WriteFile(path, []byte("from file"), 0o644))

	_, _, err := run(t, "", "extract", "--file", path, "--no-save")
	require.NoError(t, err)

	stdout, _, err := run(t, "from stdin", "extract", "-", "--no-save", "--api-key", "cli-key")
	require.NoError(t, err)
	assert.Equal(t, "cli-key", model.opts.APIKey)

	var resp argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "from stdin", resp.Result.SourceText)
	assert.Nil(t, resp.SavedHash)

	_, _, err = run(t, "", "extract")
	assert.Error(t, err)

	_, _, err = run(t, "", "extract", "--url", "not a url")
	assert.ErrorContains(t, err, "not an http(s) url")

	_, _, err = run(t, "   ", "extract", "-")
	assert.Error(t, err)
}

func TestExtractCommand_Failure(t *testing.T) {
	withFakes(t, &cannedModel{err: &ai.ConfigurationError{Err: ai.ErrNotConfigured}})

	stdout, _, err := run(t, "", "extract", "text")
	assert.ErrorIs(t, err, errExtractionFailed)

	var resp argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.True(t, strings.HasPrefix(*resp.Error, "LLM not configured"))
}

func TestExtractCommand_Stream(t *testing.T) {
	withFakes(t, &cannedModel{output: exampleOutput})

	stdout, stderr, err := run(t, "", "extract", "text", "--stream", "--no-save")
	require.NoError(t, err)

	var resp argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Len(t, resp.Result.Edges, 1)
	assert.Contains(t, stderr, "2 nodes, 1 edges")
}

func TestSavedCommands(t *testing.T) {
	withFakes(t, &cannedModel{output: exampleOutput})

	stdout, _, err := run(t, "", "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, "No saved queries.")

	stdout, _, err = run(t, "", "extract", "Exercise improves health.")
	require.NoError(t, err)
	var resp argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	hash := *resp.SavedHash

	stdout, _, err = run(t, "", "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, stdout, hash)
	assert.Contains(t, stdout, "Exercise improves health.")

	stdout, _, err = run(t, "", "saved", "list", "--json")
	require.NoError(t, err)
	var previews []store.QueryPreview
	require.NoError(t, json.Unmarshal([]byte(stdout), &previews))
	require.Len(t, previews, 1)

	stdout, _, err = run(t, "", "saved", "show", hash)
	require.NoError(t, err)
	assert.Contains(t, stdout, `"text": "Exercise improves health."`)

	stdout, _, err = run(t, "", "results", "show", hash)
	require.NoError(t, err)
	var saved argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &saved))
	assert.Equal(t, resp, saved)

	_, _, err = run(t, "", "saved", "show", "0000000000ff")
	assert.ErrorContains(t, err, "no saved query")

	_, _, err = run(t, "", "saved", "show")
	assert.Error(t, err)
}

func TestExtractCommand_URL(t *testing.T) {
	model := &cannedModel{output: `{}`}
	withFakes(t, model)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "Taxes fund schools. So taxes should rise.")
	}))
	defer srv.Close()

	stdout, _, err := run(t, "", "extract", "--url", srv.URL+"/essay.txt", "--no-save")
	require.NoError(t, err)

	var resp argmap.Response
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "Taxes fund schools. So taxes should rise.", resp.Result.SourceText)
}
