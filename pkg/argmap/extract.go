package argmap

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/OFFIS-RIT/argmap/pkg/ai"
	"github.com/OFFIS-RIT/argmap/pkg/logger"
)

// Extractor turns text into argument maps using a ModelClient.
type Extractor struct {
	client      ai.ModelClient
	strictGraph bool
	schema      any
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithStrictGraph makes structural issues found by Check fail the extraction
// with a *MalformedOutputError instead of being logged.
func WithStrictGraph(strict bool) ExtractorOption {
	return func(e *Extractor) {
		e.strictGraph = strict
	}
}

// NewExtractor creates an Extractor on top of client.
func NewExtractor(client ai.ModelClient, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		client: client,
		schema: ai.GenerateSchema(responseDocument{}),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

type extractOptions struct {
	apiKey      string
	temperature float64
	model       string
}

// ExtractOption configures a single extraction call.
type ExtractOption func(*extractOptions)

// WithAPIKey sets an explicit API key for the call.
func WithAPIKey(key string) ExtractOption {
	return func(o *extractOptions) {
		o.apiKey = key
	}
}

// WithTemperature sets the sampling temperature. The default is 0.0.
func WithTemperature(temp float64) ExtractOption {
	return func(o *extractOptions) {
		o.temperature = temp
	}
}

// WithModel overrides the client's default model.
func WithModel(model string) ExtractOption {
	return func(o *extractOptions) {
		o.model = model
	}
}

func (e *Extractor) generateOptions(opts []ExtractOption) []ai.GenerateOption {
	var o extractOptions
	for _, opt := range opts {
		opt(&o)
	}

	genOpts := []ai.GenerateOption{
		ai.WithSystemPrompts(SystemPrompt),
		ai.WithTemperature(o.temperature),
		ai.WithResponseSchema(e.schema),
	}
	if o.model != "" {
		genOpts = append(genOpts, ai.WithModel(o.model))
	}
	if o.apiKey != "" {
		genOpts = append(genOpts, ai.WithAPIKey(o.apiKey))
	}
	return genOpts
}

// Extract runs one blocking extraction for text.
//
// Configuration and backend failures are returned as produced by the model
// client (*ai.ConfigurationError, *ai.CallError). Output that is not a JSON
// object or does not describe an argument map fails with
// *MalformedOutputError; no partial map is ever returned.
func (e *Extractor) Extract(
	ctx context.Context,
	text string,
	opts ...ExtractOption,
) (*ArgumentMap, error) {
	raw, err := e.client.GenerateJSON(ctx, BuildPrompt(text), e.generateOptions(opts)...)
	if err != nil {
		return nil, err
	}
	return e.parse(text, raw)
}

func (e *Extractor) parse(text, raw string) (*ArgumentMap, error) {
	m, err := ParseResponse(text, raw)
	if err != nil {
		return nil, err
	}

	issues := m.Check()
	if len(issues) == 0 {
		return m, nil
	}
	if e.strictGraph {
		msgs := make([]string, 0, len(issues))
		for _, i := range issues {
			msgs = append(msgs, i.String())
		}
		return nil, &MalformedOutputError{Err: errors.New(strings.Join(msgs, "; "))}
	}
	for _, i := range issues {
		logger.Warn("Argument map has structural issue", "kind", i.Kind, "detail", i.Message)
	}
	return m, nil
}

// ParseResponse converts the raw model output for sourceText into an
// ArgumentMap. It is shared by the blocking and the streaming path.
func ParseResponse(sourceText, raw string) (*ArgumentMap, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &MalformedOutputError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &MalformedOutputError{Err: errors.New("unexpected data after JSON document")}
	}

	obj, ok := doc.(map[string]any)
	if !ok {
		return nil, &MalformedOutputError{Err: errors.New("top-level JSON value is not an object")}
	}

	m, err := fromDocument(sourceText, obj)
	if err != nil {
		return nil, &MalformedOutputError{Err: err}
	}
	return m, nil
}

// responseDocument describes the document the model is asked for. It only
// feeds the response schema handed to backends that support one.
type responseDocument struct {
	Nodes       []responseNode `json:"nodes" jsonschema_description:"Claims, concepts and inferences found in the text"`
	Edges       []responseEdge `json:"edges" jsonschema_description:"Directed relationships between nodes"`
	Summary     string         `json:"summary,omitempty" jsonschema_description:"1-2 sentence overview of the main argument"`
	KeyTensions []string       `json:"key_tensions,omitempty" jsonschema_description:"Gaps, conflicts or unresolved issues"`
}

type responseNode struct {
	ID              string        `json:"id"`
	Content         string        `json:"content"`
	Type            string        `json:"type" jsonschema_description:"Open vocabulary, e.g. premise or conclusion"`
	RhetoricalForce string        `json:"rhetorical_force,omitempty" jsonschema_description:"asserts, suggests, questions, assumes or hypothesizes"`
	Span            *responseSpan `json:"span,omitempty" jsonschema_description:"Character offsets in the text; omit or null for implicit claims"`
}

type responseSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type responseEdge struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type" jsonschema_description:"Open vocabulary, e.g. supports or attacks"`
	Explanation string `json:"explanation,omitempty"`
}
