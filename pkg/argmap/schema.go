// Package argmap holds the argument map schema and the extraction pipeline
// that turns prose into it with the help of a generative model.
//
// The schema validates shape only. Node and edge types as well as rhetorical
// forces are open vocabulary chosen by the model.
package argmap

import (
	"encoding/json"
	"fmt"
	"math"
)

// Version is the schema version stamped on every ArgumentMap.
const Version = "1.0"

// TextSpan is a half-open character range [Start, End) into the source text.
type TextSpan struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Node is a claim, concept or inference. A nil Span marks an implicit claim
// that is not quoted from the source.
type Node struct {
	ID              string    `json:"id"`
	Content         string    `json:"content"`
	Type            string    `json:"type"`
	RhetoricalForce *string   `json:"rhetorical_force"`
	Span            *TextSpan `json:"span"`
}

// Edge is a directed relationship between two nodes.
type Edge struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Type        string  `json:"type"`
	Explanation *string `json:"explanation"`
}

// ArgumentMap is the complete graph extracted from one source text.
//
// Nodes and Edges are never nil. Summary and KeyTensions are nil when the
// model did not provide them; an empty KeyTensions slice means the model
// explicitly reported none.
type ArgumentMap struct {
	Version     string   `json:"version"`
	SourceText  string   `json:"source_text"`
	Nodes       []Node   `json:"nodes"`
	Edges       []Edge   `json:"edges"`
	Summary     *string  `json:"summary"`
	KeyTensions []string `json:"key_tensions"`
}

// SchemaValidationError reports a required field that is missing or a field
// holding the wrong primitive type.
type SchemaValidationError struct {
	Kind   string // "node", "edge", "span", "argument_map"
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("invalid %s: field %q %s", e.Kind, e.Field, e.Reason)
}

func requiredString(m map[string]any, kind, field string) (string, error) {
	v, ok := m[field]
	if !ok || v == nil {
		return "", &SchemaValidationError{Kind: kind, Field: field, Reason: "is required"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &SchemaValidationError{Kind: kind, Field: field, Reason: "must be a string"}
	}
	return s, nil
}

func optionalString(m map[string]any, kind, field string) (*string, error) {
	v, ok := m[field]
	if !ok || v == nil {
		return nil, nil
	}
	s, ok := v.(string)
	if !ok {
		return nil, &SchemaValidationError{Kind: kind, Field: field, Reason: "must be a string or null"}
	}
	return &s, nil
}

func requiredInt(m map[string]any, kind, field string) (int, error) {
	v, ok := m[field]
	if !ok || v == nil {
		return 0, &SchemaValidationError{Kind: kind, Field: field, Reason: "is required"}
	}

	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err == nil && f == math.Trunc(f) {
			return int(f), nil
		}
	case float64:
		if n == math.Trunc(n) {
			return int(n), nil
		}
	case int:
		return n, nil
	case int64:
		return int(n), nil
	}
	return 0, &SchemaValidationError{Kind: kind, Field: field, Reason: "must be an integer"}
}

func asObject(v any, kind string) (map[string]any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, &SchemaValidationError{Kind: kind, Field: "", Reason: "must be an object"}
	}
	return m, nil
}

// SpanFromMap builds a TextSpan. nil and an empty object both mean "no span".
func SpanFromMap(v any) (*TextSpan, error) {
	if v == nil {
		return nil, nil
	}
	m, err := asObject(v, "span")
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return nil, nil
	}

	start, err := requiredInt(m, "span", "start")
	if err != nil {
		return nil, err
	}
	end, err := requiredInt(m, "span", "end")
	if err != nil {
		return nil, err
	}
	return &TextSpan{Start: start, End: end}, nil
}

// NodeFromMap builds a Node from a decoded JSON object.
func NodeFromMap(m map[string]any) (Node, error) {
	var (
		n   Node
		err error
	)
	if n.ID, err = requiredString(m, "node", "id"); err != nil {
		return Node{}, err
	}
	if n.Content, err = requiredString(m, "node", "content"); err != nil {
		return Node{}, err
	}
	if n.Type, err = requiredString(m, "node", "type"); err != nil {
		return Node{}, err
	}
	if n.RhetoricalForce, err = optionalString(m, "node", "rhetorical_force"); err != nil {
		return Node{}, err
	}
	if n.Span, err = SpanFromMap(m["span"]); err != nil {
		return Node{}, err
	}
	return n, nil
}

// EdgeFromMap builds an Edge from a decoded JSON object.
func EdgeFromMap(m map[string]any) (Edge, error) {
	var (
		e   Edge
		err error
	)
	if e.Source, err = requiredString(m, "edge", "source"); err != nil {
		return Edge{}, err
	}
	if e.Target, err = requiredString(m, "edge", "target"); err != nil {
		return Edge{}, err
	}
	if e.Type, err = requiredString(m, "edge", "type"); err != nil {
		return Edge{}, err
	}
	if e.Explanation, err = optionalString(m, "edge", "explanation"); err != nil {
		return Edge{}, err
	}
	return e, nil
}

// ArgumentMapFromMap builds an ArgumentMap from a decoded JSON object that
// carries its own source_text.
func ArgumentMapFromMap(m map[string]any) (*ArgumentMap, error) {
	sourceText, err := requiredString(m, "argument_map", "source_text")
	if err != nil {
		return nil, err
	}
	am, err := fromDocument(sourceText, m)
	if err != nil {
		return nil, err
	}
	if version, err := optionalString(m, "argument_map", "version"); err != nil {
		return nil, err
	} else if version != nil {
		am.Version = *version
	}
	return am, nil
}

// fromDocument converts the model's document into an ArgumentMap for
// sourceText. Absent nodes or edges become empty slices.
func fromDocument(sourceText string, doc map[string]any) (*ArgumentMap, error) {
	am := &ArgumentMap{
		Version:    Version,
		SourceText: sourceText,
		Nodes:      []Node{},
		Edges:      []Edge{},
	}

	rawNodes, err := optionalArray(doc, "nodes")
	if err != nil {
		return nil, err
	}
	for i, raw := range rawNodes {
		m, err := asObject(raw, "node")
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		n, err := NodeFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("nodes[%d]: %w", i, err)
		}
		am.Nodes = append(am.Nodes, n)
	}

	rawEdges, err := optionalArray(doc, "edges")
	if err != nil {
		return nil, err
	}
	for i, raw := range rawEdges {
		m, err := asObject(raw, "edge")
		if err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
		e, err := EdgeFromMap(m)
		if err != nil {
			return nil, fmt.Errorf("edges[%d]: %w", i, err)
		}
		am.Edges = append(am.Edges, e)
	}

	if am.Summary, err = optionalString(doc, "argument_map", "summary"); err != nil {
		return nil, err
	}

	rawTensions, err := optionalArray(doc, "key_tensions")
	if err != nil {
		return nil, err
	}
	if rawTensions != nil {
		am.KeyTensions = make([]string, 0, len(rawTensions))
		for i, raw := range rawTensions {
			s, ok := raw.(string)
			if !ok {
				return nil, &SchemaValidationError{
					Kind:   "argument_map",
					Field:  fmt.Sprintf("key_tensions[%d]", i),
					Reason: "must be a string",
				}
			}
			am.KeyTensions = append(am.KeyTensions, s)
		}
	}

	return am, nil
}

// optionalArray returns nil for an absent or null field and a non-nil slice
// for an array, including an empty one.
func optionalArray(m map[string]any, field string) ([]any, error) {
	v, ok := m[field]
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, &SchemaValidationError{Kind: "argument_map", Field: field, Reason: "must be an array"}
	}
	return arr, nil
}
