package argmap

import (
	"fmt"
	"unicode/utf8"
)

// Issue kinds reported by Check.
const (
	IssueDanglingEdge    = "dangling_edge"
	IssueDuplicateNode   = "duplicate_node"
	IssueSpanOutOfBounds = "span_out_of_bounds"
)

// Issue is a structural problem in an otherwise well-shaped map.
type Issue struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	return i.Kind + ": " + i.Message
}

// Check looks for structural problems the schema does not rule out: edges
// whose endpoints are not nodes of the map, repeated node ids and spans that
// fall outside the source text. Offsets count characters, not bytes.
func (m *ArgumentMap) Check() []Issue {
	var issues []Issue

	ids := make(map[string]struct{}, len(m.Nodes))
	textLen := utf8.RuneCountInString(m.SourceText)
	for _, n := range m.Nodes {
		if _, dup := ids[n.ID]; dup {
			issues = append(issues, Issue{
				Kind:    IssueDuplicateNode,
				Message: fmt.Sprintf("node id %q is used more than once", n.ID),
			})
		}
		ids[n.ID] = struct{}{}

		if n.Span != nil && (n.Span.Start < 0 || n.Span.Start > n.Span.End || n.Span.End > textLen) {
			issues = append(issues, Issue{
				Kind: IssueSpanOutOfBounds,
				Message: fmt.Sprintf("node %q span [%d, %d) is outside the source text of length %d",
					n.ID, n.Span.Start, n.Span.End, textLen),
			})
		}
	}

	for i, e := range m.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if _, ok := ids[end]; !ok {
				issues = append(issues, Issue{
					Kind:    IssueDanglingEdge,
					Message: fmt.Sprintf("edge %d (%s -> %s) references unknown node %q", i, e.Source, e.Target, end),
				})
			}
		}
	}

	return issues
}
