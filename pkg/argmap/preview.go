package argmap

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// Preview summarizes an incomplete model output for progress display.
type Preview struct {
	Nodes int
	Edges int
}

// PreviewPartial counts the nodes and edges in the JSON prefix accumulated
// so far. The prefix is closed with jsonrepair, so the last element may be
// incomplete. ok is false when nothing usable could be recovered.
//
// The result is only meant for display; extraction results are always
// parsed from the complete output without any repair.
func PreviewPartial(accumulated string) (Preview, bool) {
	accumulated = strings.TrimSpace(accumulated)
	if accumulated == "" {
		return Preview{}, false
	}

	repaired, err := jsonrepair.JSONRepair(accumulated)
	if err != nil {
		return Preview{}, false
	}

	var doc struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	if err := json.Unmarshal([]byte(repaired), &doc); err != nil {
		return Preview{}, false
	}
	return Preview{Nodes: len(doc.Nodes), Edges: len(doc.Edges)}, true
}
