// Package projection reduces outline subtrees to depth- and field-bounded
// records sized for a token-limited consumer.
//
// A projection is a pure function of node, spec, and depth: the source
// tree is never mutated and projecting twice yields the same record.
// Requested metadata is hydrated field by field; a field that fails to
// hydrate is logged and dropped so the rest of the record still comes
// back.
package projection

import (
	"github.com/calebwren/treeline/internal/telemetry"
	"github.com/calebwren/treeline/internal/workflowy"
)

// TruncationMarker terminates preview-truncated strings.
const TruncationMarker = "..."

// DefaultFields returns the field set used when a spec names none.
func DefaultFields() []string {
	return []string{"id", "name", "note", "isCompleted"}
}

// Spec bounds one projection call. MaxDepth 0 keeps only the node itself;
// PreviewLength 0 disables truncation.
type Spec struct {
	MaxDepth      int
	Fields        []string
	PreviewLength int
}

func (s Spec) fields() []string {
	if len(s.Fields) == 0 {
		return DefaultFields()
	}
	return s.Fields
}

// ProjectedNode is one bounded output record: exactly the requested
// fields that resolved, plus an items list of projected children.
type ProjectedNode map[string]any

// Engine projects outline nodes. The logger receives hydration failures
// and oversized-search warnings; nil drops them.
type Engine struct {
	log *telemetry.Logger
}

// New creates an Engine reporting degradations to log.
func New(log *telemetry.Logger) *Engine {
	return &Engine{log: log}
}

// Project maps node to its bounded record. Base fields are copied with
// preview truncation applied, metadata fields go through per-field
// hydration, and children recurse while depth is below spec.MaxDepth.
// Past the depth limit items is an empty list, never nil, so consumers
// can tell "no children included" from "no children".
func (e *Engine) Project(n workflowy.NodeRef, spec Spec, depth int) ProjectedNode {
	out := ProjectedNode{}
	fields := spec.fields()
	for _, f := range fields {
		switch f {
		case "id":
			out["id"] = n.ID()
		case "name":
			out["name"] = preview(n.Name(), spec.PreviewLength)
		case "note":
			out["note"] = preview(n.Note(), spec.PreviewLength)
		case "isCompleted":
			out["isCompleted"] = n.IsCompleted()
		}
	}
	e.hydrate(out, n, fields)

	items := []ProjectedNode{}
	if depth < spec.MaxDepth {
		for _, child := range n.Children() {
			items = append(items, e.Project(child, spec, depth+1))
		}
	}
	out["items"] = items
	return out
}

// preview truncates s to max runes and appends the truncation marker.
// max 0 disables truncation.
func preview(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + TruncationMarker
}
