package extract

import (
	"github.com/amai-lab/linkgraph/internal/changelog"
	"github.com/amai-lab/linkgraph/internal/graph"
)

// Preview is the result of extracting a single element in isolation: the
// node/relationship delta it would contribute, plus a step trace for the
// review UI.
type Preview struct {
	Nodes         []*graph.Node        `json:"nodes"`
	Relationships []graph.Relationship `json:"relationships"`
	Primary       string               `json:"primary"`
	ResourceName  string               `json:"resource_name"`
	SkipReasons   map[string]int       `json:"skipped_reasons,omitempty"`
	Trace         []string             `json:"trace,omitempty"`
}

// PreviewElement dry-runs extraction on one element with a fresh
// accumulator, so the returned delta is exactly what this element produces.
func PreviewElement(el *changelog.Element) *Preview {
	var trace []string
	ex := NewExtractor().WithTrace(func(step string) {
		trace = append(trace, step)
	})
	res := ex.Process(el)

	return &Preview{
		Nodes:         ex.Nodes(),
		Relationships: ex.Relationships(),
		Primary:       res.Kind.String(),
		ResourceName:  el.ResourceName,
		SkipReasons:   ex.Skips(),
		Trace:         trace,
	}
}
