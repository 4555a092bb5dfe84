package graph

// Node labels
const (
	LabelPerson   = "Person"
	LabelPost     = "Post"
	LabelComment  = "Comment"
	LabelResource = "Resource"
	LabelEntity   = "Entity"
	LabelChunk    = "Chunk"
)

// Phase A relationship types produced by changelog extraction
const (
	RelIsAuthorOf = "IS_AUTHOR_OF"
	RelReactedTo  = "REACTED_TO"
	RelCommentsOn = "COMMENTS_ON"
	RelReposts    = "REPOSTS"
)

// Phase B relationship types produced by enrichment
const (
	RelReferences = "REFERENCES"
	RelRelatedTo  = "RELATED_TO"
	RelMentions   = "MENTIONS"
	RelDiscusses  = "DISCUSSES"
	RelHasChunk   = "HAS_CHUNK"
)

// phaseARelTypes is the closed set extraction is allowed to emit
var phaseARelTypes = map[string]bool{
	RelIsAuthorOf: true,
	RelReactedTo:  true,
	RelCommentsOn: true,
	RelReposts:    true,
}

// legacyRelRenames maps pre-migration relationship names to their
// canonical replacements. Cached graphs and old extraction JSON still
// carry the legacy names, so both directions stay supported.
var legacyRelRenames = map[string]string{
	"CREATES":   RelIsAuthorOf,
	"REACTS_TO": RelReactedTo,
	"ON_POST":   RelCommentsOn,
}

// IsPhaseARelType reports whether a relationship type belongs to the
// closed extraction set
func IsPhaseARelType(relType string) bool {
	return phaseARelTypes[CanonicalRelType(relType)]
}

// CanonicalRelType resolves a legacy relationship name to its canonical
// form; canonical and unknown names pass through unchanged
func CanonicalRelType(relType string) string {
	if canonical, ok := legacyRelRenames[relType]; ok {
		return canonical
	}
	return relType
}

// LegacyRelRenames returns the rename table (legacy → canonical) used by
// the schema migration
func LegacyRelRenames() map[string]string {
	out := make(map[string]string, len(legacyRelRenames))
	for old, canonical := range legacyRelRenames {
		out[old] = canonical
	}
	return out
}

// PhaseARelTypes lists the canonical extraction relationship types
func PhaseARelTypes() []string {
	return []string{RelIsAuthorOf, RelReactedTo, RelCommentsOn, RelReposts}
}
