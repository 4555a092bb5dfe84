package review

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/amai-lab/linkgraph/internal/changelog"
)

// ElementID computes a stable id for a changelog element so review state
// survives re-syncs without duplicates.
//
// The id hashes processedAt, resourceName, methodName, the best-available
// activity URN ($URN, urn, id, object), and resourceUri/resourceId, and
// keeps the first 16 hex chars of the SHA-256.
func ElementID(el *changelog.Element) string {
	processedAt := ""
	if el.ProcessedAt != 0 {
		processedAt = strconv.FormatInt(el.ProcessedAt, 10)
	}

	parts := []string{
		processedAt,
		el.ResourceName,
		el.MethodName,
		el.ActivityURN(),
		el.ResourceURI,
		el.ResourceID,
	}
	canonical := strings.Join(parts, "|")
	digest := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(digest[:])[:16]
}
