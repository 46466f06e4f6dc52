package bpmn

import (
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// ResolveLane returns the name of the lane whose flowNodeRef list contains
// nodeID, or nil when no lane lists it. When several lanes list the node the
// first in document order wins; see [xmldoc.Document.LaneConflicts].
func ResolveLane(doc *xmldoc.Document, nodeID string) *string {
	ref := doc.LaneRef(nodeID)
	if ref == nil || ref.Parent == nil {
		return nil
	}
	return ptr(xmldoc.AttrOr(ref.Parent, "name", ""))
}

// withFallback applies an ambient lane only when local resolution found none.
func withFallback(local, fallback *string) (lane *string, inherited bool) {
	if local != nil {
		return local, false
	}
	if fallback != nil {
		return ptr(*fallback), true
	}
	return nil, false
}
