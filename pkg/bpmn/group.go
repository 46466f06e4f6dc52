package bpmn

import (
	"github.com/antchfx/xmlquery"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// ResolveGroup returns the label of the first bpmn:group sibling of node
// (in document order) whose rectangle strictly contains rect, or nil when no
// group does. A group whose category value or diagram shape cannot be found
// makes the document invalid.
func ResolveGroup(doc *xmldoc.Document, node *xmlquery.Node, rect Rect) (*string, error) {
	if node == nil || node.Parent == nil {
		return nil, nil
	}

	for _, sib := range xmldoc.Children(node.Parent) {
		if !xmldoc.IsElement(sib, xmldoc.NSModel, "group") {
			continue
		}
		label, outer, err := groupInfo(doc, node, sib)
		if err != nil {
			return nil, err
		}
		if rect.StrictlyInside(outer) {
			return ptr(label), nil
		}
	}
	return nil, nil
}

func groupInfo(doc *xmldoc.Document, node, group *xmlquery.Node) (string, Rect, error) {
	groupID := xmldoc.ID(group)

	cref, _ := xmldoc.Attr(group, "categoryValueRef")
	cv := doc.CategoryValue(cref)
	if cv == nil {
		return "", Rect{}, invalid(doc, node, errors.ErrCodeUnresolvedReference,
			"group %q references missing categoryValue %q", groupID, cref)
	}

	r, ok, err := ResolveBounds(doc, node, groupID)
	if err != nil {
		return "", Rect{}, err
	}
	if !ok {
		return "", Rect{}, invalid(doc, node, errors.ErrCodeUnresolvedReference,
			"group %q has no diagram shape", groupID)
	}
	return xmldoc.AttrOr(cv, "value", ""), r, nil
}
