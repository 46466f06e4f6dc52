package xmldoc

import (
	"github.com/antchfx/xmlquery"
)

// index holds document-order-first lookups built in a single pass.
type index struct {
	bounds         map[string]*xmlquery.Node // bpmnElement -> first dc:Bounds of its shapes
	laneRefs       map[string]*xmlquery.Node // flowNodeRef text -> first flowNodeRef
	laneNames      map[string][]string       // flowNodeRef text -> every lane listing it
	dataRefs       map[string]*xmlquery.Node // id -> bpmn:dataObjectReference
	categoryValues map[string]*xmlquery.Node // id -> bpmn:categoryValue
	elements       map[string]*xmlquery.Node // id -> first element carrying it
}

func buildIndex(root *xmlquery.Node) *index {
	idx := &index{
		bounds:         make(map[string]*xmlquery.Node),
		laneRefs:       make(map[string]*xmlquery.Node),
		laneNames:      make(map[string][]string),
		dataRefs:       make(map[string]*xmlquery.Node),
		categoryValues: make(map[string]*xmlquery.Node),
		elements:       make(map[string]*xmlquery.Node),
	}
	idx.walk(root)
	return idx
}

func (idx *index) walk(n *xmlquery.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		idx.visit(c)
		idx.walk(c)
	}
}

func (idx *index) visit(n *xmlquery.Node) {
	if id, ok := Attr(n, "id"); ok {
		if _, seen := idx.elements[id]; !seen {
			idx.elements[id] = n
		}
	}

	switch {
	case IsElement(n, NSModel, "flowNodeRef"):
		ref := Text(n)
		if _, seen := idx.laneRefs[ref]; !seen {
			idx.laneRefs[ref] = n
		}
		idx.laneNames[ref] = append(idx.laneNames[ref], AttrOr(n.Parent, "name", ""))

	case IsElement(n, NSModel, "dataObjectReference"):
		if id, ok := Attr(n, "id"); ok {
			if _, seen := idx.dataRefs[id]; !seen {
				idx.dataRefs[id] = n
			}
		}

	case IsElement(n, NSModel, "categoryValue"):
		if id, ok := Attr(n, "id"); ok {
			if _, seen := idx.categoryValues[id]; !seen {
				idx.categoryValues[id] = n
			}
		}

	case IsElement(n, NSDI, "BPMNShape"):
		ref, ok := Attr(n, "bpmnElement")
		if !ok {
			return
		}
		if _, seen := idx.bounds[ref]; seen {
			return
		}
		if b := firstDescendant(n, NSDC, "Bounds"); b != nil {
			idx.bounds[ref] = b
		}
	}
}

func firstDescendant(n *xmlquery.Node, uri, local string) *xmlquery.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode {
			continue
		}
		if IsElement(c, uri, local) {
			return c
		}
		if d := firstDescendant(c, uri, local); d != nil {
			return d
		}
	}
	return nil
}

// ShapeBounds returns the first dc:Bounds element of the diagram shapes that
// reference elementID, or nil when the element has no shape.
func (d *Document) ShapeBounds(elementID string) *xmlquery.Node {
	return d.idx.bounds[elementID]
}

// LaneRef returns the first bpmn:flowNodeRef whose text equals nodeID.
func (d *Document) LaneRef(nodeID string) *xmlquery.Node {
	return d.idx.laneRefs[nodeID]
}

// LaneConflicts returns the names of every lane listing nodeID when it is
// listed by more than one lane. A single membership yields nil.
func (d *Document) LaneConflicts(nodeID string) []string {
	names := d.idx.laneNames[nodeID]
	if len(names) < 2 {
		return nil
	}
	return append([]string(nil), names...)
}

// DataObjectReference returns the bpmn:dataObjectReference with the given id.
func (d *Document) DataObjectReference(id string) *xmlquery.Node {
	return d.idx.dataRefs[id]
}

// CategoryValue returns the bpmn:categoryValue with the given id.
func (d *Document) CategoryValue(id string) *xmlquery.Node {
	return d.idx.categoryValues[id]
}

// Element returns the first element whose id attribute equals id.
func (d *Document) Element(id string) *xmlquery.Node {
	return d.idx.elements[id]
}
