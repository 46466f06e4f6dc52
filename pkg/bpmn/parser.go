package bpmn

import (
	"github.com/antchfx/xmlquery"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// ParserOptions configures a [NodeParser].
type ParserOptions struct {
	// FallbackLane is the ambient lane of the enclosing context (for example
	// the lane of a containing sub process). It applies only when the node is
	// not listed by any lane itself.
	FallbackLane *string
}

// NodeParser extracts the metadata of a single node. Lane, bounds and group
// are resolved once by [NewNodeParser]; everything else is computed on
// demand. A NodeParser is immutable and safe for concurrent use.
type NodeParser struct {
	doc   *xmldoc.Document
	node  *xmlquery.Node
	scope xmldoc.Scope

	lane          *string
	laneInherited bool
	bounds        Rect
	group         *string
}

// NewNodeParser resolves lane, position and group for node.
func NewNodeParser(doc *xmldoc.Document, node *xmlquery.Node, opts ParserOptions) (*NodeParser, error) {
	if node == nil || node.Type != xmlquery.ElementNode {
		return nil, errors.New(errors.ErrCodeInvalidInput, "node must be an element")
	}

	p := &NodeParser{doc: doc, node: node, scope: doc.Scope(node)}

	p.lane, p.laneInherited = withFallback(ResolveLane(doc, p.ID()), opts.FallbackLane)

	r, _, err := ResolveBounds(doc, node, p.ID())
	if err != nil {
		return nil, err
	}
	p.bounds = r

	if p.group, err = ResolveGroup(doc, node, r); err != nil {
		return nil, err
	}
	return p, nil
}

// ID returns the node's id attribute.
func (p *NodeParser) ID() string { return xmldoc.ID(p.node) }

// Node returns the underlying element.
func (p *NodeParser) Node() *xmlquery.Node { return p.node }

// Lane returns the node's lane, or nil when neither the node nor its
// enclosing context is assigned to one.
func (p *NodeParser) Lane() *string { return p.lane }

// LaneInherited reports whether [NodeParser.Lane] came from the fallback.
func (p *NodeParser) LaneInherited() bool { return p.laneInherited }

// Position returns the node's canvas position; (0,0) without a shape.
func (p *NodeParser) Position() Point { return p.bounds.Origin() }

// Bounds returns the node's rectangle; the zero Rect without a shape.
func (p *NodeParser) Bounds() Rect { return p.bounds }

// Group returns the enclosing group label, or nil.
func (p *NodeParser) Group() *string { return p.group }

// Documentation returns the text of the first bpmn:documentation under
// scope, or under the node itself when scope is nil. An empty element counts
// as no documentation.
func (p *NodeParser) Documentation(scope *xmlquery.Node) (*string, error) {
	s := p.scope
	if scope != nil {
		s = p.doc.Scope(scope)
	}
	return firstText(s, ".//bpmn:documentation")
}

// Condition returns the text of flow's bpmn:conditionExpression, or nil when
// it is missing or empty.
func (p *NodeParser) Condition(flow *xmlquery.Node) (*string, error) {
	if flow == nil {
		return nil, nil
	}
	return firstText(p.doc.Scope(flow), ".//bpmn:conditionExpression")
}

// Extensions collects vendor properties under scope's extension block (the
// node itself when scope is nil). Later properties with the same name
// overwrite earlier ones.
func (p *NodeParser) Extensions(scope *xmlquery.Node) (map[string]string, error) {
	s := p.scope
	if scope != nil {
		s = p.doc.Scope(scope)
	}
	props, err := s.Vendor().All(".//bpmn:extensionElements/camunda:properties/camunda:property")
	if err != nil {
		return nil, err
	}
	ext := make(map[string]string, len(props))
	for _, prop := range props {
		ext[xmldoc.AttrOr(prop, "name", "")] = xmldoc.AttrOr(prop, "value", "")
	}
	return ext, nil
}

// Metadata resolves every piece of node metadata into a single record.
// Data associations are resolved against reg and fail the whole record when
// any reference dangles. Extensions is nil when the node has none.
func (p *NodeParser) Metadata(reg Registry) (*NodeMetadata, error) {
	m := &NodeMetadata{
		ID:            p.ID(),
		Type:          p.node.Data,
		Name:          xmldoc.AttrOr(p.node, "name", ""),
		Lane:          p.lane,
		LaneInherited: p.laneInherited,
		Position:      p.Position(),
		Bounds:        p.bounds,
		Group:         p.group,
	}

	var err error
	if m.Documentation, err = p.Documentation(nil); err != nil {
		return nil, err
	}
	ext, err := p.Extensions(nil)
	if err != nil {
		return nil, err
	}
	if len(ext) > 0 {
		m.Extensions = ext
	}
	if xmldoc.IsElement(p.node, xmldoc.NSModel, "sequenceFlow") {
		if m.Condition, err = p.Condition(p.node); err != nil {
			return nil, err
		}
		m.SourceRef = xmldoc.AttrOr(p.node, "sourceRef", "")
		m.TargetRef = xmldoc.AttrOr(p.node, "targetRef", "")
	}
	if m.Inputs, err = p.Inputs(reg); err != nil {
		return nil, err
	}
	if m.Outputs, err = p.Outputs(reg); err != nil {
		return nil, err
	}
	return m, nil
}

func firstText(s xmldoc.Scope, expr string) (*string, error) {
	n, err := s.First(expr)
	if err != nil || n == nil {
		return nil, err
	}
	text := xmldoc.Text(n)
	if text == "" {
		return nil, nil
	}
	return ptr(text), nil
}
