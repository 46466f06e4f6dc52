package xmldoc

import (
	"github.com/antchfx/xmlquery"
)

// Scope evaluates relative XPath expressions against one subtree of a
// [Document] with a fixed namespace binding. The zero value is not usable.
type Scope struct {
	doc  *Document
	node *xmlquery.Node
	ns   Namespaces
}

// Node returns the scope's context node.
func (s Scope) Node() *xmlquery.Node { return s.node }

// Document returns the document the scope belongs to.
func (s Scope) Document() *Document { return s.doc }

// Vendor returns a copy of s that also binds the vendor extension prefix.
func (s Scope) Vendor() Scope {
	s.ns = s.ns.With(PrefixVendor, s.doc.vendorURI)
	return s
}

// All returns every node matched by expr in document order.
func (s Scope) All(expr string) ([]*xmlquery.Node, error) {
	e, err := s.doc.compile(s.ns, expr)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelectorAll(s.node, e), nil
}

// First returns the first node matched by expr, or nil when nothing matches.
func (s Scope) First(expr string) (*xmlquery.Node, error) {
	e, err := s.doc.compile(s.ns, expr)
	if err != nil {
		return nil, err
	}
	return xmlquery.QuerySelector(s.node, e), nil
}
