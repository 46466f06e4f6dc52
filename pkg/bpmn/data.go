package bpmn

import (
	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// Inputs resolves the node's incoming data associations
// (dataInputAssociation/sourceRef) to data object specs in document order.
func (p *NodeParser) Inputs(reg Registry) ([]*DataObjectSpec, error) {
	return p.associations(reg, "dataInputAssociation", "sourceRef")
}

// Outputs resolves the node's outgoing data associations
// (dataOutputAssociation/targetRef) to data object specs in document order.
func (p *NodeParser) Outputs(reg Registry) ([]*DataObjectSpec, error) {
	return p.associations(reg, "dataOutputAssociation", "targetRef")
}

// associations is all-or-nothing: the first dangling reference aborts the
// whole resolution.
func (p *NodeParser) associations(reg Registry, assoc, end string) ([]*DataObjectSpec, error) {
	refs, err := p.scope.All(".//bpmn:" + assoc + "/bpmn:" + end)
	if err != nil {
		return nil, err
	}

	var specs []*DataObjectSpec
	for _, r := range refs {
		name := xmldoc.Text(r)

		ref := p.doc.DataObjectReference(name)
		if ref == nil {
			return nil, invalid(p.doc, p.node, errors.ErrCodeUnresolvedReference,
				"cannot resolve %s %s %q: no dataObjectReference with that id", assoc, end, name)
		}
		objID, _ := xmldoc.Attr(ref, "dataObjectRef")
		var spec *DataObjectSpec
		var ok bool
		if reg != nil {
			spec, ok = reg.DataObject(objID)
		}
		if !ok {
			return nil, invalid(p.doc, p.node, errors.ErrCodeUnresolvedReference,
				"cannot resolve %s %s %q: dataObject %q is not declared", assoc, end, name, objID)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
