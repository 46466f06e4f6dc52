package bpmn

import (
	"github.com/antchfx/xmlquery"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// Registry looks up declared data objects by id. Implementations must be
// fully populated before any data association is resolved; lookups are
// unsynchronized reads.
type Registry interface {
	DataObject(id string) (*DataObjectSpec, bool)
}

// DataObjects is a map-backed [Registry].
type DataObjects map[string]*DataObjectSpec

// DataObject implements [Registry].
func (d DataObjects) DataObject(id string) (*DataObjectSpec, bool) {
	spec, ok := d[id]
	return spec, ok
}

// BuildRegistry collects every bpmn:dataObject declared under process,
// including those of nested sub processes. Duplicate ids make the document
// invalid.
func BuildRegistry(doc *xmldoc.Document, process *xmlquery.Node) (DataObjects, error) {
	nodes, err := doc.Scope(process).All(".//bpmn:dataObject")
	if err != nil {
		return nil, err
	}

	procID := xmldoc.ID(process)
	reg := make(DataObjects, len(nodes))
	for _, n := range nodes {
		id := xmldoc.ID(n)
		if id == "" {
			return nil, invalid(doc, n, errors.ErrCodeInvalidDocument, "dataObject without id")
		}
		if _, dup := reg[id]; dup {
			return nil, invalid(doc, n, errors.ErrCodeInvalidDocument, "duplicate dataObject id %q", id)
		}
		reg[id] = &DataObjectSpec{
			ID:             id,
			Name:           xmldoc.AttrOr(n, "name", ""),
			ItemSubjectRef: xmldoc.AttrOr(n, "itemSubjectRef", ""),
			IsCollection:   xmldoc.AttrOr(n, "isCollection", "false") == "true",
			Process:        procID,
		}
	}
	return reg, nil
}
