package bpmn

import (
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/matzehuels/procmeta/pkg/errors"
	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// ResolveBounds returns the rectangle of the diagram shape referencing
// elementID. ok is false when the element has no shape, in which case the
// zero Rect is returned. Values are XSD doubles, so surrounding whitespace is
// ignored. Missing attributes default to 0; non-numeric values fail with MALFORMED_BOUNDS attributed to owner.
func ResolveBounds(doc *xmldoc.Document, owner *xmlquery.Node, elementID string) (r Rect, ok bool, err error) {
	b := doc.ShapeBounds(elementID)
	if b == nil {
		return Rect{}, false, nil
	}
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{"x", &r.X},
		{"y", &r.Y},
		{"width", &r.Width},
		{"height", &r.Height},
	} {
		raw, present := xmldoc.Attr(b, f.name)
		if !present {
			continue
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if perr != nil {
			return Rect{}, false, invalid(doc, owner, errors.ErrCodeMalformedBounds,
				"bounds of %q: %s=%q is not a number", elementID, f.name, raw)
		}
		*f.dst = v
	}
	return r, true, nil
}

// ResolvePosition returns the canvas position of node, defaulting to the
// origin when it has no diagram shape.
func ResolvePosition(doc *xmldoc.Document, node *xmlquery.Node) (Point, error) {
	r, _, err := ResolveBounds(doc, node, xmldoc.ID(node))
	if err != nil {
		return Point{}, err
	}
	return r.Origin(), nil
}
