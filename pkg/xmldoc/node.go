package xmldoc

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/antchfx/xmlquery"
)

// IsElement reports whether n is an element with the given namespace URI and
// local name.
func IsElement(n *xmlquery.Node, uri, local string) bool {
	return n != nil && n.Type == xmlquery.ElementNode && n.Data == local && n.NamespaceURI == uri
}

// Attr returns the value of the unprefixed attribute name on n.
func Attr(n *xmlquery.Node, name string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Name.Local == name && a.Name.Space == "" {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or def when the attribute is missing.
func AttrOr(n *xmlquery.Node, name, def string) string {
	if v, ok := Attr(n, name); ok {
		return v
	}
	return def
}

// ID returns the id attribute of n.
func ID(n *xmlquery.Node) string {
	return AttrOr(n, "id", "")
}

// Text returns the concatenated character data of n and its descendants.
func Text(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return n.InnerText()
}

// Children returns the element children of n in document order.
func Children(n *xmlquery.Node) []*xmlquery.Node {
	if n == nil {
		return nil
	}
	var out []*xmlquery.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
