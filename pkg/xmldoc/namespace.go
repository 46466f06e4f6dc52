package xmldoc

import (
	"maps"
	"slices"
	"strings"
)

// Namespace URIs used by BPMN 2.0 documents.
const (
	NSModel   = "http://www.omg.org/spec/BPMN/20100524/MODEL"
	NSDI      = "http://www.omg.org/spec/BPMN/20100524/DI"
	NSDC      = "http://www.omg.org/spec/DD/20100524/DC"
	NSDDI     = "http://www.omg.org/spec/DD/20100524/DI"
	NSCamunda = "http://camunda.org/schema/1.0/bpmn"
)

// Prefixes bound in every query scope.
const (
	PrefixModel  = "bpmn"
	PrefixDI     = "bpmndi"
	PrefixDC     = "dc"
	PrefixDDI    = "di"
	PrefixVendor = "camunda"
)

// Namespaces maps query prefixes to namespace URIs.
type Namespaces map[string]string

// DefaultNamespaces returns the core BPMN prefixes.
func DefaultNamespaces() Namespaces {
	return Namespaces{
		PrefixModel: NSModel,
		PrefixDI:    NSDI,
		PrefixDC:    NSDC,
		PrefixDDI:   NSDDI,
	}
}

// With returns a copy of ns with prefix bound to uri.
func (ns Namespaces) With(prefix, uri string) Namespaces {
	out := maps.Clone(ns)
	if out == nil {
		out = Namespaces{}
	}
	out[prefix] = uri
	return out
}

// key returns a stable fingerprint used to cache compiled expressions.
func (ns Namespaces) key() string {
	var b strings.Builder
	for _, p := range slices.Sorted(maps.Keys(ns)) {
		b.WriteString(p)
		b.WriteByte('=')
		b.WriteString(ns[p])
		b.WriteByte(';')
	}
	return b.String()
}
