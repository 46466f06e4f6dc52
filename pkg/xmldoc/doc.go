// Package xmldoc wraps a parsed BPMN document and provides namespace-aware
// XPath query contexts over it.
//
// # Overview
//
// A [Document] is parsed once and then treated as frozen: every lookup is a
// read-only query, so a single Document may be shared by any number of
// goroutines. Queries are evaluated through a [Scope], which binds a fixed set
// of namespace prefixes to either the whole document ([Document.Root]) or a
// subtree ([Document.Scope]):
//
//	doc, _ := xmldoc.ParseFile("order.bpmn")
//	task, _ := doc.Root().First(".//bpmn:task[@id='review']")
//	docs, _ := doc.Scope(task).First(".//bpmn:documentation")
//
// The prefixes bpmn, bpmndi, dc and di are always bound. The vendor prefix
// (camunda by default) is only bound on scopes obtained through
// [Scope.Vendor].
//
// # Indexes
//
// Cross-references that would otherwise require a whole-document search
// (diagram shape by element id, lane membership, data object references,
// category values) are indexed while parsing. Index lookups return the same
// element a document-order search would return first.
package xmldoc
