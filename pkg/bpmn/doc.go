// Package bpmn resolves per-node structural and visual metadata from a parsed
// BPMN 2.0 document.
//
// # Overview
//
// For every flow node of a process the package answers:
//
//   - which lane lists the node ([ResolveLane])
//   - where the node sits on the canvas ([ResolveBounds], [ResolvePosition])
//   - which visual group strictly encloses it ([ResolveGroup])
//   - its documentation, branch condition and vendor extension properties
//   - which declared data objects it reads and writes
//
// A [NodeParser] computes lane, position and group once at construction and
// exposes the remaining extraction on demand. [NodeParser.Metadata] collects
// everything into a [NodeMetadata] record for the graph-building stage.
//
//	doc, _ := xmldoc.ParseFile("order.bpmn")
//	for _, proc := range bpmn.Processes(doc) {
//	    reg, _ := bpmn.BuildRegistry(doc, proc)
//	    for _, fn := range bpmn.FlowNodes(proc) {
//	        p, err := bpmn.NewNodeParser(doc, fn.Node, bpmn.ParserOptions{})
//	        if err != nil {
//	            return err
//	        }
//	        meta, err := p.Metadata(reg)
//	        ...
//	    }
//	}
//
// # Errors
//
// Absence is never an error: a node without lane, shape, group, documentation
// or condition simply yields nil (or the origin for positions). A document
// that is internally inconsistent (a dangling data association, a group whose
// category value or shape is missing, non-numeric bounds) fails with a
// [*ValidationError] naming the node and the source file.
//
// # Concurrency
//
// All functions are read-only over a frozen [xmldoc.Document] and a fully
// populated [Registry]; parsers for different nodes may run concurrently.
package bpmn
