// Package pkg provides the libraries behind procmeta, a metadata resolver for
// BPMN 2.0 process models.
//
// # Overview
//
// procmeta reads a BPMN document and answers, for every flow node, where it
// sits in the diagram and what it carries: lane, canvas position, enclosing
// group, documentation, flow condition, vendor extension properties and the
// data objects it reads and writes. The pkg directory is organized as:
//
//  1. [xmldoc] - Namespace-aware XML loading and XPath queries
//  2. [bpmn] - Node metadata resolution and integrity errors
//  3. [pipeline] - Orchestration (load → resolve → render) with caching
//  4. [render] - DOT and SVG summaries of resolved processes
//  5. [cache], [store], [config], [observability] - Infrastructure
//  6. [server] - HTTP API over the pipeline and store
//
// # Architecture
//
// The typical data flow:
//
//	BPMN file / request body
//	         ↓
//	    [xmldoc] package (parse, index ids, bind prefixes)
//	         ↓
//	    [bpmn] package (registry + per-node metadata)
//	         ↓
//	    [pipeline] package (concurrent resolution, cache)
//	         ↓
//	    JSON / DOT / SVG output
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/procmeta/pkg/pipeline"
//	)
//
//	r := pipeline.NewRunner(nil, nil, nil)
//	meta, err := r.Resolve(context.Background(), pipeline.Options{
//	    Path: "order.bpmn",
//	})
//	if err != nil {
//	    // integrity failures are *bpmn.ValidationError
//	}
//	for _, p := range meta.Processes {
//	    for _, n := range p.Nodes {
//	        fmt.Println(n.ID, n.LaneName())
//	    }
//	}
//
// # Errors
//
// Integrity failures (dangling data references, malformed bounds, broken
// documents) are returned as [bpmn.ValidationError] carrying the node id, tag
// and filename. Everything else uses the codes in [errors].
//
// [xmldoc]: github.com/matzehuels/procmeta/pkg/xmldoc
// [bpmn]: github.com/matzehuels/procmeta/pkg/bpmn
// [pipeline]: github.com/matzehuels/procmeta/pkg/pipeline
// [render]: github.com/matzehuels/procmeta/pkg/render
// [cache]: github.com/matzehuels/procmeta/pkg/cache
// [store]: github.com/matzehuels/procmeta/pkg/store
// [config]: github.com/matzehuels/procmeta/pkg/config
// [observability]: github.com/matzehuels/procmeta/pkg/observability
// [server]: github.com/matzehuels/procmeta/pkg/server
// [errors]: github.com/matzehuels/procmeta/pkg/errors
package pkg
