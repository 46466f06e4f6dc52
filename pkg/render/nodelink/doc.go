// Package nodelink renders resolved process metadata as a node-link diagram.
//
// # Usage
//
//	dot := nodelink.ToDOT(meta, nodelink.Options{Lanes: true, Groups: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// Each process becomes a cluster and, with Options.Lanes, each lane a nested
// dashed cluster. Events are circles, gateways diamonds, sub processes grey
// dashed boxes. Sequence flows become edges labelled with their condition
// expression, falling back to the flow's name.
//
// The diagram is a summary of the resolved metadata, not a faithful BPMN
// rendering: Graphviz chooses the layout and diagram coordinates are ignored.
//
// # Dependencies
//
// SVG rendering uses [github.com/goccy/go-graphviz], which embeds Graphviz
// as WebAssembly, so no system installation is required.
package nodelink
