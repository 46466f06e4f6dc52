// Package render turns resolved metadata into visual artifacts.
//
// The [nodelink] subpackage produces Graphviz DOT and SVG summaries of each
// process, with lanes as clusters and conditions on the flow edges.
//
// [nodelink]: github.com/matzehuels/procmeta/pkg/render/nodelink
package render
