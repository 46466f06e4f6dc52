package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/procmeta/pkg/bpmn"
)

// Options configures diagram generation.
type Options struct {
	// Lanes draws each lane as a cluster inside its process.
	Lanes bool
	// Groups appends the enclosing group label to node labels.
	Groups bool
	// Data draws data objects as notes linked to the nodes that read or
	// write them.
	Data bool
}

// ToDOT converts resolved metadata to Graphviz DOT source. Every process is
// a cluster; sequence flows become edges labelled with their condition (or
// name). Output order follows document order, so equal input yields equal
// DOT.
func ToDOT(meta *bpmn.DocumentMetadata, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12, margin=\"0.15,0.08\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("\n")

	for pi, p := range meta.Processes {
		writeProcess(&buf, pi, p, opts)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func writeProcess(buf *bytes.Buffer, pi int, p *bpmn.ProcessMetadata, opts Options) {
	title := p.Name
	if title == "" {
		title = p.ID
	}
	fmt.Fprintf(buf, "  subgraph \"cluster_p%d\" {\n", pi)
	fmt.Fprintf(buf, "    label=%q;\n", title)
	buf.WriteString("    style=\"rounded\";\n")

	var flows []*bpmn.NodeMetadata
	lanes, order := map[string][]*bpmn.NodeMetadata{}, []string{}
	for _, n := range p.Nodes {
		switch {
		case n.IsConnector():
			flows = append(flows, n)
		case opts.Lanes && n.Lane != nil:
			if _, ok := lanes[*n.Lane]; !ok {
				order = append(order, *n.Lane)
			}
			lanes[*n.Lane] = append(lanes[*n.Lane], n)
		default:
			writeNode(buf, "    ", n, opts)
		}
	}
	for li, lane := range order {
		fmt.Fprintf(buf, "    subgraph \"cluster_p%d_l%d\" {\n", pi, li)
		fmt.Fprintf(buf, "      label=%q;\n", lane)
		buf.WriteString("      style=\"dashed\";\n")
		for _, n := range lanes[lane] {
			writeNode(buf, "      ", n, opts)
		}
		buf.WriteString("    }\n")
	}
	if opts.Data {
		for _, d := range p.DataObjects {
			label := d.Name
			if label == "" {
				label = d.ID
			}
			fmt.Fprintf(buf, "    %q [label=%q, shape=note, style=filled, fillcolor=lightyellow];\n", dataID(d), label)
		}
	}
	buf.WriteString("  }\n\n")

	for _, f := range flows {
		if f.SourceRef == "" || f.TargetRef == "" {
			continue
		}
		attrs := []string{}
		if f.Condition != nil {
			attrs = append(attrs, fmt.Sprintf("label=%q", *f.Condition))
		} else if f.Name != "" {
			attrs = append(attrs, fmt.Sprintf("label=%q", f.Name))
		}
		fmt.Fprintf(buf, "  %q -> %q%s;\n", f.SourceRef, f.TargetRef, fmtAttrList(attrs))
	}
	if opts.Data {
		for _, n := range p.Nodes {
			for _, in := range n.Inputs {
				fmt.Fprintf(buf, "  %q -> %q [style=dashed, arrowhead=open];\n", dataID(in), n.ID)
			}
			for _, out := range n.Outputs {
				fmt.Fprintf(buf, "  %q -> %q [style=dashed, arrowhead=open];\n", n.ID, dataID(out))
			}
		}
	}
	if len(flows) > 0 {
		buf.WriteString("\n")
	}
}

func writeNode(buf *bytes.Buffer, indent string, n *bpmn.NodeMetadata, opts Options) {
	attrs := append([]string{fmt.Sprintf("label=%q", fmtLabel(n, opts.Groups))}, shapeAttrs(n.Type)...)
	fmt.Fprintf(buf, "%s%q [%s];\n", indent, n.ID, strings.Join(attrs, ", "))
}

func fmtLabel(n *bpmn.NodeMetadata, groups bool) string {
	label := n.Name
	if label == "" {
		label = n.ID
	}
	if groups && n.Group != nil {
		label += "\n[" + *n.Group + "]"
	}
	return label
}

func shapeAttrs(typ string) []string {
	switch {
	case strings.HasSuffix(typ, "Event"):
		attrs := []string{"shape=circle", "fixedsize=false"}
		if typ == "endEvent" {
			attrs = append(attrs, "penwidth=3")
		}
		return attrs
	case strings.HasSuffix(typ, "Gateway"):
		return []string{"shape=diamond", "style=filled"}
	case typ == "subProcess" || typ == "transaction" || typ == "adHocSubProcess":
		return []string{"style=\"rounded,filled,dashed\"", "fillcolor=lightgrey"}
	case typ == "callActivity":
		return []string{"penwidth=3"}
	}
	return nil
}

func dataID(d *bpmn.DataObjectSpec) string { return "data:" + d.ID }

func fmtAttrList(attrs []string) string {
	if len(attrs) == 0 {
		return ""
	}
	return " [" + strings.Join(attrs, ", ") + "]"
}

// RenderSVG renders DOT source to SVG using the embedded Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox rewrites the root element so the drawing scales to its
// container instead of using Graphviz's point-based width and height.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	root := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(root))
}
