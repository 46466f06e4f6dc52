package bpmn

import (
	"github.com/antchfx/xmlquery"

	"github.com/matzehuels/procmeta/pkg/xmldoc"
)

// flowElements lists the bpmn element names whose metadata is resolved.
var flowElements = map[string]bool{
	"task":                   true,
	"userTask":               true,
	"manualTask":             true,
	"serviceTask":            true,
	"scriptTask":             true,
	"businessRuleTask":       true,
	"sendTask":               true,
	"receiveTask":            true,
	"callActivity":           true,
	"subProcess":             true,
	"transaction":            true,
	"adHocSubProcess":        true,
	"startEvent":             true,
	"endEvent":               true,
	"intermediateCatchEvent": true,
	"intermediateThrowEvent": true,
	"boundaryEvent":          true,
	"exclusiveGateway":       true,
	"parallelGateway":        true,
	"inclusiveGateway":       true,
	"eventBasedGateway":      true,
	"complexGateway":         true,
	"sequenceFlow":           true,
}

// containers are flow elements whose children are flow elements too.
var containers = map[string]bool{
	"subProcess":      true,
	"transaction":     true,
	"adHocSubProcess": true,
}

// FlowNode is a flow element together with its enclosing sub process.
type FlowNode struct {
	Node   *xmlquery.Node
	Parent *xmlquery.Node // nil for top-level process elements
}

// ID returns the flow node's id.
func (f FlowNode) ID() string { return xmldoc.ID(f.Node) }

// Processes returns the bpmn:process elements of doc in document order.
func Processes(doc *xmldoc.Document) []*xmlquery.Node {
	var out []*xmlquery.Node
	for _, top := range xmldoc.Children(doc.Node()) {
		for _, c := range xmldoc.Children(top) {
			if xmldoc.IsElement(c, xmldoc.NSModel, "process") {
				out = append(out, c)
			}
		}
	}
	return out
}

// FlowNodes returns the flow elements of process in document order. A sub
// process always precedes the elements it contains.
func FlowNodes(process *xmlquery.Node) []FlowNode {
	var out []FlowNode
	collectFlowNodes(process, nil, &out)
	return out
}

func collectFlowNodes(n, parent *xmlquery.Node, out *[]FlowNode) {
	for _, c := range xmldoc.Children(n) {
		if c.NamespaceURI != xmldoc.NSModel || !flowElements[c.Data] {
			continue
		}
		*out = append(*out, FlowNode{Node: c, Parent: parent})
		if containers[c.Data] {
			collectFlowNodes(c, c, out)
		}
	}
}
