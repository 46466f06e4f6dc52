package bpmn

// NoGroup is the display label used for nodes outside every group.
// [NodeMetadata.Group] itself is nil in that case.
const NoGroup = "no group"

// Point is a position in diagram coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a diagram rectangle read from dc:Bounds.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Origin returns the top-left corner of r.
func (r Rect) Origin() Point { return Point{X: r.X, Y: r.Y} }

// Right returns the right edge X coordinate.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the bottom edge Y coordinate (diagram Y grows downward).
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// StrictlyInside reports whether r lies strictly within outer on both axes.
// Sharing an edge with outer does not count as inside.
func (r Rect) StrictlyInside(outer Rect) bool {
	return outer.X < r.X && r.Right() < outer.Right() &&
		outer.Y < r.Y && r.Bottom() < outer.Bottom()
}

// DataObjectSpec describes a declared bpmn:dataObject.
// Specs are owned by a [Registry]; resolvers only hand out references.
type DataObjectSpec struct {
	ID             string `json:"id"`
	Name           string `json:"name,omitempty"`
	ItemSubjectRef string `json:"item_subject_ref,omitempty"`
	IsCollection   bool   `json:"is_collection,omitempty"`
	Process        string `json:"process,omitempty"`
}

// NodeMetadata is the static metadata of one flow node, computed once from a
// frozen document and handed to the graph-building stage.
type NodeMetadata struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Name    string `json:"name,omitempty"`
	Process string `json:"process,omitempty"`
	Parent  string `json:"parent,omitempty"` // enclosing sub process

	Lane          *string `json:"lane,omitempty"`
	LaneInherited bool    `json:"lane_inherited,omitempty"`
	Position      Point   `json:"position"`
	Bounds        Rect    `json:"bounds"`
	Group         *string `json:"group,omitempty"`

	Documentation *string           `json:"documentation,omitempty"`
	Condition     *string           `json:"condition,omitempty"`
	SourceRef     string            `json:"source_ref,omitempty"`
	TargetRef     string            `json:"target_ref,omitempty"`
	Extensions    map[string]string `json:"extensions,omitempty"`

	Inputs  []*DataObjectSpec `json:"inputs,omitempty"`
	Outputs []*DataObjectSpec `json:"outputs,omitempty"`
}

// LaneName returns the lane or "" when the node has none.
func (m *NodeMetadata) LaneName() string {
	if m.Lane == nil {
		return ""
	}
	return *m.Lane
}

// GroupLabel returns the group label or [NoGroup].
func (m *NodeMetadata) GroupLabel() string {
	if m.Group == nil {
		return NoGroup
	}
	return *m.Group
}

// IsConnector reports whether the record describes a sequence flow.
func (m *NodeMetadata) IsConnector() bool { return m.Type == "sequenceFlow" }

func ptr(s string) *string { return &s }

// ProcessMetadata groups the node records of one bpmn:process.
type ProcessMetadata struct {
	ID          string            `json:"id"`
	Name        string            `json:"name,omitempty"`
	Nodes       []*NodeMetadata   `json:"nodes"`
	DataObjects []*DataObjectSpec `json:"data_objects,omitempty"`

	// LaneConflicts lists, per node id, every lane that claims the node when
	// more than one does. The node's Lane is the first of them.
	LaneConflicts map[string][]string `json:"lane_conflicts,omitempty"`
}

// DocumentMetadata is the resolved metadata of a whole BPMN document.
type DocumentMetadata struct {
	Filename  string             `json:"filename"`
	Hash      string             `json:"hash"`
	Processes []*ProcessMetadata `json:"processes"`
}

// NodeCount returns the number of node records across all processes.
func (d *DocumentMetadata) NodeCount() int {
	n := 0
	for _, p := range d.Processes {
		n += len(p.Nodes)
	}
	return n
}

// Node returns the first record with the given id in document order.
func (d *DocumentMetadata) Node(id string) (*NodeMetadata, bool) {
	for _, p := range d.Processes {
		for _, m := range p.Nodes {
			if m.ID == id {
				return m, true
			}
		}
	}
	return nil, false
}
