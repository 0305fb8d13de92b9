package models

// Node types of the workflow diagram language
const (
	NodeTypeManualTask    = "task:manual"
	NodeTypeAutomatedTask = "task:automated"
	NodeTypeDecision      = "activityNode:decision"
	NodeTypeMerge         = "activityNode:merge"
	NodeTypeFork          = "activityNode:fork"
	NodeTypeJoin          = "activityNode:join"
)

// Edge types of the workflow diagram language
const (
	EdgeTypeFlow     = "edge"
	EdgeTypeWeighted = "edge:weighted"
)

var nodeSizes = map[string]Size{
	NodeTypeManualTask:    {Width: 110, Height: 50},
	NodeTypeAutomatedTask: {Width: 110, Height: 50},
	NodeTypeDecision:      {Width: 32, Height: 32},
	NodeTypeMerge:         {Width: 32, Height: 32},
	NodeTypeFork:          {Width: 10, Height: 50},
	NodeTypeJoin:          {Width: 10, Height: 50},
}

// IsNodeType reports whether t is a known node type
func IsNodeType(t string) bool {
	_, ok := nodeSizes[t]
	return ok
}

// IsEdgeType reports whether t is a known edge type
func IsEdgeType(t string) bool {
	return t == EdgeTypeFlow || t == EdgeTypeWeighted
}

// HasLabel reports whether nodes of type t carry a heading label
func HasLabel(t string) bool {
	return t == NodeTypeManualTask || t == NodeTypeAutomatedTask
}

// DefaultSize returns the initial size of a node of type t
func DefaultSize(t string) Size {
	return nodeSizes[t]
}

// Position is a point on the canvas, origin top-left
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a node
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Node is a typed diagram node
type Node struct {
	ID       string   `json:"id"`
	Type     string   `json:"type"`
	Label    string   `json:"label,omitempty"`
	LabelID  string   `json:"-"`
	Position Position `json:"position"`
	Size     Size     `json:"size"`
	Selected bool     `json:"selected,omitempty"`
}

// Edge connects exactly one source node to one target node
type Edge struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	SourceID string `json:"sourceId"`
	TargetID string `json:"targetId"`
	Selected bool   `json:"selected,omitempty"`
}

// Diagram is the full diagram state
type Diagram struct {
	Nodes    []Node    `json:"nodes"`
	Edges    []Edge    `json:"edges"`
	Viewport *Position `json:"viewport_center,omitempty"`
}

// NodeSpec describes a node to create
type NodeSpec struct {
	Type     string
	Label    string
	Position Position
}

// NodeRef names a created node and its heading label.
// LabelID is empty for node types without a label.
type NodeRef struct {
	ID      string
	LabelID string
}

// EdgeSpec describes an edge to create
type EdgeSpec struct {
	Type     string
	SourceID string
	TargetID string
}

// Move relocates a node
type Move struct {
	NodeID   string
	Position Position
}

// LabelEdit replaces the text of a label
type LabelEdit struct {
	LabelID string
	Text    string
}
