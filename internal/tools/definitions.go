package tools

import "encoding/json"

// Name identifies a tool in the closed set the assistant may call
type Name string

// Tool names
const (
	GetDiagram       Name = "get_diagram"
	CreateNodes      Name = "create_nodes"
	CreateEdges      Name = "create_edges"
	DeleteNodes      Name = "delete_nodes"
	DeleteEdges      Name = "delete_edges"
	MoveNodes        Name = "move_nodes"
	ChangeNodeLabels Name = "change_node_labels"
	ShowNodes        Name = "show_nodes"
)

// Definition declares a tool and the JSON schema of its arguments
type Definition struct {
	Name        Name
	Description string
	Parameters  json.RawMessage
}

const positionSchema = `{
	"type": "object",
	"description": "Coordinates on the canvas.",
	"properties": {
		"x": {"type": "number", "description": "X coordinate."},
		"y": {"type": "number", "description": "Y coordinate."}
	},
	"required": ["x", "y"]
}`

func idListSchema(property, description string) json.RawMessage {
	return json.RawMessage(`{
	"type": "object",
	"properties": {
		"` + property + `": {
			"type": "array",
			"description": "` + description + `",
			"items": {"type": "string"}
		}
	},
	"required": ["` + property + `"]
}`)
}

// Definitions returns every tool offered to the assistant
func Definitions() []Definition {
	return []Definition{
		{
			Name:        GetDiagram,
			Description: "Returns the current state of the diagram in a JSON format consisting of typed nodes and edges.",
			Parameters:  json.RawMessage(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        CreateNodes,
			Description: "Creates multiple nodes, each with specified type_id, label, and position",
			Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"nodes": {
			"type": "array",
			"description": "Array of node specifications",
			"items": {
				"type": "object",
				"properties": {
					"type_id": {"type": "string", "description": "Unique identifier for the node type."},
					"label": {"type": "string", "description": "Label for the node."},
					"position": ` + positionSchema + `
				},
				"required": ["type_id", "position"]
			}
		}
	},
	"required": ["nodes"]
}`),
		},
		{
			Name:        CreateEdges,
			Description: "Creates multiple edges, each connecting specified source and target nodes",
			Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"edges": {
			"type": "array",
			"description": "Array of edge specifications",
			"items": {
				"type": "object",
				"properties": {
					"source_node_id": {"type": "string", "description": "The ID of the source node"},
					"target_node_id": {"type": "string", "description": "The ID of the target node"},
					"type_id": {"type": "string", "description": "Edge type, edge or edge:weighted. Defaults to edge."}
				},
				"required": ["source_node_id", "target_node_id"]
			}
		}
	},
	"required": ["edges"]
}`),
		},
		{
			Name:        DeleteNodes,
			Description: "Deletes the nodes with the specified array of node_ids",
			Parameters:  idListSchema("node_ids", "Unique identifiers of nodes to be deleted."),
		},
		{
			Name:        DeleteEdges,
			Description: "Deletes the edges with the specified edge_ids",
			Parameters:  idListSchema("edge_ids", "Unique identifiers of the edges to be deleted."),
		},
		{
			Name:        MoveNodes,
			Description: "Moves the nodes with the specified node_id to the specified position",
			Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"moves": {
			"type": "array",
			"description": "Array of move specifications",
			"items": {
				"type": "object",
				"properties": {
					"node_id": {"type": "string", "description": "Unique identifier of the node to be moved."},
					"position": ` + positionSchema + `
				},
				"required": ["node_id", "position"]
			}
		}
	},
	"required": ["moves"]
}`),
		},
		{
			Name:        ChangeNodeLabels,
			Description: "Changes the label of the nodes with the specified array of node_id to new_label",
			Parameters: json.RawMessage(`{
	"type": "object",
	"properties": {
		"renames": {
			"type": "array",
			"description": "The array of rename operations",
			"items": {
				"type": "object",
				"properties": {
					"node_id": {"type": "string", "description": "Unique identifier of the node to change the label."},
					"new_label": {"type": "string", "description": "The new label for the node."}
				},
				"required": ["node_id", "new_label"]
			}
		}
	},
	"required": ["renames"]
}`),
		},
		{
			Name:        ShowNodes,
			Description: "Centers and selects the node(s) with the specified node_ids",
			Parameters:  idListSchema("node_ids", "Unique identifiers of nodes to be centered and selected."),
		},
	}
}
