package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"diagram-assistant/internal/models"
)

// diagramIndex resolves element ids against one snapshot of the diagram
type diagramIndex struct {
	nodes map[string]models.Node
	edges map[string]models.Edge
}

func (e *Executor) index(ctx context.Context) (*diagramIndex, error) {
	diagram, err := e.diagram.Diagram(ctx)
	if err != nil {
		return nil, fmt.Errorf("load diagram: %w", err)
	}

	idx := &diagramIndex{
		nodes: make(map[string]models.Node, len(diagram.Nodes)),
		edges: make(map[string]models.Edge, len(diagram.Edges)),
	}
	for _, n := range diagram.Nodes {
		idx.nodes[n.ID] = n
	}
	for _, edge := range diagram.Edges {
		idx.edges[edge.ID] = edge
	}
	return idx, nil
}

func decodeArgs(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("decode arguments: %w", err)
	}
	return nil
}

func (e *Executor) getDiagram(ctx context.Context, _ json.RawMessage) (Result, error) {
	diagram, err := e.diagram.Diagram(ctx)
	if err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK, Diagram: diagram}, nil
}

type createNodesArgs struct {
	Nodes []struct {
		TypeID   string          `json:"type_id"`
		Label    string          `json:"label"`
		Position models.Position `json:"position"`
	} `json:"nodes"`
}

func (e *Executor) createNodes(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args createNodesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}

	specs := make([]models.NodeSpec, 0, len(args.Nodes))
	for _, n := range args.Nodes {
		if !models.IsNodeType(n.TypeID) {
			return ErrorResult("unknown node type %q", n.TypeID), nil
		}
		specs = append(specs, models.NodeSpec{Type: n.TypeID, Label: n.Label, Position: n.Position})
	}

	refs, err := e.diagram.CreateNodes(ctx, specs)
	if err != nil {
		return Result{}, err
	}

	nodes := make([]CreatedNode, len(refs))
	for i, ref := range refs {
		nodes[i] = CreatedNode{ID: ref.ID, Label: specs[i].Label}
	}
	return Result{Status: StatusOK, Nodes: nodes}, nil
}

type createEdgesArgs struct {
	Edges []struct {
		SourceNodeID string `json:"source_node_id"`
		TargetNodeID string `json:"target_node_id"`
		TypeID       string `json:"type_id"`
	} `json:"edges"`
}

func (e *Executor) createEdges(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args createEdgesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return Result{}, err
	}

	specs := make([]models.EdgeSpec, 0, len(args.Edges))
	for _, edge := range args.Edges {
		typeID := edge.TypeID
		if typeID == "" {
			typeID = models.EdgeTypeFlow
		}
		if !models.IsEdgeType(typeID) {
			return ErrorResult("unknown edge type %q", typeID), nil
		}
		source, ok := idx.nodes[edge.SourceNodeID]
		if !ok {
			return ErrorResult("source node %q not found", edge.SourceNodeID), nil
		}
		if _, ok := idx.nodes[edge.TargetNodeID]; !ok {
			return ErrorResult("target node %q not found", edge.TargetNodeID), nil
		}
		if typeID == models.EdgeTypeWeighted && source.Type != models.NodeTypeDecision {
			return ErrorResult("weighted edges must start at a decision node, %q is %s", source.ID, source.Type), nil
		}
		specs = append(specs, models.EdgeSpec{Type: typeID, SourceID: edge.SourceNodeID, TargetID: edge.TargetNodeID})
	}

	created, err := e.diagram.CreateEdges(ctx, specs)
	if err != nil {
		return Result{}, err
	}

	edges := make([]CreatedEdge, len(created))
	for i, edge := range created {
		edges[i] = CreatedEdge{ID: edge.ID, SourceNodeID: edge.SourceID, TargetNodeID: edge.TargetID}
	}
	return Result{Status: StatusOK, Edges: edges}, nil
}

func (e *Executor) deleteNodes(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args struct {
		NodeIDs []string `json:"node_ids"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return Result{}, err
	}
	for _, id := range args.NodeIDs {
		if _, ok := idx.nodes[id]; !ok {
			return ErrorResult("node %q not found", id), nil
		}
	}

	if err := e.diagram.DeleteElements(ctx, args.NodeIDs); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK}, nil
}

func (e *Executor) deleteEdges(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args struct {
		EdgeIDs []string `json:"edge_ids"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return Result{}, err
	}
	for _, id := range args.EdgeIDs {
		if _, ok := idx.edges[id]; !ok {
			return ErrorResult("edge %q not found", id), nil
		}
	}

	if err := e.diagram.DeleteElements(ctx, args.EdgeIDs); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK}, nil
}

type moveNodesArgs struct {
	Moves []struct {
		NodeID   string          `json:"node_id"`
		Position models.Position `json:"position"`
	} `json:"moves"`
}

func (e *Executor) moveNodes(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args moveNodesArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return Result{}, err
	}

	moves := make([]models.Move, 0, len(args.Moves))
	for _, m := range args.Moves {
		if _, ok := idx.nodes[m.NodeID]; !ok {
			return ErrorResult("node %q not found", m.NodeID), nil
		}
		moves = append(moves, models.Move{NodeID: m.NodeID, Position: m.Position})
	}

	if err := e.diagram.MoveNodes(ctx, moves); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK}, nil
}

type changeNodeLabelsArgs struct {
	Renames []struct {
		NodeID   string `json:"node_id"`
		NewLabel string `json:"new_label"`
	} `json:"renames"`
}

func (e *Executor) changeNodeLabels(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args changeNodeLabelsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return Result{}, err
	}

	edits := make([]models.LabelEdit, 0, len(args.Renames))
	for _, r := range args.Renames {
		node, ok := idx.nodes[r.NodeID]
		if !ok {
			return ErrorResult("node %q not found", r.NodeID), nil
		}
		if node.LabelID == "" {
			return ErrorResult("node %q of type %s has no label", r.NodeID, node.Type), nil
		}
		edits = append(edits, models.LabelEdit{LabelID: node.LabelID, Text: r.NewLabel})
	}

	if err := e.diagram.EditLabels(ctx, edits); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK}, nil
}

func (e *Executor) showNodes(ctx context.Context, raw json.RawMessage) (Result, error) {
	var args struct {
		NodeIDs []string `json:"node_ids"`
	}
	if err := decodeArgs(raw, &args); err != nil {
		return Result{}, err
	}
	idx, err := e.index(ctx)
	if err != nil {
		return Result{}, err
	}
	for _, id := range args.NodeIDs {
		_, isNode := idx.nodes[id]
		_, isEdge := idx.edges[id]
		if !isNode && !isEdge {
			return ErrorResult("element %q not found", id), nil
		}
	}

	if err := e.diagram.SelectAndCenter(ctx, args.NodeIDs); err != nil {
		return Result{}, err
	}
	return Result{Status: StatusOK}, nil
}
