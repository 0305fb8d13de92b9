package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/google/uuid"

	"diagram-assistant/internal/models"
)

// Diagram retrieves the full diagram state ordered by creation
func (d *DB) Diagram(ctx context.Context) (*models.Diagram, error) {
	return WithLockResult(d, func() (*models.Diagram, error) {
		diagram := &models.Diagram{
			Nodes: []models.Node{},
			Edges: []models.Edge{},
		}

		rows, err := d.db.QueryContext(ctx, `
			SELECT n.id, n.type, n.x, n.y, n.width, n.height, n.selected, l.id, l.text
			FROM nodes n
			LEFT JOIN labels l ON l.node_id = n.id
			ORDER BY n.rowid
		`)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		for rows.Next() {
			var node models.Node
			var labelID, labelText sql.NullString
			if err := rows.Scan(&node.ID, &node.Type, &node.Position.X, &node.Position.Y,
				&node.Size.Width, &node.Size.Height, &node.Selected, &labelID, &labelText); err != nil {
				return nil, err
			}
			node.LabelID = labelID.String
			node.Label = labelText.String
			diagram.Nodes = append(diagram.Nodes, node)
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}

		edgeRows, err := d.db.QueryContext(ctx,
			`SELECT id, type, source_id, target_id, selected FROM edges ORDER BY rowid`)
		if err != nil {
			return nil, err
		}
		defer edgeRows.Close()

		for edgeRows.Next() {
			var edge models.Edge
			if err := edgeRows.Scan(&edge.ID, &edge.Type, &edge.SourceID, &edge.TargetID, &edge.Selected); err != nil {
				return nil, err
			}
			diagram.Edges = append(diagram.Edges, edge)
		}
		if err := edgeRows.Err(); err != nil {
			return nil, err
		}

		var cx, cy sql.NullFloat64
		err = d.db.QueryRowContext(ctx, `SELECT center_x, center_y FROM viewport WHERE id = 1`).Scan(&cx, &cy)
		if err != nil && err != sql.ErrNoRows {
			return nil, err
		}
		if cx.Valid && cy.Valid {
			diagram.Viewport = &models.Position{X: cx.Float64, Y: cy.Float64}
		}

		return diagram, nil
	})
}

// CreateNodes creates all nodes in a single transaction.
// Labelled node types get a heading label whose id is returned in the NodeRef.
func (d *DB) CreateNodes(ctx context.Context, specs []models.NodeSpec) ([]models.NodeRef, error) {
	refs := make([]models.NodeRef, 0, len(specs))

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, spec := range specs {
			if !models.IsNodeType(spec.Type) {
				return fmt.Errorf("unknown node type %q", spec.Type)
			}
			size := models.DefaultSize(spec.Type)
			ref := models.NodeRef{ID: uuid.NewString()}

			_, err := tx.ExecContext(ctx,
				`INSERT INTO nodes (id, type, x, y, width, height) VALUES (?, ?, ?, ?, ?, ?)`,
				ref.ID, spec.Type, spec.Position.X, spec.Position.Y, size.Width, size.Height,
			)
			if err != nil {
				return err
			}

			if models.HasLabel(spec.Type) {
				ref.LabelID = uuid.NewString()
				_, err := tx.ExecContext(ctx,
					`INSERT INTO labels (id, node_id, text) VALUES (?, ?, ?)`,
					ref.LabelID, ref.ID, spec.Label,
				)
				if err != nil {
					return err
				}
			}
			refs = append(refs, ref)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Diagram] CreateNodes failed count=%d err=%v", len(specs), err)
		return nil, err
	}

	log.Printf("[Diagram] CreateNodes completed count=%d", len(refs))
	return refs, nil
}

// CreateEdges creates all edges in a single transaction
func (d *DB) CreateEdges(ctx context.Context, specs []models.EdgeSpec) ([]models.Edge, error) {
	edges := make([]models.Edge, 0, len(specs))

	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, spec := range specs {
			if !models.IsEdgeType(spec.Type) {
				return fmt.Errorf("unknown edge type %q", spec.Type)
			}
			for _, nodeID := range []string{spec.SourceID, spec.TargetID} {
				if err := requireRow(ctx, tx, "nodes", nodeID); err != nil {
					return err
				}
			}

			edge := models.Edge{
				ID:       uuid.NewString(),
				Type:     spec.Type,
				SourceID: spec.SourceID,
				TargetID: spec.TargetID,
			}
			_, err := tx.ExecContext(ctx,
				`INSERT INTO edges (id, type, source_id, target_id) VALUES (?, ?, ?, ?)`,
				edge.ID, edge.Type, edge.SourceID, edge.TargetID,
			)
			if err != nil {
				return err
			}
			edges = append(edges, edge)
		}
		return nil
	})
	if err != nil {
		log.Printf("[Diagram] CreateEdges failed count=%d err=%v", len(specs), err)
		return nil, err
	}

	log.Printf("[Diagram] CreateEdges completed count=%d", len(edges))
	return edges, nil
}

// DeleteElements deletes nodes and edges by id.
// Deleting a node also removes its label and every connected edge.
func (d *DB) DeleteElements(ctx context.Context, ids []string) error {
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `DELETE FROM edges WHERE id = ?`, id); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[Diagram] DeleteElements failed count=%d err=%v", len(ids), err)
		return err
	}

	log.Printf("[Diagram] DeleteElements completed count=%d", len(ids))
	return nil
}

// MoveNodes relocates nodes, keeping their size
func (d *DB) MoveNodes(ctx context.Context, moves []models.Move) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, move := range moves {
			result, err := tx.ExecContext(ctx,
				`UPDATE nodes SET x = ?, y = ? WHERE id = ?`,
				move.Position.X, move.Position.Y, move.NodeID,
			)
			if err != nil {
				return err
			}
			if err := requireAffected(result, move.NodeID); err != nil {
				return err
			}
		}
		return nil
	})
}

// EditLabels replaces label texts
func (d *DB) EditLabels(ctx context.Context, edits []models.LabelEdit) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, edit := range edits {
			result, err := tx.ExecContext(ctx, `UPDATE labels SET text = ? WHERE id = ?`, edit.Text, edit.LabelID)
			if err != nil {
				return err
			}
			if err := requireAffected(result, edit.LabelID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SelectAndCenter selects exactly the given elements, deselects all others
// and centers the viewport on the bounds of the selected nodes
func (d *DB) SelectAndCenter(ctx context.Context, ids []string) error {
	return d.withTx(ctx, func(tx *sql.Tx) error {
		for _, table := range []string{"nodes", "edges"} {
			if _, err := tx.ExecContext(ctx, "UPDATE "+table+" SET selected = 0"); err != nil {
				return err
			}
		}
		if len(ids) == 0 {
			return nil
		}

		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
		args := make([]any, len(ids))
		for i, id := range ids {
			args[i] = id
		}
		for _, table := range []string{"nodes", "edges"} {
			query := "UPDATE " + table + " SET selected = 1 WHERE id IN (" + placeholders + ")"
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return err
			}
		}

		rows, err := tx.QueryContext(ctx, `SELECT x, y, width, height FROM nodes WHERE selected = 1`)
		if err != nil {
			return err
		}
		defer rows.Close()

		minX, minY := math.Inf(1), math.Inf(1)
		maxX, maxY := math.Inf(-1), math.Inf(-1)
		found := false
		for rows.Next() {
			var x, y, w, h float64
			if err := rows.Scan(&x, &y, &w, &h); err != nil {
				return err
			}
			found = true
			minX, minY = math.Min(minX, x), math.Min(minY, y)
			maxX, maxY = math.Max(maxX, x+w), math.Max(maxY, y+h)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		if !found {
			return nil
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE viewport SET center_x = ?, center_y = ? WHERE id = 1`,
			(minX+maxX)/2, (minY+maxY)/2,
		)
		return err
	})
}

func requireRow(ctx context.Context, tx *sql.Tx, table, id string) error {
	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func requireAffected(result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
