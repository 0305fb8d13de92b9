package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"diagram-assistant/internal/models"
)

// DiagramReader returns the current diagram
type DiagramReader interface {
	Diagram(ctx context.Context) (*models.Diagram, error)
}

// DiagramHandler serves the diagram state
type DiagramHandler struct {
	diagram DiagramReader
}

// NewDiagramHandler creates a new DiagramHandler
func NewDiagramHandler(diagram DiagramReader) *DiagramHandler {
	return &DiagramHandler{diagram: diagram}
}

// Get handles GET /api/diagram
func (h *DiagramHandler) Get(w http.ResponseWriter, r *http.Request) {
	diagram, err := h.diagram.Diagram(r.Context())
	if err != nil {
		log.Printf("[API] Get diagram failed err=%v", err)
		http.Error(w, "Failed to load diagram", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(diagram)
}
