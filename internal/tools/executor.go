// Package tools executes the diagram tool calls requested by assistant runs.
//
// The set of tools is closed: every Definition must have a handler and a
// compilable argument schema, which NewExecutor checks before any call is
// served. Calls to names outside the set produce an error result.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"diagram-assistant/internal/models"
)

// Status reports whether a tool call succeeded
type Status string

// Result statuses
const (
	StatusOK    Status = "OK"
	StatusError Status = "Error"
)

// CreatedNode echoes a created node back to the assistant
type CreatedNode struct {
	ID    string `json:"id"`
	Label string `json:"label,omitempty"`
}

// CreatedEdge echoes a created edge back to the assistant
type CreatedEdge struct {
	ID           string `json:"id"`
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
}

// Result is the structured outcome of a tool call
type Result struct {
	Status  Status          `json:"status"`
	Message string          `json:"message,omitempty"`
	Nodes   []CreatedNode   `json:"nodes,omitempty"`
	Edges   []CreatedEdge   `json:"edges,omitempty"`
	Diagram *models.Diagram `json:"diagram,omitempty"`
}

// ErrorResult builds an error-status result
func ErrorResult(format string, args ...any) Result {
	return Result{Status: StatusError, Message: fmt.Sprintf(format, args...)}
}

// String serializes the result as the tool output text
func (r Result) String() string {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Sprintf(`{"status":%q,"message":%q}`, StatusError, err.Error())
	}
	return string(data)
}

// Diagram is the diagram-mutation capability the tools operate on
type Diagram interface {
	Diagram(ctx context.Context) (*models.Diagram, error)
	CreateNodes(ctx context.Context, specs []models.NodeSpec) ([]models.NodeRef, error)
	CreateEdges(ctx context.Context, specs []models.EdgeSpec) ([]models.Edge, error)
	DeleteElements(ctx context.Context, ids []string) error
	MoveNodes(ctx context.Context, moves []models.Move) error
	EditLabels(ctx context.Context, edits []models.LabelEdit) error
	SelectAndCenter(ctx context.Context, ids []string) error
}

type handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Executor dispatches tool calls to their handlers
type Executor struct {
	diagram     Diagram
	definitions []Definition
	handlers    map[Name]handler
	schemas     map[Name]*jsonschema.Schema
}

// NewExecutor builds an executor for all Definitions
func NewExecutor(diagram Diagram) (*Executor, error) {
	return newExecutor(diagram, Definitions())
}

func newExecutor(diagram Diagram, definitions []Definition) (*Executor, error) {
	e := &Executor{
		diagram:     diagram,
		definitions: definitions,
		schemas:     make(map[Name]*jsonschema.Schema),
	}
	e.handlers = map[Name]handler{
		GetDiagram:       e.getDiagram,
		CreateNodes:      e.createNodes,
		CreateEdges:      e.createEdges,
		DeleteNodes:      e.deleteNodes,
		DeleteEdges:      e.deleteEdges,
		MoveNodes:        e.moveNodes,
		ChangeNodeLabels: e.changeNodeLabels,
		ShowNodes:        e.showNodes,
	}

	if err := e.register(); err != nil {
		return nil, err
	}
	return e, nil
}

// register compiles every definition's schema and checks that definitions
// and handlers match one to one
func (e *Executor) register() error {
	compiler := jsonschema.NewCompiler()

	for _, def := range e.definitions {
		if _, ok := e.handlers[def.Name]; !ok {
			return fmt.Errorf("tool %q has no handler", def.Name)
		}
		if _, dup := e.schemas[def.Name]; dup {
			return fmt.Errorf("tool %q is defined twice", def.Name)
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(def.Parameters))
		if err != nil {
			return fmt.Errorf("tool %q: parse schema: %w", def.Name, err)
		}
		url := string(def.Name) + ".json"
		if err := compiler.AddResource(url, doc); err != nil {
			return fmt.Errorf("tool %q: add schema resource: %w", def.Name, err)
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			return fmt.Errorf("tool %q: compile schema: %w", def.Name, err)
		}
		e.schemas[def.Name] = schema
	}

	for name := range e.handlers {
		if _, ok := e.schemas[name]; !ok {
			return fmt.Errorf("handler %q has no tool definition", name)
		}
	}
	return nil
}

// Definitions returns the tools served by this executor
func (e *Executor) Definitions() []Definition {
	return e.definitions
}

// Handle runs the named tool with JSON arguments.
// Unknown tools, invalid arguments and unresolvable references yield an
// error-status result; a non-nil error means the diagram itself failed.
func (e *Executor) Handle(ctx context.Context, name string, args json.RawMessage) (result Result, err error) {
	h, ok := e.handlers[Name(name)]
	if !ok {
		log.Printf("[Tools] Unknown tool name=%s", name)
		return ErrorResult("unknown tool %q", name), nil
	}

	if len(bytes.TrimSpace(args)) == 0 {
		args = json.RawMessage("{}")
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(args))
	if err != nil {
		log.Printf("[Tools] Invalid arguments name=%s err=%v", name, err)
		return ErrorResult("invalid arguments: %v", err), nil
	}
	if err := e.schemas[Name(name)].Validate(doc); err != nil {
		log.Printf("[Tools] Arguments rejected by schema name=%s err=%v", name, err)
		return ErrorResult("invalid arguments: %v", err), nil
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Tools] Handler panicked name=%s panic=%v", name, r)
			result, err = Result{}, fmt.Errorf("tool %s panicked: %v", name, r)
		}
	}()

	log.Printf("[Tools] Handle started name=%s", name)
	result, err = h(ctx, args)
	if err != nil {
		log.Printf("[Tools] Handle failed name=%s err=%v", name, err)
		return result, err
	}
	log.Printf("[Tools] Handle completed name=%s status=%s", name, result.Status)
	return result, nil
}
