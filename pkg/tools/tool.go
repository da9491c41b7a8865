// Package tools defines the fixed set of world-mutating and world-querying
// operations the language model may invoke, plus the deterministic entity
// resolution that maps the model's free-text references onto entity IDs.
package tools

import (
	"fmt"
	"log/slog"

	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/state"
)

// Param describes one parameter of a tool's contract.
type Param struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // JSON schema type, "string" for all current tools
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Definition is the model-facing declaration of a tool: its name, a
// natural-language description used for selection, and its parameters.
type Definition struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Params      []Param `json:"params,omitempty"`
}

// Result is the outcome of one tool execution. Failures are carried in-band
// in Err so the model can recover in-narrative; executors never return Go
// errors to the orchestrator.
type Result struct {
	Narrative        string `json:"narrative"`
	StateChanged     bool   `json:"state_changed"`
	InventoryChanged bool   `json:"inventory_changed,omitempty"`
	SubjectID        string `json:"subject_id,omitempty"` // entity the action centered on
	Err              string `json:"error,omitempty"`
}

// Failf builds a failed Result with a formatted in-band error.
func Failf(format string, args ...any) Result {
	return Result{Err: fmt.Sprintf(format, args...)}
}

// Context carries the world references an executor needs. Executors are the
// only code path allowed to mutate game state and entity data.
type Context struct {
	State    *state.GameState
	Store    entity.Store
	Ledger   *knowledge.Ledger
	Resolver *Resolver
	Logger   *slog.Logger
}

// Tool pairs a definition with its executor.
type Tool struct {
	Definition
	Execute func(tc *Context, args map[string]any) Result
}

// Registry holds the set of tools offered to the model for one session.
type Registry struct {
	tools map[string]*Tool
	order []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Registering the same name twice replaces the
// earlier tool.
func (r *Registry) Register(t *Tool) {
	if _, exists := r.tools[t.Name]; !exists {
		r.order = append(r.order, t.Name)
	}
	r.tools[t.Name] = t
}

// Get returns the named tool, if registered.
func (r *Registry) Get(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Definitions returns the declarations for every registered tool, in
// registration order, for serialization into the model request.
func (r *Registry) Definitions() []Definition {
	defs := make([]Definition, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition)
	}
	return defs
}

// stringArg extracts a required string argument from the model's arguments.
func stringArg(args map[string]any, name string) (string, bool) {
	v, ok := args[name].(string)
	return v, ok && v != ""
}

// intArg reads a whole-number argument. JSON decoding hands numbers over as
// float64, so a fractional value is rejected rather than truncated.
func intArg(args map[string]any, name string) (int, bool) {
	switch v := args[name].(type) {
	case int:
		return v, true
	case float64:
		n := int(v)
		if float64(n) != v {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
