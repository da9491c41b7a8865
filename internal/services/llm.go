package services

import (
	"context"
	"errors"

	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/tools"
)

// Gateway failure modes. The orchestrator retries transient failures once
// with backoff; malformed responses are never retried.
var (
	// ErrTransient marks network, rate-limit, and upstream availability
	// failures.
	ErrTransient = errors.New("llm service temporarily unavailable")

	// ErrMalformed marks a response that violates the expected schema.
	ErrMalformed = errors.New("malformed llm response")
)

// ToolCall is the model's request to invoke one registered tool.
type ToolCall struct {
	ID        string         `json:"id,omitempty"` // provider-assigned, echoed in the tool result
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// ModelDecision is the gateway's view of one model response: either a tool
// call or final narrative text, never both.
type ModelDecision struct {
	ToolCall  *ToolCall `json:"tool_call,omitempty"`
	Narrative string    `json:"narrative,omitempty"`
}

// IsToolCall reports whether the model chose to invoke a tool.
func (d *ModelDecision) IsToolCall() bool {
	return d != nil && d.ToolCall != nil
}

// LLMService is the gateway to the external language model. It marshals
// context into the provider's wire format and unmarshals the response into
// a ModelDecision; it performs no game logic.
type LLMService interface {
	// InitModel prepares the model for use on startup.
	InitModel(ctx context.Context, modelName string) error

	// Decide sends the conversation and tool schema to the model and
	// returns its decision.
	Decide(ctx context.Context, messages []chat.Message, toolDefs []tools.Definition) (*ModelDecision, error)
}
