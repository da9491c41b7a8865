// Package gm implements the game-master orchestration loop: the cycle that
// turns free-text player input into validated tool invocations against the
// world state and produces a consistent narrative response.
package gm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jmercer/gamemaster/internal/services"
	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/prompts"
	"github.com/jmercer/gamemaster/pkg/state"
	"github.com/jmercer/gamemaster/pkg/tools"
)

const (
	// DefaultMaxToolCalls bounds the tool-call loop within one turn.
	DefaultMaxToolCalls = 5

	// DefaultLLMTimeout bounds each individual model call.
	DefaultLLMTimeout = 30 * time.Second

	// retryBackoff is the pause before the single retry of a transient
	// gateway failure.
	retryBackoff = 2 * time.Second

	// FallbackNarrative is returned when the model gateway fails; the
	// player sees narrative, never an error payload.
	FallbackNarrative = "Your mind feels muddled for a moment, and the world swims before your eyes. Perhaps try that again."

	// DegradedNarrative is returned when a turn exceeds its tool-call
	// budget. The turn still completes successfully for the caller.
	DegradedNarrative = "I'm having trouble with that. Perhaps try something simpler."
)

// TurnResult is what one completed turn hands back to the transport layer.
type TurnResult struct {
	Narrative        string `json:"narrative"`
	ActionResult     string `json:"action_result,omitempty"`
	StateChanged     bool   `json:"state_changed"`
	InventoryChanged bool   `json:"inventory_changed"`
}

// GameMaster mediates between player input, the language model, and world
// state. One instance owns one player session; calls to ProcessTurn must be
// serialized by the caller.
type GameMaster struct {
	store    entity.Store
	ledger   *knowledge.Ledger
	state    *state.GameState
	llm      services.LLMService
	registry *tools.Registry
	resolver *tools.Resolver
	logger   *slog.Logger

	maxToolCalls int
	llmTimeout   time.Duration
}

// Option configures a GameMaster.
type Option func(*GameMaster)

// WithMaxToolCalls overrides the per-turn tool-call budget.
func WithMaxToolCalls(n int) Option {
	return func(g *GameMaster) {
		if n > 0 {
			g.maxToolCalls = n
		}
	}
}

// WithLLMTimeout overrides the per-call model timeout.
func WithLLMTimeout(d time.Duration) Option {
	return func(g *GameMaster) {
		if d > 0 {
			g.llmTimeout = d
		}
	}
}

// WithResolver overrides the entity resolver (e.g. a custom threshold).
func WithResolver(r *tools.Resolver) Option {
	return func(g *GameMaster) {
		g.resolver = r
	}
}

// New creates a game master for one session. All collaborators are
// injected; there is no ambient global state.
func New(
	store entity.Store,
	ledger *knowledge.Ledger,
	gs *state.GameState,
	llm services.LLMService,
	registry *tools.Registry,
	logger *slog.Logger,
	opts ...Option,
) *GameMaster {
	g := &GameMaster{
		store:        store,
		ledger:       ledger,
		state:        gs,
		llm:          llm,
		registry:     registry,
		resolver:     tools.NewResolver(0),
		logger:       logger,
		maxToolCalls: DefaultMaxToolCalls,
		llmTimeout:   DefaultLLMTimeout,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// State exposes the session's game state for read access by the transport
// layer.
func (g *GameMaster) State() *state.GameState {
	return g.state
}

// ProcessTurn runs one full player-input-to-narrative cycle, potentially
// spanning several tool-call round trips with the model. Gateway failures
// and budget exhaustion terminate the turn with fallback narrative; the
// returned error is reserved for a session whose world state is unusable.
func (g *GameMaster) ProcessTurn(ctx context.Context, input string, history []chat.Message) (*TurnResult, error) {
	if _, err := g.state.PlayerEntity(); err != nil {
		return nil, fmt.Errorf("player entity could not be found: %w", err)
	}

	result := &TurnResult{}
	var turnMessages []chat.Message
	var fragments []string
	var executed []tools.Result
	toolCalls := 0

	for {
		messages, err := prompts.New().
			WithState(g.state).
			WithLedger(g.ledger).
			WithHistory(history).
			WithPlayerInput(input).
			WithTurnMessages(turnMessages).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to build prompt: %w", err)
		}

		decision, err := g.decideWithRetry(ctx, messages)
		if err != nil {
			g.logger.Error("Model gateway failed, ending turn with fallback narrative",
				"error", err, "tool_calls", toolCalls)
			result.Narrative = FallbackNarrative
			break
		}

		if !decision.IsToolCall() {
			result.Narrative = decision.Narrative
			break
		}

		if toolCalls >= g.maxToolCalls {
			g.logger.Warn("Tool-call budget exceeded, ending turn with degraded narrative",
				"budget", g.maxToolCalls)
			result.Narrative = DegradedNarrative
			break
		}
		toolCalls++

		call := decision.ToolCall
		toolResult := g.executeTool(call)
		executed = append(executed, toolResult)

		if toolResult.Err == "" && toolResult.Narrative != "" {
			fragments = append(fragments, toolResult.Narrative)
		}
		result.StateChanged = result.StateChanged || toolResult.StateChanged
		result.InventoryChanged = result.InventoryChanged || toolResult.InventoryChanged

		turnMessages = append(turnMessages, toolCallMessages(call, toolResult)...)
	}

	result.ActionResult = strings.Join(fragments, " ")
	g.deriveWitnessFacts(executed)
	return result, nil
}

// decideWithRetry calls the gateway with a per-call timeout, retrying a
// transient failure once after a short backoff. Malformed responses are
// never retried.
func (g *GameMaster) decideWithRetry(ctx context.Context, messages []chat.Message) (*services.ModelDecision, error) {
	decision, err := g.decide(ctx, messages)
	if err == nil {
		return decision, nil
	}
	if !errors.Is(err, services.ErrTransient) {
		return nil, err
	}

	g.logger.Warn("Transient gateway failure, retrying once", "error", err)
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", services.ErrTransient, ctx.Err())
	case <-time.After(retryBackoff):
	}
	return g.decide(ctx, messages)
}

func (g *GameMaster) decide(ctx context.Context, messages []chat.Message) (*services.ModelDecision, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.llmTimeout)
	defer cancel()
	return g.llm.Decide(callCtx, messages, g.registry.Definitions())
}

// executeTool resolves and runs one tool call. Every failure is in-band so
// the model can recover in-narrative.
func (g *GameMaster) executeTool(call *services.ToolCall) tools.Result {
	tool, ok := g.registry.Get(call.Name)
	if !ok {
		g.logger.Warn("Model requested unknown tool", "tool", call.Name)
		return tools.Failf("unknown tool %q", call.Name)
	}

	g.logger.Debug("Executing tool", "tool", call.Name, "arguments", call.Arguments)
	result := tool.Execute(&tools.Context{
		State:    g.state,
		Store:    g.store,
		Ledger:   g.ledger,
		Resolver: g.resolver,
		Logger:   g.logger,
	}, call.Arguments)

	if result.Err != "" {
		g.logger.Debug("Tool reported failure", "tool", call.Name, "error", result.Err)
	}
	return result
}

// toolCallMessages renders one executed tool call as the pair of
// model-visible messages replayed on the next gateway call.
func toolCallMessages(call *services.ToolCall, result tools.Result) []chat.Message {
	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}

	args, err := json.Marshal(call.Arguments)
	if err != nil || call.Arguments == nil {
		args = []byte("{}")
	}

	content := result.Narrative
	if result.Err != "" {
		content = "The action failed: " + result.Err
	}

	return []chat.Message{
		{Role: chat.RoleCharacter, ToolName: call.Name, ToolCallID: id, Content: string(args)},
		{Role: chat.RoleTool, ToolCallID: id, Content: content},
	}
}
