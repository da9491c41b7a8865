package prompts

import (
	"fmt"

	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/state"
)

// DefaultHistoryLimit is the number of trailing history entries included in
// the prompt window.
const DefaultHistoryLimit = 10

// Builder constructs the chat message window for one model call using a
// fluent interface. It separates prompt assembly from turn orchestration.
type Builder struct {
	gs           *state.GameState
	ledger       *knowledge.Ledger
	history      []chat.Message
	historyLimit int
	playerInput  string
	turnMessages []chat.Message
}

// New creates a prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
	}
}

// WithState sets the game state the snapshot is derived from.
func (b *Builder) WithState(gs *state.GameState) *Builder {
	b.gs = gs
	return b
}

// WithLedger sets the knowledge ledger used to scope what the model may
// reveal.
func (b *Builder) WithLedger(l *knowledge.Ledger) *Builder {
	b.ledger = l
	return b
}

// WithHistory sets the durable conversation history to window into the
// prompt.
func (b *Builder) WithHistory(history []chat.Message) *Builder {
	b.history = history
	return b
}

// WithHistoryLimit overrides the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// WithPlayerInput sets the player's command for this turn.
func (b *Builder) WithPlayerInput(input string) *Builder {
	b.playerInput = input
	return b
}

// WithTurnMessages appends the in-turn tool-call exchange accumulated so
// far (tool calls already made this turn and their results).
func (b *Builder) WithTurnMessages(messages []chat.Message) *Builder {
	b.turnMessages = messages
	return b
}

// Build assembles the final message window for the model.
func (b *Builder) Build() ([]chat.Message, error) {
	if b.gs == nil {
		return nil, fmt.Errorf("game state is required")
	}
	if b.ledger == nil {
		return nil, fmt.Errorf("knowledge ledger is required")
	}

	messages := []chat.Message{
		{Role: chat.RoleSystem, Content: SystemPrompt},
	}

	statePrompt, err := StatePrompt(b.gs, b.ledger)
	if err != nil {
		return nil, fmt.Errorf("error building state prompt: %w", err)
	}
	messages = append(messages, chat.Message{Role: chat.RoleSystem, Content: statePrompt})

	history := b.history
	if b.historyLimit > 0 && len(history) > b.historyLimit {
		history = history[len(history)-b.historyLimit:]
	}
	messages = append(messages, history...)

	if b.playerInput != "" {
		messages = append(messages, chat.Message{Role: chat.RolePlayer, Content: b.playerInput})
	}

	messages = append(messages, b.turnMessages...)
	return messages, nil
}
