package gm

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jmercer/gamemaster/internal/services"
	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/state"
	"github.com/jmercer/gamemaster/pkg/tools"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testWorld struct {
	store  *entity.MemoryStore
	ledger *knowledge.Ledger
	state  *state.GameState
	mock   *services.MockLLMService
}

func newTestWorld(t *testing.T) *testWorld {
	t.Helper()
	store := entity.NewMemoryStore(testLogger())
	loaded, skipped := store.Load([]entity.RawRecord{
		{"unique_id": "tavern", "entity_type": "location", "name": "The Rusty Flagon",
			"description": "A smoky tavern with a low ceiling."},
		{"unique_id": "cellar", "entity_type": "location", "name": "Cellar"},
		{"unique_id": "player_01", "entity_type": "character", "name": "Adventurer", "location_id": "tavern"},
		{"unique_id": "barkeep", "entity_type": "character", "name": "Mira", "location_id": "tavern"},
		{"unique_id": "brass_key", "entity_type": "item", "name": "brass key", "location_id": "tavern"},
	})
	if loaded != 5 || len(skipped) != 0 {
		t.Fatalf("Unexpected load: %d loaded, %v skipped", loaded, skipped)
	}

	return &testWorld{
		store:  store,
		ledger: knowledge.NewLedger(),
		state:  state.NewGameState(store, "player_01", "tavern"),
		mock:   services.NewMockLLMService(),
	}
}

func (w *testWorld) gameMaster(t *testing.T, opts ...Option) *GameMaster {
	t.Helper()
	return New(w.store, w.ledger, w.state, w.mock, tools.NewDefaultRegistry(), testLogger(), opts...)
}

func TestProcessTurn_NarrativeOnly(t *testing.T) {
	w := newTestWorld(t)
	w.mock.Decisions = []*services.ModelDecision{
		{Narrative: "The barkeep nods a greeting."},
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "hello there", nil)
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.Narrative != "The barkeep nods a greeting." {
		t.Errorf("Unexpected narrative: %q", result.Narrative)
	}
	if result.StateChanged || result.InventoryChanged {
		t.Error("Narrative-only turn must not flag state changes")
	}
	if w.mock.CallCount() != 1 {
		t.Errorf("Expected a single model call, got %d", w.mock.CallCount())
	}
}

func TestProcessTurn_ExamineScenario(t *testing.T) {
	w := newTestWorld(t)
	w.mock.Decisions = []*services.ModelDecision{
		{ToolCall: &services.ToolCall{ID: "tc_1", Name: "examine",
			Arguments: map[string]any{"target": "the brass key"}}},
		{Narrative: "You turn the brass key over in your hand; it is worn smooth with age."},
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "look at the brass key", nil)
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.StateChanged {
		t.Error("examine must not change state")
	}
	if result.ActionResult == "" {
		t.Error("Expected a non-empty action result from the tool")
	}
	// The fuzzy reference resolved and the ledger learned something.
	if !w.ledger.Knows("player_01", "brass_key") {
		t.Error("Expected examine to record player knowledge")
	}

	// The second model call sees the tool result in its message window.
	second := w.mock.DecideCalls[1]
	var sawToolResult bool
	for _, msg := range second.Messages {
		if msg.Role == chat.RoleTool && msg.ToolCallID == "tc_1" {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Error("Expected tool result replayed to the model")
	}
}

func TestProcessTurn_TakeScenario(t *testing.T) {
	w := newTestWorld(t)
	w.mock.Decisions = []*services.ModelDecision{
		{ToolCall: &services.ToolCall{ID: "tc_1", Name: "take",
			Arguments: map[string]any{"item": "brass_key"}}},
		{Narrative: "You pocket the brass key."},
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "take the key", nil)
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if !result.StateChanged || !result.InventoryChanged {
		t.Error("Expected take to flag state and inventory changes")
	}

	key, _ := w.store.Get("brass_key")
	if key.LocationID() != "player_01" {
		t.Errorf("Expected key in player inventory, got %q", key.LocationID())
	}

	// Witnesses in the room learned about the taking; the player did too.
	if !w.ledger.Knows("barkeep", "brass_key") {
		t.Error("Expected co-located barkeep to witness the change")
	}
	if !w.ledger.Knows("player_01", "brass_key") {
		t.Error("Expected player to learn from their own action")
	}
}

func TestProcessTurn_ToolBudgetExceeded(t *testing.T) {
	w := newTestWorld(t)
	// The model keeps calling tools forever.
	w.mock.DecideFunc = func(ctx context.Context, messages []chat.Message, defs []tools.Definition) (*services.ModelDecision, error) {
		return &services.ModelDecision{
			ToolCall: &services.ToolCall{Name: "look_around"},
		}, nil
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "do everything", nil)
	if err != nil {
		t.Fatalf("Expected turn to complete, got error: %v", err)
	}
	if result.Narrative != DegradedNarrative {
		t.Errorf("Expected degraded narrative, got %q", result.Narrative)
	}
	// Budget of 5 executions means the sixth decision ends the turn.
	if w.mock.CallCount() != 6 {
		t.Errorf("Expected 6 model calls (5 executions + terminator), got %d", w.mock.CallCount())
	}
}

func TestProcessTurn_GatewayMalformedNoRetry(t *testing.T) {
	w := newTestWorld(t)
	w.mock.DecideFunc = func(ctx context.Context, messages []chat.Message, defs []tools.Definition) (*services.ModelDecision, error) {
		return nil, fmt.Errorf("%w: gibberish", services.ErrMalformed)
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Expected turn to complete, got error: %v", err)
	}
	if result.Narrative != FallbackNarrative {
		t.Errorf("Expected fallback narrative, got %q", result.Narrative)
	}
	if w.mock.CallCount() != 1 {
		t.Errorf("Malformed responses must not be retried; got %d calls", w.mock.CallCount())
	}
}

func TestProcessTurn_TransientRetriesOnce(t *testing.T) {
	w := newTestWorld(t)
	calls := 0
	w.mock.DecideFunc = func(ctx context.Context, messages []chat.Message, defs []tools.Definition) (*services.ModelDecision, error) {
		calls++
		if calls == 1 {
			return nil, fmt.Errorf("%w: connection reset", services.ErrTransient)
		}
		return &services.ModelDecision{Narrative: "Recovered."}, nil
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.Narrative != "Recovered." {
		t.Errorf("Expected recovery after retry, got %q", result.Narrative)
	}
	if calls != 2 {
		t.Errorf("Expected exactly one retry, got %d calls", calls)
	}
}

func TestProcessTurn_TransientExhaustedFallsBack(t *testing.T) {
	w := newTestWorld(t)
	w.mock.DecideFunc = func(ctx context.Context, messages []chat.Message, defs []tools.Definition) (*services.ModelDecision, error) {
		return nil, fmt.Errorf("%w: still down", services.ErrTransient)
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Expected turn to complete, got error: %v", err)
	}
	if result.Narrative != FallbackNarrative {
		t.Errorf("Expected fallback narrative, got %q", result.Narrative)
	}
}

func TestProcessTurn_UnknownToolFailsInBand(t *testing.T) {
	w := newTestWorld(t)
	w.mock.Decisions = []*services.ModelDecision{
		{ToolCall: &services.ToolCall{ID: "tc_1", Name: "cast_fireball"}},
		{Narrative: "Nothing happens."},
	}

	result, err := w.gameMaster(t).ProcessTurn(context.Background(), "cast fireball", nil)
	if err != nil {
		t.Fatalf("Expected turn to complete, got error: %v", err)
	}
	if result.Narrative != "Nothing happens." {
		t.Errorf("Expected model recovery narrative, got %q", result.Narrative)
	}

	// The failure was replayed to the model in-band.
	second := w.mock.DecideCalls[1]
	last := second.Messages[len(second.Messages)-1]
	if last.Role != chat.RoleTool || !strings.Contains(last.Content, "unknown tool") {
		t.Errorf("Expected in-band tool failure, got %+v", last)
	}
}

func TestProcessTurn_HistoryIncluded(t *testing.T) {
	w := newTestWorld(t)
	w.mock.Decisions = []*services.ModelDecision{{Narrative: "Indeed."}}

	history := []chat.Message{
		{Role: chat.RolePlayer, Content: "earlier question"},
		{Role: chat.RoleCharacter, Content: "earlier answer"},
	}
	if _, err := w.gameMaster(t).ProcessTurn(context.Background(), "and then?", history); err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}

	messages := w.mock.DecideCalls[0].Messages
	var sawHistory bool
	for _, msg := range messages {
		if msg.Content == "earlier answer" {
			sawHistory = true
		}
	}
	if !sawHistory {
		t.Error("Expected history replayed in the prompt window")
	}
}

func TestProcessTurn_ConfigurableBudget(t *testing.T) {
	w := newTestWorld(t)
	w.mock.DecideFunc = func(ctx context.Context, messages []chat.Message, defs []tools.Definition) (*services.ModelDecision, error) {
		return &services.ModelDecision{ToolCall: &services.ToolCall{Name: "look_around"}}, nil
	}

	master := w.gameMaster(t, WithMaxToolCalls(2), WithLLMTimeout(5*time.Second))
	result, err := master.ProcessTurn(context.Background(), "loop", nil)
	if err != nil {
		t.Fatalf("ProcessTurn failed: %v", err)
	}
	if result.Narrative != DegradedNarrative {
		t.Errorf("Expected degraded narrative, got %q", result.Narrative)
	}
	if w.mock.CallCount() != 3 {
		t.Errorf("Expected 3 model calls with budget 2, got %d", w.mock.CallCount())
	}
}

func TestCompactFact(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "short text unchanged",
			input: "You take the brass key.",
			want:  "You take the brass key.",
		},
		{
			name:  "long text cut at sentence boundary",
			input: strings.Repeat("A word. ", 40),
			want:  strings.TrimSpace(strings.Repeat("A word. ", 20)),
		},
		{
			name:  "multibyte runes survive the cut",
			input: strings.Repeat("世", 60),
			want:  "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compactFact(tt.input)
			if !utf8.ValidString(got) {
				t.Errorf("Compacted fact is not valid UTF-8: %q", got)
			}
			if len(got) > maxFactLen+len("…") {
				t.Errorf("Compacted fact too long: %d chars", len(got))
			}
			if tt.name == "short text unchanged" && got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
			if !strings.HasSuffix(got, ".") && !strings.HasSuffix(got, "…") {
				t.Errorf("Expected sentence or ellipsis ending, got %q", got)
			}
		})
	}
}
