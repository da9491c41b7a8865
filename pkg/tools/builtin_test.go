package tools

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/jmercer/gamemaster/pkg/entity"
	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/state"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := entity.NewMemoryStore(logger)

	loaded, skipped := store.Load([]entity.RawRecord{
		{"unique_id": "tavern", "entity_type": "location", "name": "The Rusty Flagon",
			"description": "A smoky tavern with a low ceiling."},
		{"unique_id": "cellar", "entity_type": "location", "name": "Cellar",
			"description": "A cold stone cellar."},
		{"unique_id": "player_01", "entity_type": "character", "name": "Adventurer", "location_id": "tavern"},
		{"unique_id": "brass_key", "entity_type": "item", "name": "brass key", "location_id": "tavern",
			"facts": map[string]any{"purpose": "It opens the cellar door."}},
		{"unique_id": "cellar_door", "entity_type": "item", "name": "cellar door", "location_id": "tavern",
			"locked": true},
		{"unique_id": "barkeep", "entity_type": "character", "name": "Mira", "location_id": "tavern"},
	})
	if skipped != nil {
		t.Fatalf("Unexpected skips: %v", skipped)
	}
	if loaded != 6 {
		t.Fatalf("Expected 6 loaded, got %d", loaded)
	}

	// The key unlocks the door.
	key, _ := store.Get("brass_key")
	key.Data["unlocks"] = "cellar_door"

	return &Context{
		State:    state.NewGameState(store, "player_01", "tavern"),
		Store:    store,
		Ledger:   knowledge.NewLedger(),
		Resolver: NewResolver(0),
		Logger:   logger,
	}
}

func execute(t *testing.T, tc *Context, name string, args map[string]any) Result {
	t.Helper()
	tool, ok := NewDefaultRegistry().Get(name)
	if !ok {
		t.Fatalf("Tool %s not registered", name)
	}
	return tool.Execute(tc, args)
}

func TestRegistry_Definitions(t *testing.T) {
	defs := NewDefaultRegistry().Definitions()
	want := []string{"look_around", "examine", "move", "take", "give", "give_money", "talk", "use_item", "roll_dice"}
	if len(defs) != len(want) {
		t.Fatalf("Expected %d tools, got %d", len(want), len(defs))
	}
	for i, name := range want {
		if defs[i].Name != name {
			t.Errorf("Expected tool %d to be %s, got %s", i, name, defs[i].Name)
		}
	}
}

func TestLookAround(t *testing.T) {
	tc := testContext(t)
	result := execute(t, tc, "look_around", nil)

	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !strings.Contains(result.Narrative, "smoky tavern") {
		t.Errorf("Expected location description, got %q", result.Narrative)
	}
	if result.StateChanged {
		t.Error("look_around must not change state")
	}

	// First sighting records an initial perception for each visible entity.
	if !tc.Ledger.Knows("player_01", "brass_key") {
		t.Error("Expected first-glance fact about brass_key")
	}
	if !tc.Ledger.Knows("player_01", "barkeep") {
		t.Error("Expected first-glance fact about barkeep")
	}
}

func TestExamine_FuzzyMatch(t *testing.T) {
	tc := testContext(t)
	result := execute(t, tc, "examine", map[string]any{"target": "the brass key"})

	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if result.Narrative == "" {
		t.Error("Expected non-empty narrative")
	}
	if result.StateChanged {
		t.Error("examine must not change world state")
	}
	if !strings.Contains(result.Narrative, "opens the cellar door") {
		t.Errorf("Expected revealed purpose fact, got %q", result.Narrative)
	}

	facts := tc.Ledger.FactsAbout("player_01", "brass_key")
	if len(facts) == 0 {
		t.Error("Expected examine to record facts in the ledger")
	}
}

func TestExamine_UnknownTarget(t *testing.T) {
	tc := testContext(t)
	result := execute(t, tc, "examine", map[string]any{"target": "purple elephant"})

	if result.Err == "" {
		t.Error("Expected in-band error for unknown target")
	}
	if result.StateChanged {
		t.Error("Failed examine must not change state")
	}
}

func TestTake_ThenTakeAgainFails(t *testing.T) {
	tc := testContext(t)

	result := execute(t, tc, "take", map[string]any{"item": "brass_key"})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !result.StateChanged || !result.InventoryChanged {
		t.Error("Expected take to flag state and inventory changes")
	}

	inv := tc.State.Inventory()
	if len(inv) != 1 || inv[0].UniqueID != "brass_key" {
		t.Errorf("Expected brass_key in inventory, got %v", inv)
	}

	// The item is no longer in the room, so a second take fails in-band.
	result = execute(t, tc, "take", map[string]any{"item": "brass_key"})
	if result.Err == "" {
		t.Error("Expected second take to fail")
	}
	if result.StateChanged {
		t.Error("Failed take must not change state")
	}
}

func TestTake_NonItem(t *testing.T) {
	tc := testContext(t)
	result := execute(t, tc, "take", map[string]any{"item": "Mira"})
	if result.Err == "" {
		t.Error("Expected taking a character to fail in-band")
	}
}

func TestMove(t *testing.T) {
	tc := testContext(t)

	result := execute(t, tc, "move", map[string]any{"destination": "the cellar"})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !result.StateChanged {
		t.Error("Expected move to change state")
	}
	if tc.State.CurrentLocationID != "cellar" {
		t.Errorf("Expected player in cellar, got %s", tc.State.CurrentLocationID)
	}

	result = execute(t, tc, "move", map[string]any{"destination": "narnia"})
	if result.Err == "" {
		t.Error("Expected unknown destination to fail in-band")
	}
	if tc.State.CurrentLocationID != "cellar" {
		t.Error("Failed move must leave location unchanged")
	}
}

func TestGive(t *testing.T) {
	tc := testContext(t)
	execute(t, tc, "take", map[string]any{"item": "brass key"})

	result := execute(t, tc, "give", map[string]any{"item": "brass key", "recipient": "Mira"})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !result.InventoryChanged {
		t.Error("Expected give to flag inventory change")
	}

	key, _ := tc.Store.Get("brass_key")
	if key.LocationID() != "barkeep" {
		t.Errorf("Expected key held by barkeep, got %q", key.LocationID())
	}
	// Receiving an item is itself knowledge.
	if !tc.Ledger.Knows("barkeep", "brass_key") {
		t.Error("Expected recipient to learn about the item")
	}

	// Giving an item you do not carry fails in-band.
	result = execute(t, tc, "give", map[string]any{"item": "brass key", "recipient": "Mira"})
	if result.Err == "" {
		t.Error("Expected give without possession to fail")
	}
}

func TestGiveMoney(t *testing.T) {
	tc := testContext(t)
	player, _ := tc.Store.Get("player_01")
	player.Data["money"] = float64(10) // world files decode numbers as float64

	result := execute(t, tc, "give_money", map[string]any{"recipient": "Mira", "amount": float64(4)})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !result.StateChanged || !result.InventoryChanged {
		t.Error("Expected give_money to flag state and inventory change")
	}
	if result.SubjectID != "barkeep" {
		t.Errorf("Expected subject barkeep, got %q", result.SubjectID)
	}
	if !strings.Contains(result.Narrative, "4 gold") {
		t.Errorf("Expected amount in narrative, got %q", result.Narrative)
	}

	if got := player.Data["money"]; got != 6 {
		t.Errorf("Expected player left with 6 gold, got %v", got)
	}
	barkeep, _ := tc.Store.Get("barkeep")
	if got := barkeep.Data["money"]; got != 4 {
		t.Errorf("Expected barkeep holding 4 gold, got %v", got)
	}
	// Receiving gold is itself knowledge.
	if !tc.Ledger.Knows("barkeep", "player_01") {
		t.Error("Expected recipient to learn about the giver")
	}
}

func TestGiveMoney_Failures(t *testing.T) {
	tests := []struct {
		name   string
		purse  any
		args   map[string]any
		errHas string
	}{
		{"insufficient funds", float64(3),
			map[string]any{"recipient": "Mira", "amount": float64(5)}, "does not have 5 gold"},
		{"zero amount", float64(10),
			map[string]any{"recipient": "Mira", "amount": float64(0)}, "zero or negative"},
		{"negative amount", float64(10),
			map[string]any{"recipient": "Mira", "amount": float64(-2)}, "zero or negative"},
		{"fractional amount", float64(10),
			map[string]any{"recipient": "Mira", "amount": 2.5}, "whole-number"},
		{"unknown recipient", float64(10),
			map[string]any{"recipient": "the ghost", "amount": float64(1)}, "no one called"},
		{"missing amount", float64(10),
			map[string]any{"recipient": "Mira"}, "whole-number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := testContext(t)
			player, _ := tc.Store.Get("player_01")
			player.Data["money"] = tt.purse

			result := execute(t, tc, "give_money", tt.args)
			if result.Err == "" {
				t.Fatal("Expected in-band failure")
			}
			if !strings.Contains(result.Err, tt.errHas) {
				t.Errorf("Expected error containing %q, got %q", tt.errHas, result.Err)
			}
			if got := player.Data["money"]; got != tt.purse {
				t.Errorf("Expected purse untouched at %v, got %v", tt.purse, got)
			}
		})
	}
}

func TestTalk(t *testing.T) {
	tc := testContext(t)
	tc.Ledger.RecordFact("barkeep", "brass_key", "Mira polished that key for years.")

	result := execute(t, tc, "talk", map[string]any{"target": "Mira", "topic": "brass key"})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !strings.Contains(result.Narrative, "polished that key") {
		t.Errorf("Expected Mira's knowledge in narrative, got %q", result.Narrative)
	}

	// A topic the speaker knows nothing about yields an honest blank.
	result = execute(t, tc, "talk", map[string]any{"target": "Mira", "topic": "cellar door"})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !strings.Contains(result.Narrative, "knows nothing") {
		t.Errorf("Expected no-knowledge response, got %q", result.Narrative)
	}

	result = execute(t, tc, "talk", map[string]any{"target": "the ghost"})
	if result.Err == "" {
		t.Error("Expected talking to an absent character to fail in-band")
	}
}

func TestUseItem_Unlock(t *testing.T) {
	tc := testContext(t)
	execute(t, tc, "take", map[string]any{"item": "brass key"})

	result := execute(t, tc, "use_item", map[string]any{"item": "brass key", "target": "cellar door"})
	if result.Err != "" {
		t.Fatalf("Unexpected error: %s", result.Err)
	}
	if !result.StateChanged {
		t.Error("Expected unlock to change state")
	}

	door, _ := tc.Store.Get("cellar_door")
	if locked, _ := door.Data["locked"].(bool); locked {
		t.Error("Expected door unlocked")
	}
}

func TestUseItem_NotCarried(t *testing.T) {
	tc := testContext(t)
	result := execute(t, tc, "use_item", map[string]any{"item": "brass key"})
	if result.Err == "" {
		t.Error("Expected using an item not carried to fail in-band")
	}
}

func TestRollDice(t *testing.T) {
	tc := testContext(t)

	for i := 0; i < 20; i++ {
		result := execute(t, tc, "roll_dice", map[string]any{"notation": "2d6+1"})
		if result.Err != "" {
			t.Fatalf("Unexpected error: %s", result.Err)
		}
		if result.StateChanged {
			t.Error("roll_dice must not change state")
		}
	}

	result := execute(t, tc, "roll_dice", map[string]any{"notation": "banana"})
	if result.Err == "" {
		t.Error("Expected invalid notation to fail in-band")
	}
}

func TestRollNotation_Bounds(t *testing.T) {
	tests := []struct {
		notation string
		wantErr  bool
		min, max int
	}{
		{notation: "d20", min: 1, max: 20},
		{notation: "2d6", min: 2, max: 12},
		{notation: "2d6+3", min: 5, max: 15},
		{notation: "1d4-1", min: 0, max: 3},
		{notation: "0d6", wantErr: true},
		{notation: "2d1", wantErr: true},
		{notation: "9999d6", wantErr: true},
		{notation: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.notation, func(t *testing.T) {
			total, _, err := rollNotation(tt.notation)
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error for %q", tt.notation)
				}
				return
			}
			if err != nil {
				t.Fatalf("rollNotation(%q) failed: %v", tt.notation, err)
			}
			if total < tt.min || total > tt.max {
				t.Errorf("rollNotation(%q) = %d, outside [%d, %d]", tt.notation, total, tt.min, tt.max)
			}
		})
	}
}
