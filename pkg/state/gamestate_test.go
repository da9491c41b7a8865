package state

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/jmercer/gamemaster/pkg/entity"
)

func testStore(t *testing.T) *entity.MemoryStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := entity.NewMemoryStore(logger)

	loaded, skipped := store.Load([]entity.RawRecord{
		{"unique_id": "tavern", "entity_type": "location", "name": "The Rusty Flagon"},
		{"unique_id": "cellar", "entity_type": "location", "name": "Cellar"},
		{"unique_id": "player_01", "entity_type": "character", "name": "Adventurer", "location_id": "tavern"},
		{"unique_id": "brass_key", "entity_type": "item", "name": "brass key", "location_id": "tavern"},
		{"unique_id": "dagger", "entity_type": "item", "name": "rusty dagger", "location_id": "player_01"},
	})
	if loaded != 5 || len(skipped) != 0 {
		t.Fatalf("Unexpected load result: %d loaded, %v skipped", loaded, skipped)
	}
	return store
}

func TestGameState_Accessors(t *testing.T) {
	store := testStore(t)
	gs := NewGameState(store, "player_01", "tavern")

	player, err := gs.PlayerEntity()
	if err != nil {
		t.Fatalf("PlayerEntity failed: %v", err)
	}
	if player.UniqueID != "player_01" {
		t.Errorf("Expected player_01, got %s", player.UniqueID)
	}

	loc, err := gs.CurrentLocation()
	if err != nil {
		t.Fatalf("CurrentLocation failed: %v", err)
	}
	if loc.Name() != "The Rusty Flagon" {
		t.Errorf("Expected The Rusty Flagon, got %s", loc.Name())
	}

	inv := gs.Inventory()
	if len(inv) != 1 || inv[0].UniqueID != "dagger" {
		t.Errorf("Expected [dagger], got %v", inv)
	}
}

func TestGameState_Surroundings(t *testing.T) {
	store := testStore(t)
	gs := NewGameState(store, "player_01", "tavern")

	around := gs.Surroundings()
	if len(around) != 1 || around[0].UniqueID != "brass_key" {
		t.Errorf("Expected [brass_key] (player excluded), got %v", around)
	}
}

func TestGameState_MovePlayerTo(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantErr   bool
		wantFinal string
	}{
		{
			name:      "valid location",
			target:    "cellar",
			wantFinal: "cellar",
		},
		{
			name:      "nonexistent target",
			target:    "moon",
			wantErr:   true,
			wantFinal: "tavern",
		},
		{
			name:      "target is not a location",
			target:    "brass_key",
			wantErr:   true,
			wantFinal: "tavern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(t)
			gs := NewGameState(store, "player_01", "tavern")

			err := gs.MovePlayerTo(tt.target)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTarget) {
					t.Errorf("Expected ErrInvalidTarget, got %v", err)
				}
			} else if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if gs.CurrentLocationID != tt.wantFinal {
				t.Errorf("Expected location %q, got %q", tt.wantFinal, gs.CurrentLocationID)
			}
		})
	}
}

func TestGameState_MoveUpdatesPlayerEntity(t *testing.T) {
	store := testStore(t)
	gs := NewGameState(store, "player_01", "tavern")

	if err := gs.MovePlayerTo("cellar"); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	player, _ := gs.PlayerEntity()
	if player.LocationID() != "cellar" {
		t.Errorf("Expected player entity relocated to cellar, got %q", player.LocationID())
	}
	// Carried items follow the player implicitly: their container is the
	// player, not the room.
	inv := gs.Inventory()
	if len(inv) != 1 {
		t.Errorf("Expected inventory unchanged after move, got %v", inv)
	}
}
