package state

import (
	"errors"
	"fmt"

	"github.com/jmercer/gamemaster/pkg/entity"
)

// ErrInvalidTarget is returned when a state mutation names an entity that
// does not exist or has the wrong type for the operation.
var ErrInvalidTarget = errors.New("invalid target")

// GameState is the dynamic state of one player session: who the player is
// and where they are. Everything else is derived from the entity store.
// All mutation funnels through tool executors so there is a single audit
// point for world changes.
type GameState struct {
	PlayerID          string `json:"player_id"`
	CurrentLocationID string `json:"current_location_id"`

	store entity.Store
}

// NewGameState creates a session state for the given player, anchored to a
// starting location. The store reference is weak: the state never owns
// entity lifetime.
func NewGameState(store entity.Store, playerID, startLocationID string) *GameState {
	return &GameState{
		PlayerID:          playerID,
		CurrentLocationID: startLocationID,
		store:             store,
	}
}

// PlayerEntity returns the player's entity record.
func (gs *GameState) PlayerEntity() (*entity.Entity, error) {
	return gs.store.Get(gs.PlayerID)
}

// CurrentLocation returns the entity record for the player's location.
func (gs *GameState) CurrentLocation() (*entity.Entity, error) {
	return gs.store.Get(gs.CurrentLocationID)
}

// Inventory returns the items the player is carrying. An item is carried
// when its container is the player.
func (gs *GameState) Inventory() []*entity.Entity {
	var items []*entity.Entity
	for _, e := range gs.store.InLocation(gs.PlayerID) {
		if e.Type == entity.TypeItem {
			items = append(items, e)
		}
	}
	return items
}

// Surroundings returns every entity in the player's current location,
// excluding the player.
func (gs *GameState) Surroundings() []*entity.Entity {
	var out []*entity.Entity
	for _, e := range gs.store.InLocation(gs.CurrentLocationID) {
		if e.UniqueID == gs.PlayerID {
			continue
		}
		out = append(out, e)
	}
	return out
}

// MovePlayerTo relocates the player. The target must exist and be a
// location; otherwise the move fails with ErrInvalidTarget and the current
// location is unchanged.
func (gs *GameState) MovePlayerTo(locationID string) error {
	target, err := gs.store.Get(locationID)
	if err != nil {
		return fmt.Errorf("%w: no such entity %q", ErrInvalidTarget, locationID)
	}
	if target.Type != entity.TypeLocation {
		return fmt.Errorf("%w: %q is a %s, not a location", ErrInvalidTarget, locationID, target.Type)
	}

	gs.CurrentLocationID = locationID
	if player, err := gs.PlayerEntity(); err == nil {
		player.SetLocationID(locationID)
	}
	return nil
}
