// Package prompts assembles the message window sent to the language model
// for each turn: system instructions, a compact world-state snapshot, the
// knowledge the player has accumulated, and recent conversation history.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmercer/gamemaster/pkg/knowledge"
	"github.com/jmercer/gamemaster/pkg/state"
)

// SystemPrompt is the standing instruction set for the game-master model.
const SystemPrompt = `You are the game master of a text-based interactive fiction game. The player types commands in natural language; you interpret their intent and act on the world only through the tools provided.

Rules:
- When the player's command maps to a game action, call the matching tool rather than inventing an outcome.
- Narrate outcomes in second person, staying concise and evocative.
- Only reveal information the player has actually learned. The state snapshot lists what they know.
- If a tool reports a failure, recover in-narrative: ask a clarifying question or describe why the attempt failed. Never show raw errors.
- Do not speak for the player or decide their actions.`

// StateSnapshot is the compact world view serialized into the prompt.
type StateSnapshot struct {
	Location    string              `json:"location"`
	Description string              `json:"description,omitempty"`
	Inventory   []string            `json:"inventory"`
	Visible     []string            `json:"visible_entities"`
	Knowledge   map[string][]string `json:"player_knowledge,omitempty"`
}

// BuildSnapshot derives a snapshot from the current game state and what the
// player knows. Knowledge is scoped to visible and carried entities so the
// model cannot truthfully reveal more than the player has learned.
func BuildSnapshot(gs *state.GameState, ledger *knowledge.Ledger) (*StateSnapshot, error) {
	loc, err := gs.CurrentLocation()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve current location: %w", err)
	}

	snap := &StateSnapshot{
		Location:    loc.Name(),
		Description: loc.Description(),
		Inventory:   []string{},
		Visible:     []string{},
		Knowledge:   make(map[string][]string),
	}

	for _, item := range gs.Inventory() {
		snap.Inventory = append(snap.Inventory, item.Name())
		if facts := ledger.FactsAbout(gs.PlayerID, item.UniqueID); len(facts) > 0 {
			snap.Knowledge[item.Name()] = facts
		}
	}
	for _, e := range gs.Surroundings() {
		snap.Visible = append(snap.Visible, e.Name())
		if facts := ledger.FactsAbout(gs.PlayerID, e.UniqueID); len(facts) > 0 {
			snap.Knowledge[e.Name()] = facts
		}
	}
	return snap, nil
}

// StatePrompt renders the snapshot as a system message body.
func StatePrompt(gs *state.GameState, ledger *knowledge.Ledger) (string, error) {
	snap, err := BuildSnapshot(gs, ledger)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal state snapshot: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Current world state, as the player perceives it:\n\n")
	sb.Write(data)
	return sb.String(), nil
}
