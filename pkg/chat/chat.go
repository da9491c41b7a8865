package chat

import "fmt"

// TurnRequest represents one player command submitted to the game master API.
type TurnRequest struct {
	PlayerID  string `json:"player_id"`
	Character string `json:"character,omitempty"` // NPC the player is addressing, if any
	Prompt    string `json:"prompt"`
}

// TurnResponse is returned to the caller after a full turn completes.
// Failures inside the turn surface as narrative text, never as errors here.
type TurnResponse struct {
	Response         string `json:"response"`
	ActionResult     string `json:"action_result,omitempty"`
	InventoryUpdated bool   `json:"inventory_updated"`
	Error            string `json:"error,omitempty"`
}

const (
	RolePlayer    = "player"
	RoleCharacter = "character"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message is a single entry in a conversation. The same shape is used for
// durable per-character history and for the message window sent to the LLM.
// ToolName and ToolCallID are set only on the transient tool-call and
// tool-result messages exchanged within one turn; gateways use them to
// reconstruct provider-specific tool message formats.
type Message struct {
	Role       string `json:"role"`
	Content    string `json:"content"`
	ToolName   string `json:"tool_name,omitempty"`
	ToolCallID string `json:"tool_call_id,omitempty"`
}

func (tr *TurnRequest) Validate() error {
	if tr.PlayerID == "" {
		return fmt.Errorf("player_id cannot be empty")
	}
	if tr.Prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}
	return nil
}
