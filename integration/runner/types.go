package runner

import "time"

// TestSuite defines a complete integration test scenario against a running
// API with its world data loaded.
type TestSuite struct {
	Name      string     `json:"name"`
	PlayerID  string     `json:"player_id"`
	Character string     `json:"character,omitempty"`
	Steps     []TestStep `json:"steps"`
}

// TestStep defines a single turn and its expected outcomes
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Prompt       string       `json:"prompt"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Response analysis
	ResponseContains    []string `json:"response_contains,omitempty"`
	ResponseNotContains []string `json:"response_not_contains,omitempty"`
	ResponseRegex       string   `json:"response_regex,omitempty"`
	ResponseMinLength   *int     `json:"response_min_length,omitempty"`

	// Turn outcome flags
	InventoryUpdated *bool `json:"inventory_updated,omitempty"`
	ActionPerformed  *bool `json:"action_performed,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName     string
	StepName     string
	Success      bool
	Error        error
	Duration     time.Duration
	ResponseText string
}
