package services

import (
	"context"
	"sync"

	"github.com/jmercer/gamemaster/pkg/chat"
	"github.com/jmercer/gamemaster/pkg/tools"
)

// MockLLMService is a mock implementation of LLMService for testing.
type MockLLMService struct {
	InitModelFunc func(ctx context.Context, modelName string) error
	DecideFunc    func(ctx context.Context, messages []chat.Message, toolDefs []tools.Definition) (*ModelDecision, error)

	// Scripted decisions returned in order when DecideFunc is nil. Once
	// exhausted, Decide returns a plain narrative.
	Decisions []*ModelDecision

	// Track calls for testing
	InitModelCalls []string
	DecideCalls    []DecideCall

	mu sync.Mutex // protects all fields above
}

type DecideCall struct {
	Messages []chat.Message
	ToolDefs []tools.Definition
}

// Ensure MockLLMService implements LLMService interface
var _ LLMService = (*MockLLMService)(nil)

// NewMockLLMService creates a new mock model gateway.
func NewMockLLMService() *MockLLMService {
	return &MockLLMService{
		InitModelCalls: make([]string, 0),
		DecideCalls:    make([]DecideCall, 0),
	}
}

// InitModel mocks model initialization.
func (m *MockLLMService) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// Decide mocks a model decision.
func (m *MockLLMService) Decide(ctx context.Context, messages []chat.Message, toolDefs []tools.Definition) (*ModelDecision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DecideCalls = append(m.DecideCalls, DecideCall{Messages: messages, ToolDefs: toolDefs})

	if m.DecideFunc != nil {
		return m.DecideFunc(ctx, messages, toolDefs)
	}

	if idx := len(m.DecideCalls) - 1; idx < len(m.Decisions) {
		return m.Decisions[idx], nil
	}
	return &ModelDecision{Narrative: "The narrator pauses, then carries on with the story."}, nil
}

// CallCount returns how many Decide calls were made.
func (m *MockLLMService) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.DecideCalls)
}
