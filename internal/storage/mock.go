package storage

import (
	"context"
	"sync"

	"github.com/jmercer/gamemaster/pkg/chat"
)

// MockStorage is a mock implementation of Storage for testing
type MockStorage struct {
	mu        sync.RWMutex
	histories map[string][]chat.Message
	pingError error

	// Optional error injections
	AppendError error
	GetError    error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		histories: make(map[string][]chat.Message),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// AppendHistory mocks appending transcript messages
func (m *MockStorage) AppendHistory(ctx context.Context, character string, messages ...chat.Message) error {
	if m.AppendError != nil {
		return m.AppendError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histories[character] = append(m.histories[character], messages...)
	return nil
}

// GetHistory mocks reading a transcript
func (m *MockStorage) GetHistory(ctx context.Context, character string) ([]chat.Message, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]chat.Message, len(m.histories[character]))
	copy(out, m.histories[character])
	return out, nil
}

// ClearHistory mocks deleting a transcript
func (m *MockStorage) ClearHistory(ctx context.Context, character string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.histories, character)
	return nil
}
