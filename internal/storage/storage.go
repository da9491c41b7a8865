package storage

import (
	"context"

	"github.com/jmercer/gamemaster/pkg/chat"
)

// Storage persists per-character conversation history across sessions.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// History operations, keyed by character name
	AppendHistory(ctx context.Context, character string, messages ...chat.Message) error
	GetHistory(ctx context.Context, character string) ([]chat.Message, error)
	ClearHistory(ctx context.Context, character string) error
}
