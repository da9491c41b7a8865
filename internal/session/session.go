package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/jmercer/gamemaster/internal/gm"
)

// ErrTurnInProgress is returned when a turn is already running for the
// requested character. Callers should surface it as a conflict rather
// than queueing.
var ErrTurnInProgress = errors.New("a turn is already in progress for this character")

// Factory builds the game master for a new session. It is called once
// per character, on first acquire.
type Factory func(character string) (*gm.GameMaster, error)

// Session is one character's live game, owned by exactly one in-flight
// turn at a time.
type Session struct {
	Character string
	GM        *gm.GameMaster

	mu   sync.Mutex
	busy bool
}

func (s *Session) tryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy {
		return false
	}
	s.busy = true
	return true
}

func (s *Session) release() {
	s.mu.Lock()
	s.busy = false
	s.mu.Unlock()
}

// Manager hands out sessions keyed by character name, creating them
// lazily and rejecting concurrent turns against the same character.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	factory  Factory
	logger   *slog.Logger
}

func NewManager(factory Factory, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		factory:  factory,
		logger:   logger,
	}
}

// Acquire returns the character's session with exclusive turn ownership.
// The caller must Release it when the turn completes. A second Acquire
// while the first is held fails with ErrTurnInProgress.
func (m *Manager) Acquire(character string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[character]
	if !ok {
		master, err := m.factory(character)
		if err != nil {
			m.mu.Unlock()
			return nil, err
		}
		s = &Session{Character: character, GM: master}
		m.sessions[character] = s
		m.logger.Info("Session created", "character", character)
	}
	m.mu.Unlock()

	if !s.tryAcquire() {
		return nil, ErrTurnInProgress
	}
	return s, nil
}

// Release returns turn ownership of the session.
func (m *Manager) Release(s *Session) {
	s.release()
}
