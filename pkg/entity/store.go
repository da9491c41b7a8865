package entity

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an entity ID has no record in the store.
var ErrNotFound = errors.New("entity not found")

// RawRecord is a single hand-authored entity definition, as decoded from
// world-data JSON before validation.
type RawRecord map[string]any

// SkipDiagnostic describes one record that was rejected during a load.
// Loads are best-effort: a bad record is reported, never fatal.
type SkipDiagnostic struct {
	Index  int    `json:"index"`            // position in the input sequence
	ID     string `json:"id,omitempty"`     // unique_id if one was present
	Source string `json:"source,omitempty"` // originating file, if known
	Reason string `json:"reason"`
}

func (d SkipDiagnostic) String() string {
	if d.ID != "" {
		return fmt.Sprintf("record %d (%s): %s", d.Index, d.ID, d.Reason)
	}
	return fmt.Sprintf("record %d: %s", d.Index, d.Reason)
}

// Store is the read interface over the world's entities. The in-memory
// implementation is the only one today; the interface leaves room for a
// persisted variant.
type Store interface {
	// Get returns the entity with the given ID, or ErrNotFound.
	Get(id string) (*Entity, error)

	// ListByType returns all entities of the given type.
	ListByType(t Type) []*Entity

	// All returns every entity in the store.
	All() []*Entity

	// InLocation returns all entities whose container is the given ID.
	InLocation(locationID string) []*Entity
}
