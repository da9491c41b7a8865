package entity

import (
	"fmt"
	"log/slog"
)

// MemoryStore keeps every entity in process memory.
type MemoryStore struct {
	entities map[string]*Entity
	order    []string // insertion order, for deterministic listings
	logger   *slog.Logger
}

// Ensure MemoryStore implements Store interface
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory entity store.
func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryStore{
		entities: make(map[string]*Entity),
		logger:   logger,
	}
}

// Load validates and inserts a batch of raw records. Records missing a
// unique_id or entity_type are skipped, as are duplicates (first record
// wins). Load never fails outright: world data is hand-authored JSON, and a
// single bad record must not take down the whole world. It returns the
// number of records loaded plus a diagnostic for every skip.
func (s *MemoryStore) Load(records []RawRecord) (int, []SkipDiagnostic) {
	loaded := 0
	var skipped []SkipDiagnostic

	for i, raw := range records {
		ent, err := parseRecord(raw)
		if err != nil {
			d := SkipDiagnostic{Index: i, Reason: err.Error()}
			if id, ok := raw["unique_id"].(string); ok {
				d.ID = id
			}
			if src, ok := raw["_source_file"].(string); ok {
				d.Source = src
			}
			s.logger.Warn("Skipping invalid entity record", "index", i, "reason", d.Reason, "source", d.Source)
			skipped = append(skipped, d)
			continue
		}

		if _, exists := s.entities[ent.UniqueID]; exists {
			d := SkipDiagnostic{Index: i, ID: ent.UniqueID, Reason: "duplicate unique_id"}
			if src, ok := raw["_source_file"].(string); ok {
				d.Source = src
			}
			s.logger.Warn("Skipping duplicate entity record", "index", i, "id", ent.UniqueID)
			skipped = append(skipped, d)
			continue
		}

		s.entities[ent.UniqueID] = ent
		s.order = append(s.order, ent.UniqueID)
		loaded++
	}

	s.logger.Info("Entity load complete", "loaded", loaded, "skipped", len(skipped))
	return loaded, skipped
}

// parseRecord validates required fields and builds an Entity. The "facts"
// object, if present, is merged into Data alongside any other authored keys.
func parseRecord(raw RawRecord) (*Entity, error) {
	id, _ := raw["unique_id"].(string)
	if id == "" {
		return nil, fmt.Errorf("missing required field unique_id")
	}

	typeStr, _ := raw["entity_type"].(string)
	if typeStr == "" {
		return nil, fmt.Errorf("missing required field entity_type")
	}
	t := Type(typeStr)
	switch t {
	case TypeCharacter, TypeItem, TypeLocation:
	default:
		return nil, fmt.Errorf("unknown entity_type %q", typeStr)
	}

	data := make(map[string]any)
	for k, v := range raw {
		switch k {
		case "unique_id", "entity_type", "portrait_ref", "facts", "_source_file":
			continue
		}
		data[k] = v
	}
	if facts, ok := raw["facts"].(map[string]any); ok {
		for k, v := range facts {
			data[k] = v
		}
	}

	portrait, _ := raw["portrait_ref"].(string)
	return &Entity{
		UniqueID:    id,
		Type:        t,
		Data:        data,
		PortraitRef: portrait,
	}, nil
}

// Get returns the entity with the given ID, or ErrNotFound.
func (s *MemoryStore) Get(id string) (*Entity, error) {
	ent, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ent, nil
}

// ListByType returns all entities of the given type, in load order.
func (s *MemoryStore) ListByType(t Type) []*Entity {
	var out []*Entity
	for _, id := range s.order {
		if e := s.entities[id]; e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// All returns every entity, in load order.
func (s *MemoryStore) All() []*Entity {
	out := make([]*Entity, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.entities[id])
	}
	return out
}

// InLocation returns all entities contained by the given ID, in load order.
func (s *MemoryStore) InLocation(locationID string) []*Entity {
	var out []*Entity
	for _, id := range s.order {
		if e := s.entities[id]; e.LocationID() == locationID {
			out = append(out, e)
		}
	}
	return out
}
