package entity

// Type classifies a world entity.
type Type string

const (
	TypeCharacter Type = "character"
	TypeItem      Type = "item"
	TypeLocation  Type = "location"
)

// Entity is the ground truth for a single world object. Everything stored in
// Data is objective reality; what individual characters know about an entity
// is tracked separately by the knowledge ledger.
//
// Identity is immutable for the life of a session. Data is mutated only by
// tool executors.
type Entity struct {
	UniqueID    string         `json:"unique_id"`
	Type        Type           `json:"entity_type"`
	Data        map[string]any `json:"data,omitempty"`
	PortraitRef string         `json:"portrait_ref,omitempty"`
}

// Name returns the entity's display name, falling back to its unique ID.
func (e *Entity) Name() string {
	if name, ok := e.Data["name"].(string); ok && name != "" {
		return name
	}
	return e.UniqueID
}

// Names returns every name the entity answers to: the primary name plus any
// aliases listed under the "names" data key.
func (e *Entity) Names() []string {
	names := []string{e.Name()}
	aliases, ok := e.Data["names"].([]any)
	if !ok {
		return names
	}
	for _, a := range aliases {
		if s, ok := a.(string); ok && s != "" && s != names[0] {
			names = append(names, s)
		}
	}
	return names
}

// LocationID returns the ID of the entity that contains this one. For an item
// carried by a character, this is the character's ID. Empty for locations and
// for entities with no recorded container.
func (e *Entity) LocationID() string {
	loc, _ := e.Data["location_id"].(string)
	return loc
}

// SetLocationID moves the entity into a new container.
func (e *Entity) SetLocationID(id string) {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data["location_id"] = id
}

// Description returns the entity's objective description, if authored.
func (e *Entity) Description() string {
	desc, _ := e.Data["description"].(string)
	return desc
}
