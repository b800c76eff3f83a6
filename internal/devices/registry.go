package devices

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strings"
	"sync"

	"alexa-gateway/internal/skill"
)

// ErrInvalidMessage is returned for state messages without an entity id.
var ErrInvalidMessage = errors.New("devices: invalid state message")

// StateMessage is the JSON published on the state topics.
type StateMessage struct {
	EntityID   string         `json:"entity_id"`
	State      string         `json:"state"`
	Attributes map[string]any `json:"attributes,omitempty"`
	Removed    bool           `json:"removed,omitempty"`
}

// Registry holds the latest known state of every entity. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]skill.Entity
}

func NewRegistry() *Registry {
	return &Registry{entities: make(map[string]skill.Entity)}
}

// Entity returns a copy of the stored entity.
func (r *Registry) Entity(entityID string) (skill.Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entities[entityID]
	if !ok {
		return skill.Entity{}, false
	}
	e.Attributes = maps.Clone(e.Attributes)
	return e, true
}

// Entities returns every entity ordered by entity id.
func (r *Registry) Entities() []skill.Entity {
	r.mu.RLock()
	entities := make([]skill.Entity, 0, len(r.entities))
	for _, e := range r.entities {
		e.Attributes = maps.Clone(e.Attributes)
		entities = append(entities, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(entities, func(a, b skill.Entity) int {
		return strings.Compare(a.EntityID, b.EntityID)
	})
	return entities
}

// Len returns the number of known entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// Apply stores msg and reports whether the entity's state or attributes
// differ from what was known. A new entity counts as changed; removing an
// unknown entity does not.
func (r *Registry) Apply(msg StateMessage) (bool, error) {
	if msg.EntityID == "" {
		return false, ErrInvalidMessage
	}
	if !strings.Contains(msg.EntityID, ".") {
		return false, fmt.Errorf("%w: entity id %q is not <domain>.<object_id>", ErrInvalidMessage, msg.EntityID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, known := r.entities[msg.EntityID]
	if msg.Removed {
		delete(r.entities, msg.EntityID)
		return known, nil
	}

	next := skill.Entity{
		EntityID:   msg.EntityID,
		State:      msg.State,
		Attributes: maps.Clone(msg.Attributes),
	}
	r.entities[msg.EntityID] = next

	if !known {
		return true, nil
	}
	return current.State != next.State || !sameAttributes(current.Attributes, next.Attributes), nil
}

func sameAttributes(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
