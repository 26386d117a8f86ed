package ecs

// EventKind names a structural change.
type EventKind uint8

const (
	EntityCreated EventKind = iota + 1
	EntityDestroyed
	ComponentAdded
	ComponentRemoved
	ArchetypeCreated
)

func (k EventKind) String() string {
	switch k {
	case EntityCreated:
		return "EntityCreated"
	case EntityDestroyed:
		return "EntityDestroyed"
	case ComponentAdded:
		return "ComponentAdded"
	case ComponentRemoved:
		return "ComponentRemoved"
	case ArchetypeCreated:
		return "ArchetypeCreated"
	default:
		return "Unknown"
	}
}

// Event records one structural change. Archetype is where the entity ended up
// (or the new archetype for ArchetypeCreated, or the archetype it left for
// EntityDestroyed).
type Event struct {
	Kind      EventKind
	Entity    EntityId
	Component ComponentId
	Archetype ArchetypeId
}

// Subscribe registers fn to receive queued events on DispatchEvents. Events
// are only queued while at least one subscriber exists.
func (w *World) Subscribe(fn func(Event)) {
	w.subscribers = append(w.subscribers, fn)
}

// PendingEvents returns the number of queued events.
func (w *World) PendingEvents() int {
	return len(w.events)
}

// DispatchEvents delivers the queued events to every subscriber, in order,
// and returns how many were delivered. Events raised by subscribers are
// queued for the next dispatch. Call it after the mutation phase of a tick.
func (w *World) DispatchEvents() int {
	pending := w.events
	w.events = nil
	for _, ev := range pending {
		for _, fn := range w.subscribers {
			fn(ev)
		}
	}
	return len(pending)
}

func (w *World) emit(ev Event) {
	if len(w.subscribers) == 0 {
		return
	}
	w.events = append(w.events, ev)
}
