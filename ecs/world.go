package ecs

import (
	"reflect"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/kamstrup/intmap"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// World is the main ECS storage: it owns the archetype graph, the entity
// table and the query cache. A World is not safe for concurrent structural
// mutation; see Group.ForEachArchetypeParallel for the read-only fan-out.
type World struct {
	id          uuid.UUID
	registry    *ComponentRegistry
	logger      *zap.Logger
	graph       *archetypeGraph
	entities    entityTable
	groups      *intmap.Map[uint64, []*Group]
	queryMu     sync.Mutex
	singletons  map[reflect.Type]*singletonEntry
	subscribers []func(Event)
	events      []Event
}

// Option configures a World.
type Option func(*World)

// WithLogger routes world diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// WithInitialCapacity preallocates the entity table for n entities.
func WithInitialCapacity(n int) Option {
	return func(w *World) {
		w.entities.records = make([]entityRecord, 0, n)
	}
}

// NewWorld creates a new ECS world with the given component registry
func NewWorld(registry *ComponentRegistry, opts ...Option) *World {
	w := &World{
		id:         uuid.New(),
		registry:   registry,
		logger:     zap.NewNop(),
		groups:     intmap.New[uint64, []*Group](64),
		singletons: make(map[reflect.Type]*singletonEntry),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With(zap.Stringer("world", w.id))

	w.graph = newArchetypeGraph(registry, w.logger)
	w.graph.onCreate = func(a *Archetype) {
		w.emit(Event{Kind: ArchetypeCreated, Archetype: a.id})
	}
	return w
}

// ID returns the world's unique identifier, used to tell worlds apart in logs.
func (w *World) ID() uuid.UUID {
	return w.id
}

// Registry returns the component registry the world was built with.
func (w *World) Registry() *ComponentRegistry {
	return w.registry
}

// Logger returns the world's logger.
func (w *World) Logger() *zap.Logger {
	return w.logger
}

// Len returns the number of live entities.
func (w *World) Len() int {
	return w.entities.alive
}

// Version is the number of archetypes created so far.
func (w *World) Version() uint64 {
	return w.graph.version()
}

// Archetypes returns every archetype in creation order.
func (w *World) Archetypes() []*Archetype {
	return slices.Clone(w.graph.archetypes)
}

// Archetype returns the archetype with the given id, or nil.
func (w *World) Archetype(id ArchetypeId) *Archetype {
	return w.graph.get(id)
}

// ArchetypeFor returns the archetype for the given component set, creating it
// if needed.
func (w *World) ArchetypeFor(ids ...ComponentId) *Archetype {
	return w.graph.archetypeFor(MaskOf(ids...))
}

// Spawn creates a new entity carrying the provided component values. Values
// may be given as T or *T; each type may appear once. An entity without
// components lives in the root archetype.
func (w *World) Spawn(components ...any) (EntityId, error) {
	ids := make([]ComponentId, len(components))
	var mask Mask
	for i, component := range components {
		id, err := w.registry.idOf(component)
		if err != nil {
			return 0, err
		}
		if mask.Has(id) {
			return 0, eris.Wrapf(ErrComponentAlreadyExists, "spawn lists %s twice", w.registry.Name(id))
		}
		mask = mask.With(id)
		ids[i] = id
	}

	a := w.graph.archetypeFor(mask)
	e := w.entities.alloc()
	row := a.addEntity(e)
	w.entities.place(e, a.id, row)

	for i, component := range components {
		a.pools[a.slots[ids[i]]].setAny(row, component)
	}

	w.emit(Event{Kind: EntityCreated, Entity: e, Archetype: a.id})
	return e, nil
}

// Despawn removes the entity and releases its handle.
func (w *World) Despawn(e EntityId) error {
	rec := w.entities.resolve(e)
	if rec == nil {
		return eris.Wrapf(ErrInvalidEntity, "despawn %s", e)
	}

	a := w.graph.archetypes[rec.archetype]
	a.removeEntity(rec.row, &w.entities)
	w.entities.release(e)

	w.emit(Event{Kind: EntityDestroyed, Entity: e, Archetype: a.id})
	return nil
}

// Alive reports whether e names a live entity.
func (w *World) Alive(e EntityId) bool {
	return w.entities.resolve(e) != nil
}

// Location resolves e to its archetype and row. The row is only valid until
// the next structural change.
func (w *World) Location(e EntityId) (*Archetype, int, error) {
	rec := w.entities.resolve(e)
	if rec == nil {
		return nil, 0, eris.Wrapf(ErrInvalidEntity, "resolve %s", e)
	}
	return w.graph.archetypes[rec.archetype], rec.row, nil
}

// Ref returns an EntityRef for e.
func (w *World) Ref(e EntityId) EntityRef {
	return EntityRef{Id: e, World: w}
}

// Add attaches a component value (T or *T) to e.
func (w *World) Add(e EntityId, component any) error {
	id, err := w.registry.idOf(component)
	if err != nil {
		return err
	}
	a, row, err := w.addComponent(e, id)
	if err != nil {
		return err
	}
	a.pools[a.slots[id]].setAny(row, component)
	return nil
}

// Remove detaches component id from e, dropping its value.
func (w *World) Remove(e EntityId, id ComponentId) error {
	return w.removeComponent(e, id)
}

// Get returns a pointer to e's component id as an any.
func (w *World) Get(e EntityId, id ComponentId) (any, error) {
	a, row, err := w.Location(e)
	if err != nil {
		return nil, err
	}
	return a.Component(row, id)
}

// Has reports whether e is alive and carries component id.
func (w *World) Has(e EntityId, id ComponentId) bool {
	rec := w.entities.resolve(e)
	if rec == nil {
		return false
	}
	return w.graph.archetypes[rec.archetype].Has(id)
}

// Query returns the cached group for f, refreshed with any archetypes created
// since it was last used. Query may be called from concurrent read systems.
func (w *World) Query(f Filter) *Group {
	w.queryMu.Lock()
	defer w.queryMu.Unlock()

	key := f.hash()
	bucket, _ := w.groups.Get(key)
	for _, g := range bucket {
		if g.filter.equal(f) {
			g.refresh(w.graph)
			return g
		}
	}

	g := newGroup(f)
	g.refresh(w.graph)
	w.groups.Put(key, append(bucket, g))
	return g
}

// refreshGroups brings every cached group up to date so that read systems
// running afterwards never append to a group another reader is iterating.
func (w *World) refreshGroups() {
	w.queryMu.Lock()
	defer w.queryMu.Unlock()

	w.groups.ForEach(func(_ uint64, groups []*Group) bool {
		for _, g := range groups {
			g.refresh(w.graph)
		}
		return true
	})
}

// addComponent moves e into the archetype that also has id and returns the
// new location; the new column is zeroed.
func (w *World) addComponent(e EntityId, id ComponentId) (*Archetype, int, error) {
	rec := w.entities.resolve(e)
	if rec == nil {
		return nil, 0, eris.Wrapf(ErrInvalidEntity, "add %s to %s", w.registry.Name(id), e)
	}
	if w.registry.info(id) == nil {
		return nil, 0, eris.Wrapf(ErrComponentNotRegistered, "component id %d", id)
	}

	src := w.graph.archetypes[rec.archetype]
	if src.Has(id) {
		return nil, 0, eris.Wrapf(ErrComponentAlreadyExists, "entity %s already has %s", e, w.registry.Name(id))
	}

	dst := w.graph.withComponent(src, id)
	row := src.moveTo(rec.row, dst, &w.entities)

	w.emit(Event{Kind: ComponentAdded, Entity: e, Component: id, Archetype: dst.id})
	return dst, row, nil
}

func (w *World) removeComponent(e EntityId, id ComponentId) error {
	rec := w.entities.resolve(e)
	if rec == nil {
		return eris.Wrapf(ErrInvalidEntity, "remove %s from %s", w.registry.Name(id), e)
	}

	src := w.graph.archetypes[rec.archetype]
	if !src.Has(id) {
		return eris.Wrapf(ErrComponentNotFound, "entity %s has no %s", e, w.registry.Name(id))
	}

	dst := w.graph.withoutComponent(src, id)
	src.moveTo(rec.row, dst, &w.entities)

	w.emit(Event{Kind: ComponentRemoved, Entity: e, Component: id, Archetype: dst.id})
	return nil
}
