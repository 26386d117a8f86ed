package ecs

import "fmt"

// EntityId is a generational handle: the generation lives in the upper 32 bits
// and the slot index in the lower 32 bits. Generations start at 1, so the zero
// EntityId never names a live entity.
type EntityId uint64

// NewEntityId creates an EntityId from a slot index and generation
func NewEntityId(index uint32, generation uint32) EntityId {
	return EntityId(uint64(generation)<<32 | uint64(index))
}

// Index extracts the slot index from the entity ID
func (e EntityId) Index() uint32 {
	return uint32(e & 0xFFFFFFFF)
}

// Generation extracts the generation from the entity ID
func (e EntityId) Generation() uint32 {
	return uint32(e >> 32)
}

func (e EntityId) String() string {
	return fmt.Sprintf("%d@%d", e.Index(), e.Generation())
}

type entityRecord struct {
	archetype  ArchetypeId
	row        int
	generation uint32
	alive      bool
}

// entityTable maps handles to their current (archetype, row).
type entityTable struct {
	records []entityRecord
	free    []uint32
	alive   int
}

func (t *entityTable) alloc() EntityId {
	t.alive++
	if n := len(t.free); n > 0 {
		index := t.free[n-1]
		t.free = t.free[:n-1]
		rec := &t.records[index]
		rec.alive = true
		return NewEntityId(index, rec.generation)
	}

	index := uint32(len(t.records))
	t.records = append(t.records, entityRecord{generation: 1, alive: true})
	return NewEntityId(index, 1)
}

func (t *entityTable) release(e EntityId) {
	rec := &t.records[e.Index()]
	rec.alive = false
	rec.generation++
	if rec.generation == 0 {
		rec.generation = 1
	}
	t.free = append(t.free, e.Index())
	t.alive--
}

// resolve returns the record for a live handle, or nil if the handle is
// stale or was never issued.
func (t *entityTable) resolve(e EntityId) *entityRecord {
	index := e.Index()
	if int(index) >= len(t.records) {
		return nil
	}
	rec := &t.records[index]
	if !rec.alive || rec.generation != e.Generation() {
		return nil
	}
	return rec
}

func (t *entityTable) place(e EntityId, archetype ArchetypeId, row int) {
	rec := &t.records[e.Index()]
	rec.archetype = archetype
	rec.row = row
}

// EntityRef bundles a world and a handle for the non-generic entity operations.
type EntityRef struct {
	Id    EntityId
	World *World
}

// Alive reports whether the referenced entity still exists.
func (r EntityRef) Alive() bool {
	return r.World != nil && r.World.Alive(r.Id)
}

// Has reports whether the entity carries the component id.
func (r EntityRef) Has(id ComponentId) bool {
	return r.World.Has(r.Id, id)
}

// Add attaches a component value to the entity.
func (r EntityRef) Add(component any) error {
	return r.World.Add(r.Id, component)
}

// Remove detaches the component id from the entity.
func (r EntityRef) Remove(id ComponentId) error {
	return r.World.Remove(r.Id, id)
}

// Get returns a pointer to the entity's component as an any.
func (r EntityRef) Get(id ComponentId) (any, error) {
	return r.World.Get(r.Id, id)
}

// Despawn destroys the entity.
func (r EntityRef) Despawn() error {
	return r.World.Despawn(r.Id)
}

// Archetype returns the archetype currently holding the entity.
func (r EntityRef) Archetype() *Archetype {
	a, _, err := r.World.Location(r.Id)
	if err != nil {
		return nil
	}
	return a
}
