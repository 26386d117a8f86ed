package ecs

import (
	"iter"

	"github.com/rotisserie/eris"
)

// ArchetypeId is the creation index of an archetype within its world.
// Archetype 0 is the root archetype with an empty signature.
type ArchetypeId uint32

const minArchetypeCapacity = 8

// archetypeEdge caches the archetype reached by adding or removing one
// component. Values are ArchetypeId+1; zero means not yet resolved.
type archetypeEdge struct {
	add    uint32
	remove uint32
}

// Archetype stores every entity that carries exactly one set of component
// types, as parallel columns indexed by row.
type Archetype struct {
	id        ArchetypeId
	signature Signature
	entities  []EntityId
	pools     []componentPool
	slots     [MaxComponentTypes]int16
	rows      int
	edges     [MaxComponentTypes]archetypeEdge
}

// newArchetype creates an empty archetype with one pool per signature entry.
func newArchetype(id ArchetypeId, signature Signature, registry *ComponentRegistry) *Archetype {
	a := &Archetype{
		id:        id,
		signature: signature,
		pools:     make([]componentPool, len(signature.ids)),
	}

	for i := range a.slots {
		a.slots[i] = -1
	}

	for idx, cid := range signature.ids {
		a.pools[idx] = registry.newPool(cid)
		a.slots[cid] = int16(idx)
	}

	return a
}

// ID returns the archetype's creation index
func (a *Archetype) ID() ArchetypeId {
	return a.id
}

// Signature returns the component set of this archetype
func (a *Archetype) Signature() Signature {
	return a.signature
}

// Mask returns the signature bitset
func (a *Archetype) Mask() Mask {
	return a.signature.mask
}

// Len returns the number of occupied rows
func (a *Archetype) Len() int {
	return a.rows
}

// Cap returns the allocated row capacity shared by every column
func (a *Archetype) Cap() int {
	return len(a.entities)
}

// Entities returns the entity column for the occupied rows. The slice is only
// valid until the next structural change.
func (a *Archetype) Entities() []EntityId {
	return a.entities[:a.rows]
}

// Iter yields the occupied rows and the entity in each
func (a *Archetype) Iter() iter.Seq2[int, EntityId] {
	return func(yield func(int, EntityId) bool) {
		for row := 0; row < a.rows; row++ {
			if !yield(row, a.entities[row]) {
				return
			}
		}
	}
}

// Has checks if this archetype has the given component id
func (a *Archetype) Has(id ComponentId) bool {
	return a.signature.mask.Has(id)
}

// HasAll reports whether every id is present.
func (a *Archetype) HasAll(ids ...ComponentId) bool {
	return a.signature.mask.Contains(MaskOf(ids...))
}

// HasAny reports whether at least one id is present.
func (a *Archetype) HasAny(ids ...ComponentId) bool {
	return a.signature.mask.Intersects(MaskOf(ids...))
}

// HasNone reports whether no id is present.
func (a *Archetype) HasNone(ids ...ComponentId) bool {
	return !a.signature.mask.Intersects(MaskOf(ids...))
}

func (a *Archetype) pool(id ComponentId) (componentPool, error) {
	slot := a.slots[id]
	if slot < 0 {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %d not in archetype %d %s", id, a.id, a.signature)
	}
	return a.pools[slot], nil
}

// Component returns a pointer to the component id at row, as an any. Rows
// past Len are unoccupied and report ErrComponentNotFound.
func (a *Archetype) Component(row int, id ComponentId) (any, error) {
	p, err := a.pool(id)
	if err != nil {
		return nil, err
	}
	if row < 0 || row >= a.rows {
		return nil, eris.Wrapf(ErrComponentNotFound, "row %d out of range [0,%d) in archetype %d", row, a.rows, a.id)
	}
	return p.getAny(row), nil
}

// Column returns the occupied rows of the column for id as a typed slice.
// The slice aliases archetype storage and is valid until the next structural
// change in the world.
func Column[T any](a *Archetype, id ComponentId) ([]T, error) {
	p, err := a.pool(id)
	if err != nil {
		return nil, err
	}
	typed, ok := p.(*genericComponentPool[T])
	if !ok {
		return nil, eris.Wrapf(ErrComponentNotFound, "component %d in archetype %d is not of the requested type", id, a.id)
	}
	return typed.data[:a.rows], nil
}

// addEntity appends a zeroed row for e and returns it.
func (a *Archetype) addEntity(e EntityId) int {
	if a.rows == len(a.entities) {
		a.setCapacity(max(minArchetypeCapacity, 2*len(a.entities)))
	}

	row := a.rows
	a.entities[row] = e
	for _, p := range a.pools {
		p.setZero(row)
	}
	a.rows++
	return row
}

// removeEntity swap-removes row. The entity previously in the last row takes
// its place and its table record is updated before returning.
func (a *Archetype) removeEntity(row int, table *entityTable) {
	last := a.rows - 1
	if row != last {
		moved := a.entities[last]
		a.entities[row] = moved
		table.place(moved, a.id, row)
	}
	a.entities[last] = 0
	for _, p := range a.pools {
		p.swapRemove(row, last)
	}
	a.rows--

	if capacity := len(a.entities); a.rows < capacity/4 && capacity/2 >= minArchetypeCapacity {
		a.setCapacity(capacity / 2)
	}
}

// moveTo relocates the entity at row into target. Columns shared by both
// archetypes are copied, target-only columns stay zeroed, source-only columns
// are dropped. The handle is repointed after the copy and before the source
// row is released.
func (a *Archetype) moveTo(row int, target *Archetype, table *entityTable) int {
	e := a.entities[row]
	newRow := target.addEntity(e)

	for idx, cid := range a.signature.ids {
		if slot := target.slots[cid]; slot >= 0 {
			a.pools[idx].copyRow(target.pools[slot], row, newRow)
		}
	}

	table.place(e, target.id, newRow)
	a.removeEntity(row, table)
	return newRow
}

// reserve grows capacity so that n more rows fit without reallocating.
func (a *Archetype) reserve(n int) {
	need := a.rows + n
	if need <= len(a.entities) {
		return
	}
	capacity := max(minArchetypeCapacity, len(a.entities))
	for capacity < need {
		capacity *= 2
	}
	a.setCapacity(capacity)
}

func (a *Archetype) setCapacity(capacity int) {
	entities := make([]EntityId, capacity)
	copy(entities, a.entities[:a.rows])
	a.entities = entities
	for _, p := range a.pools {
		p.resize(capacity)
	}
}

func (a *Archetype) edgeAdd(id ComponentId) (ArchetypeId, bool) {
	v := a.edges[id].add
	return ArchetypeId(v - 1), v != 0
}

func (a *Archetype) edgeRemove(id ComponentId) (ArchetypeId, bool) {
	v := a.edges[id].remove
	return ArchetypeId(v - 1), v != 0
}
