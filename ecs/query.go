package ecs

import (
	"iter"
	"reflect"
	"unsafe"
)

type fieldKind uint8

const (
	fieldRequired fieldKind = iota
	fieldOptional
	fieldAny
	fieldExclude
)

// queryLayout is the compiled form of a query struct: one entry per field.
type queryLayout struct {
	ids     []ComponentId
	kinds   []fieldKind
	offsets []uintptr
	filter  Filter
}

// newQueryLayout parses the struct T. Every field must be a pointer to a
// registered component type. Embedded fields are always required; named
// fields take an optional `ecs` tag:
//
//	ecs:"optional"  the field is nil when the component is missing
//	ecs:"any"       at least one of the "any" fields must be present
//	ecs:"exclude"   entities carrying the component are skipped; always nil
func newQueryLayout[T any](registry *ComponentRegistry) *queryLayout {
	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		panic("Query type parameter must be a struct")
	}

	layout := &queryLayout{}
	var all, anyOf, none []ComponentId

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		if field.Type.Kind() != reflect.Pointer {
			panic("Query struct fields must be pointer types")
		}

		componentType := field.Type.Elem()
		id, ok := registry.Lookup(componentType)
		if !ok {
			panic("component type " + componentType.String() + " not registered")
		}

		kind := fieldRequired
		if !field.Anonymous {
			switch tag := field.Tag.Get("ecs"); tag {
			case "":
			case "optional":
				kind = fieldOptional
			case "any":
				kind = fieldAny
			case "exclude":
				kind = fieldExclude
			default:
				panic("invalid ecs tag value: \"" + tag + "\" (expected optional, any or exclude)")
			}
		}

		switch kind {
		case fieldRequired:
			all = append(all, id)
		case fieldAny:
			anyOf = append(anyOf, id)
		case fieldExclude:
			none = append(none, id)
		}

		layout.ids = append(layout.ids, id)
		layout.kinds = append(layout.kinds, kind)
		layout.offsets = append(layout.offsets, field.Offset)
	}

	layout.filter = NewFilter(all, anyOf, none)
	return layout
}

// slotsFor maps each field to its pool index in a, or -1.
func (l *queryLayout) slotsFor(a *Archetype, slots []int) []int {
	slots = slots[:0]
	for i, id := range l.ids {
		if l.kinds[i] == fieldExclude {
			slots = append(slots, -1)
			continue
		}
		slots = append(slots, int(a.slots[id]))
	}
	return slots
}

func (l *queryLayout) populate(resultPtr unsafe.Pointer, a *Archetype, row int, slots []int) {
	for i, slot := range slots {
		fieldPtr := unsafe.Add(resultPtr, l.offsets[i])
		if slot < 0 {
			*(*unsafe.Pointer)(fieldPtr) = nil
			continue
		}
		*(*unsafe.Pointer)(fieldPtr) = a.pools[slot].pointer(row)
	}
}

// Query iterates entities through a struct of component pointers. T is a
// struct whose fields point at component types; see newQueryLayout for the
// field rules. Matching archetypes are cached in a Group, so iteration only
// scans archetypes created since the previous call.
//
// Pointers handed out by Iter are valid until the next structural change.
// Structural changes during iteration must go through Commands.
type Query[T any] struct {
	world  *World
	layout *queryLayout
}

// NewQuery creates a Query bound to world.
func NewQuery[T any](world *World) *Query[T] {
	q := &Query[T]{}
	q.Init(world)
	return q
}

// Init initializes or re-initializes the Query with a world.
// Called by the Scheduler during system registration.
func (q *Query[T]) Init(world *World) {
	q.world = world
	q.layout = newQueryLayout[T](world.registry)
}

// Filter returns the filter compiled from T.
func (q *Query[T]) Filter() Filter {
	return q.layout.filter
}

// Group returns the refreshed group backing the query.
func (q *Query[T]) Group() *Group {
	if q.world == nil {
		panic("Query used before Init")
	}
	return q.world.Query(q.layout.filter)
}

// Count returns the number of matching entities.
func (q *Query[T]) Count() int {
	return q.Group().EntityCount()
}

// Iter returns an iterator over entity IDs and populated query structs.
func (q *Query[T]) Iter() iter.Seq2[EntityId, T] {
	group := q.Group()
	return func(yield func(EntityId, T) bool) {
		var result T
		resultPtr := unsafe.Pointer(&result)
		slots := make([]int, 0, len(q.layout.ids))

		for _, a := range group.archetypes {
			if a.rows == 0 {
				continue
			}
			slots = q.layout.slotsFor(a, slots)
			for row := 0; row < a.rows; row++ {
				q.layout.populate(resultPtr, a, row, slots)
				if !yield(a.entities[row], result) {
					return
				}
			}
		}
	}
}

// Values returns an iterator over the query structs only.
func (q *Query[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range q.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Fill populates ptr for entity e. It returns false when e is not alive or
// does not match the query.
func (q *Query[T]) Fill(e EntityId, ptr *T) bool {
	a, row, err := q.world.Location(e)
	if err != nil || !q.layout.filter.Matches(a) {
		return false
	}
	slots := q.layout.slotsFor(a, make([]int, 0, len(q.layout.ids)))
	q.layout.populate(unsafe.Pointer(ptr), a, row, slots)
	return true
}

// Get returns a populated query struct for e, or nil if e does not match.
func (q *Query[T]) Get(e EntityId) *T {
	var result T
	if !q.Fill(e, &result) {
		return nil
	}
	return &result
}
