package ecs

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// Filter selects archetypes by three independent component sets: every All
// id must be present, at least one Any id must be present (when Any is not
// empty), and no None id may be present. Filters are values and never change
// after construction.
type Filter struct {
	all  Mask
	any  Mask
	none Mask

	referenced Mask
	lowest     int
	highest    int
}

// NewFilter compiles the three id sets into a Filter.
func NewFilter(all, anyOf, none []ComponentId) Filter {
	return compileFilter(MaskOf(all...), MaskOf(anyOf...), MaskOf(none...))
}

// All returns a filter requiring every id.
func All(ids ...ComponentId) Filter {
	return compileFilter(MaskOf(ids...), Mask{}, Mask{})
}

// FilterFor returns a filter requiring the component type A. Like the query
// struct parser it panics when a type was never registered.
func FilterFor[A any](r *ComponentRegistry) Filter {
	return All(MustComponentId[A](r))
}

// FilterFor2 requires both A and B.
func FilterFor2[A, B any](r *ComponentRegistry) Filter {
	return All(MustComponentId[A](r), MustComponentId[B](r))
}

// FilterFor3 requires A, B and C.
func FilterFor3[A, B, C any](r *ComponentRegistry) Filter {
	return All(MustComponentId[A](r), MustComponentId[B](r), MustComponentId[C](r))
}

// WithAll returns a copy of f that also requires ids.
func (f Filter) WithAll(ids ...ComponentId) Filter {
	return compileFilter(f.all.Or(MaskOf(ids...)), f.any, f.none)
}

// WithAny returns a copy of f whose Any set also contains ids.
func (f Filter) WithAny(ids ...ComponentId) Filter {
	return compileFilter(f.all, f.any.Or(MaskOf(ids...)), f.none)
}

// Without returns a copy of f that also excludes ids.
func (f Filter) Without(ids ...ComponentId) Filter {
	return compileFilter(f.all, f.any, f.none.Or(MaskOf(ids...)))
}

func compileFilter(all, anyOf, none Mask) Filter {
	referenced := all.Or(anyOf).Or(none)
	return Filter{
		all:        all,
		any:        anyOf,
		none:       none,
		referenced: referenced,
		lowest:     referenced.Lowest(),
		highest:    referenced.Highest(),
	}
}

// Check reports whether an archetype with the given signature mask matches.
func (f Filter) Check(mask Mask) bool {
	if !mask.Contains(f.all) {
		return false
	}
	if mask.Intersects(f.none) {
		return false
	}
	return f.any.IsZero() || mask.Intersects(f.any)
}

// Matches is Check applied to an archetype.
func (f Filter) Matches(a *Archetype) bool {
	return f.Check(a.signature.mask)
}

// AllIDs returns the required ids.
func (f Filter) AllIDs() []ComponentId { return f.all.IDs() }

// AnyIDs returns the ids of which at least one is required.
func (f Filter) AnyIDs() []ComponentId { return f.any.IDs() }

// NoneIDs returns the excluded ids.
func (f Filter) NoneIDs() []ComponentId { return f.none.IDs() }

// IsEmpty reports whether the filter references no component and therefore
// matches every archetype.
func (f Filter) IsEmpty() bool {
	return f.referenced.IsZero()
}

func (f Filter) hash() uint64 {
	var buf [3 * maskWords * 8]byte
	for i, m := range [3]Mask{f.all, f.any, f.none} {
		for w := 0; w < maskWords; w++ {
			binary.LittleEndian.PutUint64(buf[(i*maskWords+w)*8:], m[w])
		}
	}
	return xxhash.Sum64(buf[:])
}

func (f Filter) equal(o Filter) bool {
	return f.all == o.all && f.any == o.any && f.none == o.none
}
