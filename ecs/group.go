package ecs

import (
	"iter"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Group is the cached list of archetypes matching a Filter. It is refreshed
// by World.Query; archetypes are only ever appended, because a signature never
// changes once its archetype exists.
type Group struct {
	filter     Filter
	archetypes []*Archetype
	version    uint64
}

func newGroup(filter Filter) *Group {
	return &Group{filter: filter}
}

// refresh appends matches among the archetypes created since the last refresh.
func (g *Group) refresh(graph *archetypeGraph) {
	current := graph.version()
	if g.version >= current {
		return
	}
	g.archetypes = graph.search(g.filter, ArchetypeId(g.version), g.archetypes)
	g.version = current
}

// Filter returns the filter the group was built for.
func (g *Group) Filter() Filter {
	return g.filter
}

// Version is the archetype count at the last refresh.
func (g *Group) Version() uint64 {
	return g.version
}

// Len returns the number of matching archetypes.
func (g *Group) Len() int {
	return len(g.archetypes)
}

// EntityCount sums the rows of every matching archetype.
func (g *Group) EntityCount() int {
	n := 0
	for _, a := range g.archetypes {
		n += a.rows
	}
	return n
}

// ForEachArchetype calls fn for every matching archetype that has rows, in
// creation order.
func (g *Group) ForEachArchetype(fn func(*Archetype)) {
	for _, a := range g.archetypes {
		if a.rows > 0 {
			fn(a)
		}
	}
}

// Archetypes yields every matching archetype, including empty ones.
func (g *Group) Archetypes() iter.Seq[*Archetype] {
	return func(yield func(*Archetype) bool) {
		for _, a := range g.archetypes {
			if !yield(a) {
				return
			}
		}
	}
}

// Entities yields every entity in the group with its archetype.
func (g *Group) Entities() iter.Seq2[EntityId, *Archetype] {
	return func(yield func(EntityId, *Archetype) bool) {
		for _, a := range g.archetypes {
			for row := 0; row < a.rows; row++ {
				if !yield(a.entities[row], a) {
					return
				}
			}
		}
	}
}

// ForEachArchetypeParallel runs fn concurrently over the non-empty matching
// archetypes, at most GOMAXPROCS at a time, and returns the first error. fn
// must only read or write component values in place; no structural change may
// happen in the world until this returns.
func (g *Group) ForEachArchetypeParallel(fn func(*Archetype) error) error {
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for _, a := range g.archetypes {
		if a.rows == 0 {
			continue
		}
		eg.Go(func() error {
			return fn(a)
		})
	}
	return eg.Wait()
}
