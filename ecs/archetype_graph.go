package ecs

import (
	"sort"

	"go.uber.org/zap"
)

// archetypeGraph owns every archetype of a world. Archetypes are kept in
// creation order (their id is the index), in signature order for exact-match
// lookup and batch search, and in one signature-ordered bucket per component.
type archetypeGraph struct {
	registry   *ComponentRegistry
	logger     *zap.Logger
	archetypes []*Archetype
	sorted     []*Archetype
	buckets    [MaxComponentTypes][]*Archetype
	present    Mask
	onCreate   func(*Archetype)
}

func newArchetypeGraph(registry *ComponentRegistry, logger *zap.Logger) *archetypeGraph {
	g := &archetypeGraph{
		registry: registry,
		logger:   logger,
	}
	g.findOrCreate(Signature{})
	return g
}

// version is the number of archetypes ever created. It only grows.
func (g *archetypeGraph) version() uint64 {
	return uint64(len(g.archetypes))
}

func (g *archetypeGraph) root() *Archetype {
	return g.archetypes[0]
}

func (g *archetypeGraph) get(id ArchetypeId) *Archetype {
	if int(id) >= len(g.archetypes) {
		return nil
	}
	return g.archetypes[id]
}

// lookup binary-searches the signature-ordered list.
func (g *archetypeGraph) lookup(mask Mask) (*Archetype, int) {
	pos := sort.Search(len(g.sorted), func(i int) bool {
		return g.sorted[i].signature.mask.Compare(mask) >= 0
	})
	if pos < len(g.sorted) && g.sorted[pos].signature.mask == mask {
		return g.sorted[pos], pos
	}
	return nil, pos
}

// findOrCreate returns the archetype for signature, creating it on first use.
func (g *archetypeGraph) findOrCreate(signature Signature) *Archetype {
	existing, pos := g.lookup(signature.mask)
	if existing != nil {
		return existing
	}

	a := newArchetype(ArchetypeId(len(g.archetypes)), signature, g.registry)
	g.archetypes = append(g.archetypes, a)
	g.sorted = insertArchetype(g.sorted, pos, a)
	for _, cid := range signature.ids {
		g.buckets[cid] = insertSorted(g.buckets[cid], a)
	}
	g.present = g.present.Or(signature.mask)

	g.logger.Debug("archetype created",
		zap.Uint32("archetype", uint32(a.id)),
		zap.Stringer("signature", signature),
		zap.Strings("components", g.registry.Names(signature.ids)),
	)

	if g.onCreate != nil {
		g.onCreate(a)
	}
	return a
}

// archetypeFor is findOrCreate keyed by mask, avoiding the signature
// allocation when the archetype already exists.
func (g *archetypeGraph) archetypeFor(mask Mask) *Archetype {
	if a, _ := g.lookup(mask); a != nil {
		return a
	}
	return g.findOrCreate(signatureFromMask(mask))
}

// withComponent follows (or records) the add edge for id from a.
func (g *archetypeGraph) withComponent(a *Archetype, id ComponentId) *Archetype {
	if next, ok := a.edgeAdd(id); ok {
		return g.archetypes[next]
	}
	next := g.findOrCreate(a.signature.With(id))
	a.edges[id].add = uint32(next.id) + 1
	next.edges[id].remove = uint32(a.id) + 1
	return next
}

// withoutComponent follows (or records) the remove edge for id from a.
func (g *archetypeGraph) withoutComponent(a *Archetype, id ComponentId) *Archetype {
	if prev, ok := a.edgeRemove(id); ok {
		return g.archetypes[prev]
	}
	prev := g.findOrCreate(a.signature.Without(id))
	a.edges[id].remove = uint32(prev.id) + 1
	prev.edges[id].add = uint32(a.id) + 1
	return prev
}

func insertArchetype(list []*Archetype, pos int, a *Archetype) []*Archetype {
	list = append(list, nil)
	copy(list[pos+1:], list[pos:])
	list[pos] = a
	return list
}

func insertSorted(list []*Archetype, a *Archetype) []*Archetype {
	pos := sort.Search(len(list), func(i int) bool {
		return list[i].signature.mask.Compare(a.signature.mask) >= 0
	})
	return insertArchetype(list, pos, a)
}
