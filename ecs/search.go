package ecs

import (
	"slices"
	"sort"
)

// Below this many new archetypes a group refresh checks them one by one
// instead of bisecting the sorted list.
const linearSearchThreshold = 16

type searchFrame struct {
	start   int
	end     int
	bit     int
	anySeen bool
}

// search appends every archetype with id >= since that matches f to out, in
// creation order.
func (g *archetypeGraph) search(f Filter, since ArchetypeId, out []*Archetype) []*Archetype {
	total := len(g.archetypes)
	if int(since) >= total {
		return out
	}

	if total-int(since) <= linearSearchThreshold {
		for _, a := range g.archetypes[since:] {
			if f.Matches(a) {
				out = append(out, a)
			}
		}
		return out
	}

	first := len(out)
	g.bisect(f, func(matched []*Archetype) {
		for _, a := range matched {
			if a.id >= since {
				out = append(out, a)
			}
		}
	})

	found := out[first:]
	slices.SortFunc(found, func(a, b *Archetype) int {
		return int(a.id) - int(b.id)
	})
	return out
}

// candidates returns the smallest signature-ordered list that is guaranteed
// to contain every match: the bucket of the rarest required component, or
// the full sorted list when nothing is required.
func (g *archetypeGraph) candidates(f Filter) []*Archetype {
	if f.all.IsZero() {
		return g.sorted
	}
	var best []*Archetype
	first := true
	for _, id := range f.all.IDs() {
		bucket := g.buckets[id]
		if first || len(bucket) < len(best) {
			best = bucket
			first = false
		}
	}
	return best
}

// bisect walks the candidate list from the highest component bit down to the
// filter's lowest referenced bit. Candidates are ordered by mask value, so
// within a frame every bit above frame.bit is identical and the archetypes
// lacking frame.bit precede those carrying it; one binary search splits the
// range. Referenced bits prune halves; unreferenced bits split without
// pruning, which the binary search needs to keep the prefix invariant. Once
// below the lowest referenced bit the range is emitted whole.
//
// The work is therefore not bounded by the referenced bits alone: a frame
// exists for each distinct mask prefix among the surviving candidates, taken
// over the bits from the graph's highest present bit down to the filter's
// lowest referenced bit. Each frame costs one binary search over its range.
// Narrow candidate buckets and filters whose lowest bit is high keep this
// small.
func (g *archetypeGraph) bisect(f Filter, emit func([]*Archetype)) {
	list := g.candidates(f)
	if len(list) == 0 {
		return
	}
	if f.IsEmpty() {
		emit(list)
		return
	}

	top := max(g.present.Highest(), f.highest)
	stack := []searchFrame{{start: 0, end: len(list), bit: top}}
	anyRequired := !f.any.IsZero()

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if fr.bit < f.lowest {
			if fr.anySeen || !anyRequired {
				emit(list[fr.start:fr.end])
			}
			continue
		}

		bit := ComponentId(fr.bit)
		span := list[fr.start:fr.end]
		split := fr.start + sort.Search(len(span), func(i int) bool {
			return span[i].signature.mask.Has(bit)
		})

		// The has-half is pushed first so the lacks-half, which sorts lower,
		// is emitted first.
		if split < fr.end && !f.none.Has(bit) {
			stack = append(stack, searchFrame{
				start:   split,
				end:     fr.end,
				bit:     fr.bit - 1,
				anySeen: fr.anySeen || f.any.Has(bit),
			})
		}
		if fr.start < split && !f.all.Has(bit) {
			stack = append(stack, searchFrame{
				start:   fr.start,
				end:     split,
				bit:     fr.bit - 1,
				anySeen: fr.anySeen,
			})
		}
	}
}
