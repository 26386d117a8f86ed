package ecs

import "sort"

// WorldStats is a point-in-time summary of a world's storage.
type WorldStats struct {
	ArchetypeCount     int
	TotalEntityCount   int
	TotalCapacity      int
	SingletonCount     int
	GroupCount         int
	ArchetypeBreakdown []ArchetypeStats
	SingletonTypes     []string
}

// ArchetypeStats describes one archetype.
type ArchetypeStats struct {
	ID             ArchetypeId
	ComponentTypes []string
	EntityCount    int
	Capacity       int
}

// CollectStats gathers storage statistics. Empty archetypes are included in
// ArchetypeCount but left out of the breakdown.
func (w *World) CollectStats() WorldStats {
	stats := WorldStats{
		ArchetypeCount: len(w.graph.archetypes),
		SingletonCount: len(w.singletons),
	}

	for _, a := range w.graph.archetypes {
		stats.TotalEntityCount += a.rows
		stats.TotalCapacity += a.Cap()
		if a.rows == 0 {
			continue
		}
		stats.ArchetypeBreakdown = append(stats.ArchetypeBreakdown, ArchetypeStats{
			ID:             a.id,
			ComponentTypes: w.registry.Names(a.signature.ids),
			EntityCount:    a.rows,
			Capacity:       a.Cap(),
		})
	}

	w.groups.ForEach(func(_ uint64, groups []*Group) bool {
		stats.GroupCount += len(groups)
		return true
	})

	for t := range w.singletons {
		stats.SingletonTypes = append(stats.SingletonTypes, t.String())
	}
	sort.Strings(stats.SingletonTypes)

	return stats
}
