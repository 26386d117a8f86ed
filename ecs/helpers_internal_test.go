package ecs

type ipos struct{ X, Y float32 }
type ivel struct{ DX, DY float32 }
type ihealth struct{ HP int32 }

func newInternalWorld() (*World, ComponentId, ComponentId, ComponentId) {
	registry := NewComponentRegistry()
	pos := RegisterComponent[ipos](registry)
	vel := RegisterComponent[ivel](registry)
	hp := RegisterComponent[ihealth](registry)
	return NewWorld(registry), pos, vel, hp
}

// checkRowConsistency verifies that every live handle resolves to a row that
// holds it.
func checkRowConsistency(w *World) (EntityId, bool) {
	for index, rec := range w.entities.records {
		if !rec.alive {
			continue
		}
		e := NewEntityId(uint32(index), rec.generation)
		a := w.graph.archetypes[rec.archetype]
		if rec.row >= a.rows || a.entities[rec.row] != e {
			return e, false
		}
	}
	return 0, true
}
