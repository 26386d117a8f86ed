package ecs_test

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/plus3/archecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSpawnEntity(t *testing.T) {
	w := newTestWorld()

	e, err := w.Spawn(&Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5}, Score(32))
	require.NoError(t, err)
	assert.NotEqual(t, ecs.EntityId(0), e)
	assert.True(t, w.Alive(e))
	assert.Equal(t, 1, w.Len())

	pos, err := ecs.GetComponent[Position](w, e)
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1, Y: 2}, *pos)

	score, err := ecs.GetComponent[Score](w, e)
	require.NoError(t, err)
	assert.Equal(t, Score(32), *score)

	a, row, err := w.Location(e)
	require.NoError(t, err)
	assert.Equal(t, 0, row)
	assert.True(t, a.HasAll(idOf[Position](w), idOf[Velocity](w), idOf[Score](w)))
	assert.Equal(t, 3, a.Signature().Len())
}

func TestSpawnWithoutComponentsUsesRootArchetype(t *testing.T) {
	w := newTestWorld()

	e, err := w.Spawn()
	require.NoError(t, err)

	a, _, err := w.Location(e)
	require.NoError(t, err)
	assert.Equal(t, ecs.ArchetypeId(0), a.ID())
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, uint64(1), w.Version())
}

func TestSpawnErrors(t *testing.T) {
	w := newTestWorld()

	_, err := w.Spawn(Position{}, &Position{})
	assert.ErrorIs(t, err, ecs.ErrComponentAlreadyExists)

	_, err = w.Spawn(Position{}, int64(5))
	assert.ErrorIs(t, err, ecs.ErrComponentNotRegistered)

	_, err = w.Spawn(nil)
	assert.ErrorIs(t, err, ecs.ErrComponentNotRegistered)

	assert.Equal(t, 0, w.Len())
}

func TestSpawnSameSignatureSharesArchetype(t *testing.T) {
	w := newTestWorld()

	a, _ := w.Spawn(Position{}, Velocity{})
	b, _ := w.Spawn(Velocity{}, Position{})

	archA, _, _ := w.Location(a)
	archB, _, _ := w.Location(b)
	assert.Same(t, archA, archB)
	assert.Equal(t, 2, archA.Len())
}

func TestDespawn(t *testing.T) {
	w := newTestWorld()

	e, _ := w.Spawn(Position{X: 1})
	require.NoError(t, w.Despawn(e))

	assert.False(t, w.Alive(e))
	assert.Equal(t, 0, w.Len())
	assert.ErrorIs(t, w.Despawn(e), ecs.ErrInvalidEntity)

	_, err := ecs.GetComponent[Position](w, e)
	assert.ErrorIs(t, err, ecs.ErrInvalidEntity)
}

func TestStaleHandleAfterSlotReuse(t *testing.T) {
	w := newTestWorld()

	old, _ := w.Spawn(Position{X: 1})
	require.NoError(t, w.Despawn(old))
	fresh, _ := w.Spawn(Position{X: 2})

	assert.Equal(t, old.Index(), fresh.Index())
	assert.NotEqual(t, old.Generation(), fresh.Generation())
	assert.False(t, w.Alive(old))
	assert.True(t, w.Alive(fresh))

	assert.ErrorIs(t, ecs.AddComponent(w, old, Velocity{}), ecs.ErrInvalidEntity)
	assert.ErrorIs(t, w.Remove(old, idOf[Position](w)), ecs.ErrInvalidEntity)
	assert.False(t, ecs.HasComponent[Position](w, old))
	assert.True(t, ecs.HasComponent[Position](w, fresh))
}

func TestAddComponent(t *testing.T) {
	w := newTestWorld()

	e, _ := w.Spawn(Position{X: 3, Y: 4}, Name{Value: "orc"})
	require.NoError(t, ecs.AddComponent(w, e, Velocity{DX: 1, DY: -1}))

	assert.True(t, ecs.HasComponent[Velocity](w, e))
	pos, _ := ecs.GetComponent[Position](w, e)
	assert.Equal(t, Position{X: 3, Y: 4}, *pos)
	name, _ := ecs.GetComponent[Name](w, e)
	assert.Equal(t, "orc", name.Value)
	vel, _ := ecs.GetComponent[Velocity](w, e)
	assert.Equal(t, Velocity{DX: 1, DY: -1}, *vel)

	err := ecs.AddComponent(w, e, Velocity{})
	assert.ErrorIs(t, err, ecs.ErrComponentAlreadyExists)
	vel, _ = ecs.GetComponent[Velocity](w, e)
	assert.Equal(t, Velocity{DX: 1, DY: -1}, *vel, "failed add leaves the value alone")

	assert.ErrorIs(t, ecs.AddComponent(w, e, int64(1)), ecs.ErrComponentNotRegistered)
}

func TestUntypedAddRemove(t *testing.T) {
	w := newTestWorld()
	e, _ := w.Spawn(Position{})

	require.NoError(t, w.Add(e, &Health{Current: 5, Max: 10}))
	assert.True(t, w.Has(e, idOf[Health](w)))

	value, err := w.Get(e, idOf[Health](w))
	require.NoError(t, err)
	assert.Equal(t, &Health{Current: 5, Max: 10}, value)

	require.NoError(t, w.Remove(e, idOf[Health](w)))
	assert.False(t, w.Has(e, idOf[Health](w)))

	_, err = w.Get(e, idOf[Health](w))
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
	assert.ErrorIs(t, w.Remove(e, idOf[Health](w)), ecs.ErrComponentNotFound)
}

func TestRemoveComponent(t *testing.T) {
	w := newTestWorld()

	e, _ := w.Spawn(Position{X: 1}, Velocity{DX: 2}, Health{Current: 7})
	vel, err := ecs.RemoveComponent[Velocity](w, e)
	require.NoError(t, err)
	assert.Equal(t, Velocity{DX: 2}, vel)

	assert.False(t, ecs.HasComponent[Velocity](w, e))
	pos, _ := ecs.GetComponent[Position](w, e)
	assert.Equal(t, float32(1), pos.X)
	hp, _ := ecs.GetComponent[Health](w, e)
	assert.Equal(t, int32(7), hp.Current)

	_, err = ecs.RemoveComponent[Velocity](w, e)
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)

	_, err = ecs.RemoveComponent[Position](w, e)
	require.NoError(t, err)
	_, err = ecs.RemoveComponent[Health](w, e)
	require.NoError(t, err)

	a, _, err := w.Location(e)
	require.NoError(t, err)
	assert.Equal(t, ecs.ArchetypeId(0), a.ID(), "an entity without components lives in the root archetype")
	assert.True(t, w.Alive(e))
}

func TestSetComponent(t *testing.T) {
	w := newTestWorld()
	e, _ := w.Spawn(Position{})

	require.NoError(t, ecs.SetComponent(w, e, Velocity{DX: 1}))
	require.NoError(t, ecs.SetComponent(w, e, Velocity{DX: 2}))

	vel, _ := ecs.GetComponent[Velocity](w, e)
	assert.Equal(t, float32(2), vel.DX)
}

func TestReadComponent(t *testing.T) {
	w := newTestWorld()
	e, _ := w.Spawn(Name{Value: "n"})

	assert.Equal(t, "n", ecs.ReadComponent[Name](w, e).Value)
	assert.Nil(t, ecs.ReadComponent[Position](w, e))
	assert.Nil(t, ecs.ReadComponent[int64](w, e))
}

func TestPositionVelocityScenario(t *testing.T) {
	w := newTestWorld()

	e1, _ := w.Spawn(Position{X: 1})
	e2, _ := w.Spawn(Position{X: 2}, Velocity{DX: 1})
	e3, _ := w.Spawn(Velocity{DX: 3})

	group := w.Query(ecs.All(idOf[Position](w), idOf[Velocity](w)))
	require.Equal(t, 1, group.Len())
	assert.Equal(t, 1, group.EntityCount())

	var seen []ecs.EntityId
	group.ForEachArchetype(func(a *ecs.Archetype) {
		seen = append(seen, a.Entities()...)
	})
	assert.Equal(t, []ecs.EntityId{e2}, seen)

	require.NoError(t, ecs.AddComponent(w, e1, Velocity{DX: 5}))
	group = w.Query(ecs.All(idOf[Position](w), idOf[Velocity](w)))
	assert.Equal(t, 2, group.EntityCount())

	seen = seen[:0]
	for e := range group.Entities() {
		seen = append(seen, e)
	}
	assert.ElementsMatch(t, []ecs.EntityId{e1, e2}, seen)
	assert.NotContains(t, seen, e3)
}

func TestSwapRemoveScenario(t *testing.T) {
	w := newTestWorld()

	ids := make([]ecs.EntityId, 200)
	for i := range ids {
		ids[i], _ = w.Spawn(Position{X: float32(i)})
	}
	last := ids[199]

	require.NoError(t, ecs.AddComponent(w, ids[99], Velocity{DX: 1}))

	posOnly := w.ArchetypeFor(idOf[Position](w))
	both := w.ArchetypeFor(idOf[Position](w), idOf[Velocity](w))
	assert.Equal(t, 199, posOnly.Len())
	assert.Equal(t, 1, both.Len())

	a, row, err := w.Location(last)
	require.NoError(t, err)
	assert.Same(t, posOnly, a)
	assert.Equal(t, 99, row)
	pos, _ := ecs.GetComponent[Position](w, last)
	assert.Equal(t, float32(199), pos.X)

	moved, _ := ecs.GetComponent[Position](w, ids[99])
	assert.Equal(t, float32(99), moved.X)
}

func TestSwapRemovePreservesOthers(t *testing.T) {
	w := newTestWorld()

	ids := make([]ecs.EntityId, 20)
	for i := range ids {
		ids[i], _ = w.Spawn(Position{X: float32(i)}, Health{Current: int32(i)})
	}

	require.NoError(t, w.Despawn(ids[4]))
	require.NoError(t, w.Despawn(ids[11]))

	for i, e := range ids {
		if i == 4 || i == 11 {
			continue
		}
		pos, err := ecs.GetComponent[Position](w, e)
		require.NoError(t, err)
		hp, _ := ecs.GetComponent[Health](w, e)
		assert.Equal(t, float32(i), pos.X)
		assert.Equal(t, int32(i), hp.Current)
	}
}

func TestRandomOperationsKeepRowsConsistent(t *testing.T) {
	w := newTestWorld()
	rng := rand.New(rand.NewSource(11))

	type expected struct {
		pos    Position
		hasVel bool
		hasHP  bool
	}
	alive := map[ecs.EntityId]*expected{}
	var handles []ecs.EntityId

	for step := 0; step < 3000; step++ {
		switch op := rng.Intn(5); {
		case op == 0 || len(handles) == 0:
			p := Position{X: float32(step)}
			e, err := w.Spawn(p)
			require.NoError(t, err)
			alive[e] = &expected{pos: p}
			handles = append(handles, e)
		default:
			i := rng.Intn(len(handles))
			e := handles[i]
			exp := alive[e]
			switch op {
			case 1:
				require.NoError(t, w.Despawn(e))
				delete(alive, e)
				handles[i] = handles[len(handles)-1]
				handles = handles[:len(handles)-1]
			case 2:
				err := ecs.AddComponent(w, e, Velocity{DX: 1})
				if exp.hasVel {
					require.ErrorIs(t, err, ecs.ErrComponentAlreadyExists)
				} else {
					require.NoError(t, err)
					exp.hasVel = true
				}
			case 3:
				_, err := ecs.RemoveComponent[Velocity](w, e)
				if exp.hasVel {
					require.NoError(t, err)
					exp.hasVel = false
				} else {
					require.ErrorIs(t, err, ecs.ErrComponentNotFound)
				}
			case 4:
				if exp.hasHP {
					_, err := ecs.RemoveComponent[Health](w, e)
					require.NoError(t, err)
				} else {
					require.NoError(t, ecs.AddComponent(w, e, Health{Current: 1}))
				}
				exp.hasHP = !exp.hasHP
			}
		}
	}

	assert.Equal(t, len(alive), w.Len())
	for e, exp := range alive {
		a, row, err := w.Location(e)
		require.NoError(t, err)
		require.Equal(t, e, a.Entities()[row], "row consistency for %s", e)

		pos, err := ecs.GetComponent[Position](w, e)
		require.NoError(t, err)
		assert.Equal(t, exp.pos, *pos)
		assert.Equal(t, exp.hasVel, ecs.HasComponent[Velocity](w, e))
		assert.Equal(t, exp.hasHP, ecs.HasComponent[Health](w, e))
	}
}

func TestQueryIsCached(t *testing.T) {
	w := newTestWorld()
	f := ecs.All(idOf[Position](w))

	g1 := w.Query(f)
	g2 := w.Query(ecs.All(idOf[Position](w)))
	assert.Same(t, g1, g2)

	other := w.Query(ecs.All(idOf[Position](w)).Without(idOf[Velocity](w)))
	assert.NotSame(t, g1, other)
}

func TestGroupTracksNewArchetypes(t *testing.T) {
	w := newTestWorld()
	group := w.Query(ecs.All(idOf[Position](w)))
	assert.Equal(t, 0, group.Len())

	for i := 0; i < 30; i++ {
		components := []any{Position{}}
		if i&1 != 0 {
			components = append(components, Velocity{})
		}
		if i&2 != 0 {
			components = append(components, Score(i))
		}
		if i&4 != 0 {
			components = append(components, Tag(fmt.Sprint(i)))
		}
		if i&8 != 0 {
			components = append(components, Temperature(i))
		}
		_, err := w.Spawn(components...)
		require.NoError(t, err)
	}
	_, _ = w.Spawn(Velocity{})

	group = w.Query(ecs.All(idOf[Position](w)))
	assert.Equal(t, 16, group.Len())
	assert.Equal(t, 30, group.EntityCount())
	assert.Equal(t, w.Version(), group.Version())

	var lastID ecs.ArchetypeId
	for a := range group.Archetypes() {
		assert.True(t, a.Has(idOf[Position](w)))
		assert.Greater(t, a.ID(), lastID)
		lastID = a.ID()
	}
}

func TestAnyAllNoneAreIndependent(t *testing.T) {
	w := newTestWorld()
	pos, vel, hp := idOf[Position](w), idOf[Velocity](w), idOf[Health](w)

	_, _ = w.Spawn(Position{})
	_, _ = w.Spawn(Position{}, Velocity{})
	_, _ = w.Spawn(Position{}, Health{})
	_, _ = w.Spawn(Position{}, Velocity{}, Health{})

	assert.Equal(t, 3, w.Query(ecs.All(pos).WithAny(vel, hp)).EntityCount())
	assert.Equal(t, 1, w.Query(ecs.All(pos).WithAny(vel).Without(hp)).EntityCount())
	assert.Equal(t, 2, w.Query(ecs.NewFilter(nil, []ecs.ComponentId{vel}, nil)).EntityCount())
	assert.Equal(t, 0, w.Query(ecs.All(vel).Without(vel)).EntityCount())
	assert.Equal(t, 4, w.Query(ecs.NewFilter(nil, nil, nil)).EntityCount())
}

func TestForEachArchetypeParallel(t *testing.T) {
	w := newTestWorld()
	for i := 0; i < 1000; i++ {
		components := []any{Position{X: 1}, Velocity{DX: 2}}
		if i%3 == 0 {
			components = append(components, Score(i))
		}
		if i%5 == 0 {
			components = append(components, Health{})
		}
		_, _ = w.Spawn(components...)
	}

	group := w.Query(ecs.All(idOf[Position](w), idOf[Velocity](w)))
	err := group.ForEachArchetypeParallel(func(a *ecs.Archetype) error {
		positions, err := ecs.Column[Position](a, idOf[Position](w))
		if err != nil {
			return err
		}
		velocities, err := ecs.Column[Velocity](a, idOf[Velocity](w))
		if err != nil {
			return err
		}
		for i := range positions {
			positions[i].X += velocities[i].DX
		}
		return nil
	})
	require.NoError(t, err)

	for e := range group.Entities() {
		pos, _ := ecs.GetComponent[Position](w, e)
		require.Equal(t, float32(3), pos.X)
	}

	err = group.ForEachArchetypeParallel(func(a *ecs.Archetype) error {
		_, err := ecs.Column[Name](a, idOf[Name](w))
		return err
	})
	assert.ErrorIs(t, err, ecs.ErrComponentNotFound)
}

func TestMultipleWorldsShareRegistry(t *testing.T) {
	registry := newTestRegistry()
	w1 := ecs.NewWorld(registry)
	w2 := ecs.NewWorld(registry)

	e, _ := w1.Spawn(Position{X: 1})
	_, _ = w2.Spawn(Velocity{})

	assert.NotEqual(t, w1.ID(), w2.ID())
	assert.True(t, w1.Alive(e))
	assert.Equal(t, 1, w1.Query(ecs.All(idOf[Position](w1))).EntityCount())
	assert.Equal(t, 0, w2.Query(ecs.All(idOf[Position](w2))).EntityCount())
}
