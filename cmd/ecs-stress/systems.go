package main

import (
	"math"
	"math/rand/v2"
	"sync/atomic"

	"github.com/plus3/archecs/ecs"
)

// MovementSystem integrates velocity into position for entities that are
// not frozen.
type MovementSystem struct {
	Bodies ecs.Query[struct {
		*Position
		*Velocity
		Frozen *Frozen `ecs:"exclude"`
	}]
}

func (s *MovementSystem) Execute(frame *ecs.UpdateFrame) {
	for body := range s.Bodies.Values() {
		body.Position.X += body.Velocity.X * frame.DeltaTime
		body.Position.Y += body.Velocity.Y * frame.DeltaTime
	}
}

// DecaySystem drains health and strips the component once it reaches zero.
type DecaySystem struct {
	Living   ecs.Query[struct{ *Health }]
	healthId ecs.ComponentId
}

func newDecaySystem(registry *ecs.ComponentRegistry) *DecaySystem {
	return &DecaySystem{healthId: ecs.MustComponentId[Health](registry)}
}

func (s *DecaySystem) Execute(frame *ecs.UpdateFrame) {
	for e, h := range s.Living.Iter() {
		h.Health.Current--
		if h.Health.Current <= 0 {
			frame.Commands.RemoveComponent(e, s.healthId)
		}
	}
}

// ChurnSystem despawns, spawns and reshapes entities every tick. It keeps
// its own list of live entities so victims are picked in constant time.
type ChurnSystem struct {
	rng      *rand.Rand
	perTick  int
	live     []ecs.EntityId
	touched  map[ecs.EntityId]struct{}
	healthId ecs.ComponentId
	frozenId ecs.ComponentId
}

func newChurnSystem(registry *ecs.ComponentRegistry, seed uint64, perTick int) *ChurnSystem {
	return &ChurnSystem{
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		perTick:  perTick,
		touched:  make(map[ecs.EntityId]struct{}),
		healthId: ecs.MustComponentId[Health](registry),
		frozenId: ecs.MustComponentId[Frozen](registry),
	}
}

// Track adds an entity spawned outside the system to the victim list.
func (s *ChurnSystem) Track(e ecs.EntityId) {
	s.live = append(s.live, e)
}

func (s *ChurnSystem) Execute(frame *ecs.UpdateFrame) {
	world := frame.World

	for i := 0; i < s.perTick && len(s.live) > 0; i++ {
		idx := s.rng.IntN(len(s.live))
		victim := s.live[idx]
		s.live[idx] = s.live[len(s.live)-1]
		s.live = s.live[:len(s.live)-1]
		if world.Alive(victim) {
			frame.Commands.Despawn(victim)
		}
	}

	for i := 0; i < s.perTick; i++ {
		frame.Commands.SpawnThen(s.Track, randomComponents(s.rng)...)
	}

	clear(s.touched)
	for i := 0; i < s.perTick && len(s.live) > 0; i++ {
		e := s.live[s.rng.IntN(len(s.live))]
		if _, seen := s.touched[e]; seen {
			continue
		}
		s.touched[e] = struct{}{}

		switch {
		case !world.Alive(e):
		case world.Has(e, s.frozenId):
			frame.Commands.RemoveComponent(e, s.frozenId)
		case !world.Has(e, s.healthId):
			frame.Commands.AddComponent(e, Health{Current: 50, Max: 50})
		default:
			frame.Commands.AddComponent(e, Frozen{})
		}
	}
}

// EnergyReader sums kinetic energy over every moving body in parallel,
// column by column.
type EnergyReader struct {
	positionId ecs.ComponentId
	velocityId ecs.ComponentId
	massId     ecs.ComponentId

	bodies atomic.Int64
	energy atomic.Uint64
}

func newEnergyReader(registry *ecs.ComponentRegistry) *EnergyReader {
	return &EnergyReader{
		positionId: ecs.MustComponentId[Position](registry),
		velocityId: ecs.MustComponentId[Velocity](registry),
		massId:     ecs.MustComponentId[Mass](registry),
	}
}

func (r *EnergyReader) Read(world *ecs.World) error {
	group := world.Query(ecs.All(r.positionId, r.velocityId))
	return group.ForEachArchetypeParallel(func(a *ecs.Archetype) error {
		velocities, err := ecs.Column[Velocity](a, r.velocityId)
		if err != nil {
			return err
		}

		var masses []Mass
		if a.Has(r.massId) {
			if masses, err = ecs.Column[Mass](a, r.massId); err != nil {
				return err
			}
		}

		var sum float64
		for i, v := range velocities {
			m := 1.0
			if masses != nil {
				m = float64(masses[i])
			}
			sum += 0.5 * m * (v.X*v.X + v.Y*v.Y)
		}

		r.bodies.Add(int64(len(velocities)))
		addFloat(&r.energy, sum)
		return nil
	})
}

// Totals returns the bodies visited and the energy summed over all reads.
func (r *EnergyReader) Totals() (int64, float64) {
	return r.bodies.Load(), loadFloat(&r.energy)
}

func addFloat(bits *atomic.Uint64, delta float64) {
	for {
		old := bits.Load()
		if bits.CompareAndSwap(old, math.Float64bits(math.Float64frombits(old)+delta)) {
			return
		}
	}
}

func loadFloat(bits *atomic.Uint64) float64 {
	return math.Float64frombits(bits.Load())
}
