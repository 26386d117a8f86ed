package main

import (
	"math/rand/v2"

	"github.com/plus3/archecs/ecs"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int32
}

type Mass float64

type Team uint8

// Label uses the JSON snapshot codec.
type Label struct {
	Name string
}

type Frozen struct{}

// optionalComponents are added to spawned entities at random. Every entity
// carries a Position so the churn system can find it.
var optionalComponents = []func(r *rand.Rand) any{
	func(r *rand.Rand) any { return Velocity{X: r.Float64()*2 - 1, Y: r.Float64()*2 - 1} },
	func(r *rand.Rand) any {
		hp := int32(r.IntN(100) + 1)
		return Health{Current: hp, Max: hp}
	},
	func(r *rand.Rand) any { return Mass(r.Float64() * 10) },
	func(r *rand.Rand) any { return Team(r.IntN(4)) },
	func(r *rand.Rand) any { return Label{Name: "unit"} },
	func(r *rand.Rand) any { return Frozen{} },
}

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[Mass](registry)
	ecs.RegisterComponent[Team](registry)
	ecs.RegisterComponent[Label](registry)
	ecs.RegisterComponent[Frozen](registry)
}

// randomComponents returns a Position plus each optional component with
// probability one half.
func randomComponents(r *rand.Rand) []any {
	components := []any{Position{X: r.Float64() * 100, Y: r.Float64() * 100}}
	for _, newValue := range optionalComponents {
		if r.IntN(2) == 0 {
			components = append(components, newValue(r))
		}
	}
	return components
}
