package ecs_test

import (
	"fmt"

	"github.com/plus3/archecs/ecs"
)

// ExampleWorld shows the basic entity lifecycle: spawning with components,
// adding and removing components, and reading values back.
func ExampleWorld() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)

	world := ecs.NewWorld(registry)

	player, _ := world.Spawn(Position{X: 10, Y: 20})
	_ = ecs.AddComponent(world, player, Velocity{DX: 1, DY: 0})

	pos, _ := ecs.GetComponent[Position](world, player)
	fmt.Printf("position: %.0f,%.0f\n", pos.X, pos.Y)
	fmt.Println("has velocity:", ecs.HasComponent[Velocity](world, player))

	vel, _ := ecs.RemoveComponent[Velocity](world, player)
	fmt.Printf("removed velocity: %.0f\n", vel.DX)
	fmt.Println("has velocity:", ecs.HasComponent[Velocity](world, player))

	// Output:
	// position: 10,20
	// has velocity: true
	// removed velocity: 1
	// has velocity: false
}

// ExampleWorld_Query iterates every archetype matching a filter and works on
// whole component columns at a time.
func ExampleWorld_Query() {
	registry := ecs.NewComponentRegistry()
	posID := ecs.RegisterComponent[Position](registry)
	velID := ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Health](registry)

	world := ecs.NewWorld(registry)
	world.Spawn(Position{X: 0}, Velocity{DX: 1})
	world.Spawn(Position{X: 5}, Velocity{DX: 2}, Health{Current: 10})
	world.Spawn(Position{X: 9})

	group := world.Query(ecs.All(posID, velID))
	group.ForEachArchetype(func(a *ecs.Archetype) {
		positions, _ := ecs.Column[Position](a, posID)
		velocities, _ := ecs.Column[Velocity](a, velID)
		for i := range positions {
			positions[i].X += velocities[i].DX
		}
	})

	fmt.Println("moving entities:", group.EntityCount())
	for e := range group.Entities() {
		pos, _ := ecs.GetComponent[Position](world, e)
		fmt.Printf("x=%.0f\n", pos.X)
	}

	// Output:
	// moving entities: 2
	// x=1
	// x=7
}

// ExampleFilter combines required, alternative and excluded components.
func ExampleFilter() {
	registry := ecs.NewComponentRegistry()
	posID := ecs.RegisterComponent[Position](registry)
	nameID := ecs.RegisterComponent[Name](registry)
	scoreID := ecs.RegisterComponent[Score](registry)
	aiID := ecs.RegisterComponent[AI](registry)

	world := ecs.NewWorld(registry)
	world.Spawn(Position{}, Name{Value: "player"})
	world.Spawn(Position{}, Score(3))
	world.Spawn(Position{}, Name{Value: "bot"}, AI{})
	world.Spawn(Position{})

	f := ecs.All(posID).WithAny(nameID, scoreID).Without(aiID)
	fmt.Println("matches:", world.Query(f).EntityCount())

	// Output:
	// matches: 2
}
