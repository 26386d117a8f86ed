package ecs

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Commands provides a buffer for deferred ECS operations that are executed at the end of a frame.
// This prevents structural changes to the world during system execution.
type Commands struct {
	spawns   []spawnCommand
	despawns []EntityId
	adds     []addComponentCommand
	removes  []removeComponentCommand
	defers   []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
	then       func(EntityId)
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity EntityId
	id     ComponentId
}

// Defer queues a function execution operation.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// SpawnThen queues a spawn and calls then with the new entity once flushed.
func (c *Commands) SpawnThen(then func(EntityId), components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components, then: then})
}

// Despawn queues an entity deletion operation.
func (c *Commands) Despawn(entity EntityId) {
	c.despawns = append(c.despawns, entity)
}

// AddComponent queues a component addition operation.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, id ComponentId) {
	c.removes = append(c.removes, removeComponentCommand{
		entity: entity,
		id:     id,
	})
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.despawns) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies all commands to world and resets the buffer. Despawns run
// first, then removals, additions, spawns and deferred functions. Operations
// on entities despawned in the same batch are skipped. A failing operation
// does not stop the batch; all failures are returned together.
func (c *Commands) Flush(world *World) error {
	var errs error
	deleted := make(map[EntityId]bool, len(c.despawns))

	for _, e := range c.despawns {
		if deleted[e] {
			continue
		}
		deleted[e] = true
		errs = multierr.Append(errs, world.Despawn(e))
	}

	for _, cmd := range c.removes {
		if !deleted[cmd.entity] {
			errs = multierr.Append(errs, world.Remove(cmd.entity, cmd.id))
		}
	}

	for _, cmd := range c.adds {
		if !deleted[cmd.entity] {
			errs = multierr.Append(errs, world.Add(cmd.entity, cmd.component))
		}
	}

	for _, cmd := range c.spawns {
		e, err := world.Spawn(cmd.components...)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		if cmd.then != nil {
			cmd.then(e)
		}
	}

	for _, df := range c.defers {
		df.fn()
	}

	if errs != nil {
		world.logger.Warn("command flush had failures",
			zap.Int("failures", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
	}

	c.spawns = c.spawns[:0]
	c.despawns = c.despawns[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
	return errs
}
