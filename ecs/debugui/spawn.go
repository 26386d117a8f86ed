package debugui

import (
	"github.com/plus3/archecs/ecs"
	"go.uber.org/multierr"
)

const (
	defaultEntitiesPerPage = 100
	defaultHistoryFrames   = 120
)

// SpawnDebugUI spawns one entity per inspector window. The component types
// must have been registered with RegisterDebugUIComponents.
func SpawnDebugUI(world *ecs.World) error {
	var errs error
	for _, window := range []any{
		NewEntityBrowserComponent(defaultEntitiesPerPage),
		NewComponentInspectorComponent(),
		NewArchetypeViewerComponent(),
		NewPerformanceStatsComponent(defaultHistoryFrames),
		NewQueryDebuggerComponent(),
	} {
		_, err := world.Spawn(window)
		errs = multierr.Append(errs, err)
	}
	return errs
}

// RegisterDebugUIComponents registers the window components and ImguiItem.
// Window state is per session: snapshots keep which windows exist, and a
// restored window starts from the same defaults SpawnDebugUI uses.
func RegisterDebugUIComponents(registry *ecs.ComponentRegistry) {
	registerWindow(registry, func() EntityBrowserComponent {
		return NewEntityBrowserComponent(defaultEntitiesPerPage)
	})
	registerWindow(registry, NewComponentInspectorComponent)
	registerWindow(registry, NewArchetypeViewerComponent)
	registerWindow(registry, func() PerformanceStatsComponent {
		return NewPerformanceStatsComponent(defaultHistoryFrames)
	})
	registerWindow(registry, NewQueryDebuggerComponent)

	// Render functions cannot be written to a snapshot; restored items have
	// a nil Render and are skipped by ImguiSystem.
	ecs.RegisterComponentCodec(registry,
		func(*ImguiItem) ([]byte, error) { return nil, nil },
		func([]byte, *ImguiItem) error { return nil },
	)
}

func registerWindow[T any](registry *ecs.ComponentRegistry, init func() T) {
	ecs.RegisterComponentCodec(registry,
		func(*T) ([]byte, error) { return nil, nil },
		func(_ []byte, v *T) error {
			*v = init()
			return nil
		},
	)
}
