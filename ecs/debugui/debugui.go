// Package debugui provides immediate-mode GUI integration for ECS applications using Dear ImGui.
// It manages ImGui rendering and input state through ECS components and systems.
package debugui

import (
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/archecs/ecs"
)

// ImguiItem is a component that holds a Dear ImGui render function.
// Attach this to entities that should render ImGui widgets each frame.
type ImguiItem struct {
	Render func()
}

// ImguiInputState tracks Dear ImGui's input capture state as a singleton component.
// Use this to determine if ImGui is consuming mouse or keyboard input.
type ImguiInputState struct {
	WantCaptureMouse    bool
	WantCaptureKeyboard bool
}

// ImguiSystem queries all ImguiItem components and defers their render functions.
// It also updates the ImguiInputState singleton with current input capture state.
type ImguiSystem struct {
	Items      ecs.Query[struct{ *ImguiItem }]
	InputState ecs.Singleton[ImguiInputState]
}

// Execute updates input state and queues all ImGui render functions for execution.
func (i *ImguiSystem) Execute(frame *ecs.UpdateFrame) {
	if state := i.InputState.Get(); state != nil {
		state.WantCaptureMouse = imgui.CurrentIO().WantCaptureMouse()
		state.WantCaptureKeyboard = imgui.CurrentIO().WantCaptureKeyboard()
	}

	for item := range i.Items.Values() {
		if item.Render != nil {
			frame.Commands.Defer(item.Render)
		}
	}
}

// DebugWindowsSystem draws the inspector windows spawned by SpawnDebugUI.
// Drawing is deferred to the end of the command flush so the windows show
// the world after the tick's structural changes. Clicking an archetype in
// the viewer filters the entity browser to it; the entity selected in the
// browser is shown by the component inspector.
type DebugWindowsSystem struct {
	Browsers   ecs.Query[struct{ *EntityBrowserComponent }]
	Inspectors ecs.Query[struct{ *ComponentInspectorComponent }]
	Viewers    ecs.Query[struct{ *ArchetypeViewerComponent }]
	Stats      ecs.Query[struct{ *PerformanceStatsComponent }]
	Queries    ecs.Query[struct{ *QueryDebuggerComponent }]

	// Scheduler, when set, adds per-system timings to the stats window.
	Scheduler *ecs.Scheduler
}

func (s *DebugWindowsSystem) Execute(frame *ecs.UpdateFrame) {
	world, dt := frame.World, frame.DeltaTime
	frame.Commands.Defer(func() {
		s.render(world, dt)
	})
}

func (s *DebugWindowsSystem) render(world *ecs.World, dt float64) {
	var clicked *ecs.ArchetypeId
	for v := range s.Viewers.Values() {
		if id := v.ArchetypeViewerComponent.Render(world); id != nil {
			clicked = id
		}
	}

	var selected ecs.EntityId
	for b := range s.Browsers.Values() {
		if clicked != nil {
			b.SetArchetypeFilter(*clicked)
		}
		b.Render(world)
		if e := b.GetSelectedEntity(); e != 0 {
			selected = e
		}
	}

	for i := range s.Inspectors.Values() {
		i.Render(world, selected)
	}

	for q := range s.Queries.Values() {
		q.Render(world)
	}

	for p := range s.Stats.Values() {
		p.Render(world, s.Scheduler, dt)
	}
}
