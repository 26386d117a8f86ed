// Package ebiten provides Dear ImGui backend integration for the Ebiten game engine.
package ebiten

import (
	ebitenbackend "github.com/AllenDang/cimgui-go/backend/ebiten-backend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/plus3/archecs/ecs"
)

// ImguiBackend wraps the Ebiten-specific Dear ImGui backend implementation.
// Use this to integrate Dear ImGui rendering into Ebiten game loops.
type ImguiBackend struct {
	*ebitenbackend.EbitenBackend
}

// NewImguiBackend creates the Ebiten window and the ImGui context. The
// imgui.ini file is disabled.
func NewImguiBackend(title string, width, height int) ImguiBackend {
	backend := ebitenbackend.NewEbitenBackend()
	backend.CreateWindow(title, width, height)
	imgui.CurrentIO().SetIniFilename("")
	return ImguiBackend{EbitenBackend: backend}
}

// Game runs a scheduler inside an ImGui frame on every Ebiten update and
// draws the ImGui overlay after the game's own Draw function.
type Game struct {
	Scheduler *ecs.Scheduler
	Backend   *ecs.Singleton[ImguiBackend]

	// DrawWorld, when set, draws the game below the overlay.
	DrawWorld func(screen *ebiten.Image)

	tps float64
}

// NewGame binds the ImguiBackend singleton of world, which must already exist.
func NewGame(world *ecs.World, scheduler *ecs.Scheduler) *Game {
	return &Game{
		Scheduler: scheduler,
		Backend:   ecs.NewSingleton[ImguiBackend](world),
		tps:       float64(ebiten.DefaultTPS),
	}
}

func (g *Game) Update() error {
	backend := g.Backend.Get()
	backend.BeginFrame()
	defer backend.EndFrame()

	return g.Scheduler.Once(1.0 / g.tps)
}

func (g *Game) Draw(screen *ebiten.Image) {
	if g.DrawWorld != nil {
		g.DrawWorld(screen)
	}
	g.Backend.Get().Draw(screen)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	g.Backend.Get().Layout(outsideWidth, outsideHeight)
	return outsideWidth, outsideHeight
}
