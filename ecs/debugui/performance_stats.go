package debugui

import (
	"fmt"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/archecs/ecs"
)

func NewPerformanceStatsComponent(historyFrames int) PerformanceStatsComponent {
	historyFrames = max(1, historyFrames)
	return PerformanceStatsComponent{
		historyFrames: historyFrames,
		frameHistory:  make([]float32, historyFrames),
	}
}

// Record stores one frame duration, in seconds, in the ring buffer.
func (ps *PerformanceStatsComponent) Record(deltaTime float64) {
	ps.frameHistory[ps.frameIndex] = float32(deltaTime * 1000.0)
	ps.frameIndex = (ps.frameIndex + 1) % ps.historyFrames
}

// AverageFrameTime returns the mean of the recorded frames in milliseconds.
// Slots never written are skipped.
func (ps *PerformanceStatsComponent) AverageFrameTime() float32 {
	var sum float32
	n := 0
	for _, ft := range ps.frameHistory {
		if ft > 0 {
			sum += ft
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

// Render draws world statistics. scheduler may be nil.
func (ps *PerformanceStatsComponent) Render(world *ecs.World, scheduler *ecs.Scheduler, deltaTime float64) {
	if !imgui.BeginV("Performance Stats", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}
	defer imgui.End()

	ps.Record(deltaTime)
	stats := world.CollectStats()

	imgui.Text(fmt.Sprintf("World: %s", world.ID()))
	imgui.Text(fmt.Sprintf("Total Entities: %d", stats.TotalEntityCount))
	imgui.Text(fmt.Sprintf("Archetypes: %d (capacity %d rows)", stats.ArchetypeCount, stats.TotalCapacity))
	imgui.Text(fmt.Sprintf("Cached Queries: %d", stats.GroupCount))
	imgui.Text(fmt.Sprintf("Singletons: %d", stats.SingletonCount))

	avgFrameTime := ps.AverageFrameTime()
	if avgFrameTime > 0 {
		imgui.Text(fmt.Sprintf("Avg Frame Time: %.2f ms (%.0f FPS)", avgFrameTime, 1000.0/avgFrameTime))
	}

	imgui.Separator()
	imgui.Text("Frame Time Graph (ms)")
	imgui.PlotLinesFloatPtr("##frametime", &ps.frameHistory[0], int32(len(ps.frameHistory)))

	if imgui.TreeNodeStr("Archetype Details") {
		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("ArchStatsTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Archetype ID")
			imgui.TableSetupColumn("Components")
			imgui.TableSetupColumn("Entity Count")
			imgui.TableSetupColumn("Capacity")
			imgui.TableHeadersRow()

			for _, arch := range stats.ArchetypeBreakdown {
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("#%d", arch.ID))
				imgui.TableNextColumn()
				imgui.Text(strings.Join(arch.ComponentTypes, ", "))
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", arch.EntityCount))
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", arch.Capacity))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	if scheduler != nil && imgui.TreeNodeStr("System Timings") {
		schedStats := scheduler.GetStats()
		imgui.Text(fmt.Sprintf("Flush failures: %d", schedStats.FlushFailures))

		const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
		if imgui.BeginTableV("SystemStatsTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("System")
			imgui.TableSetupColumn("Runs")
			imgui.TableSetupColumn("Last")
			imgui.TableSetupColumn("Avg")
			imgui.TableHeadersRow()

			for _, sys := range schedStats.Systems {
				name := sys.Name
				if sys.ReadOnly {
					name += " (read)"
				}
				imgui.TableNextRow()
				imgui.TableNextColumn()
				imgui.Text(name)
				imgui.TableNextColumn()
				imgui.Text(fmt.Sprintf("%d", sys.ExecutionCount))
				imgui.TableNextColumn()
				imgui.Text(sys.LastDuration.String())
				imgui.TableNextColumn()
				imgui.Text(sys.AvgDuration.String())
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}

	if imgui.TreeNodeStr("Singleton Details") {
		for _, singletonType := range stats.SingletonTypes {
			imgui.BulletText(singletonType)
		}
		imgui.TreePop()
	}
}
