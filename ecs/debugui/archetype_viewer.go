package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/archecs/ecs"
)

type ArchetypeInfo struct {
	ID             ecs.ArchetypeId
	ComponentTypes []string
	EntityCount    int
	Capacity       int
	ComponentCount int
}

type ArchetypeViewerCache struct {
	archetypes    []ArchetypeInfo
	version       uint64
	sortColumn    int
	sortAscending bool
}

const (
	archetypeColumnID = iota
	archetypeColumnComponents
	archetypeColumnComponentCount
	archetypeColumnEntities
	archetypeColumnCapacity
)

func NewArchetypeViewerComponent() ArchetypeViewerComponent {
	return ArchetypeViewerComponent{
		cache: &ArchetypeViewerCache{
			sortColumn:    archetypeColumnEntities,
			sortAscending: false,
		},
	}
}

// Render draws the archetype table and returns the archetype clicked this
// frame, if any.
func (av *ArchetypeViewerComponent) Render(world *ecs.World) *ecs.ArchetypeId {
	if !imgui.BeginV("Archetype Viewer", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return nil
	}

	av.refresh(world)

	imgui.Checkbox("Hide empty", &av.hideEmpty)
	imgui.SameLine()
	imgui.Text(fmt.Sprintf("%d archetypes, version %d", len(av.cache.archetypes), av.cache.version))

	maxEntityCount := 0
	for _, arch := range av.cache.archetypes {
		maxEntityCount = max(maxEntityCount, arch.EntityCount)
	}

	var clickedArchId *ecs.ArchetypeId

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("ArchetypeTable", 5, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Archetype ID")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Comp Count")
		imgui.TableSetupColumn("Entity Count")
		imgui.TableSetupColumn("Capacity")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			av.cache.sortColumn = int(spec.ColumnIndex())
			av.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortArchetypeInfos(av.cache.archetypes, av.cache.sortColumn, av.cache.sortAscending)
			sortSpecs.SetSpecsDirty(false)
		}

		for _, arch := range av.cache.archetypes {
			if av.hideEmpty && arch.EntityCount == 0 {
				continue
			}
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := av.selectedArchId != nil && *av.selectedArchId == arch.ID
			if imgui.SelectableBoolV(fmt.Sprintf("#%d", arch.ID), isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) {
				archIdCopy := arch.ID
				clickedArchId = &archIdCopy
				av.selectedArchId = &archIdCopy
			}

			imgui.TableNextColumn()
			imgui.Text(strings.Join(arch.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", arch.ComponentCount))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", arch.EntityCount))

			if maxEntityCount > 0 {
				barWidth := float32(arch.EntityCount) / float32(maxEntityCount) * 80.0
				imgui.SameLine()
				drawList := imgui.WindowDrawList()
				pos := imgui.CursorScreenPos()
				color := imgui.ColorU32Vec4(imgui.NewVec4(0.2, 0.6, 0.8, 0.6))
				drawList.AddRectFilled(pos, imgui.NewVec2(pos.X+barWidth, pos.Y+10), color)
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", arch.Capacity))
		}

		imgui.EndTable()
	}

	imgui.End()
	return clickedArchId
}

// refresh rebuilds the list when new archetypes exist and otherwise only
// updates the row counts.
func (av *ArchetypeViewerComponent) refresh(world *ecs.World) {
	if av.cache.archetypes == nil || av.cache.version != world.Version() {
		av.cache.archetypes = collectArchetypes(world)
		av.cache.version = world.Version()
	} else {
		for i := range av.cache.archetypes {
			a := world.Archetype(av.cache.archetypes[i].ID)
			av.cache.archetypes[i].EntityCount = a.Len()
			av.cache.archetypes[i].Capacity = a.Cap()
		}
	}
	sortArchetypeInfos(av.cache.archetypes, av.cache.sortColumn, av.cache.sortAscending)
}

func collectArchetypes(world *ecs.World) []ArchetypeInfo {
	registry := world.Registry()
	archetypes := world.Archetypes()
	infos := make([]ArchetypeInfo, 0, len(archetypes))

	for _, a := range archetypes {
		ids := a.Signature().IDs()
		infos = append(infos, ArchetypeInfo{
			ID:             a.ID(),
			ComponentTypes: registry.Names(ids),
			EntityCount:    a.Len(),
			Capacity:       a.Cap(),
			ComponentCount: len(ids),
		})
	}
	return infos
}

func sortArchetypeInfos(infos []ArchetypeInfo, column int, ascending bool) {
	sort.SliceStable(infos, func(i, j int) bool {
		a, b := infos[i], infos[j]
		if !ascending {
			a, b = b, a
		}

		switch column {
		case archetypeColumnID:
			return a.ID < b.ID
		case archetypeColumnComponents:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case archetypeColumnComponentCount:
			return a.ComponentCount < b.ComponentCount
		case archetypeColumnCapacity:
			return a.Capacity < b.Capacity
		default:
			return a.EntityCount < b.EntityCount
		}
	})
}
