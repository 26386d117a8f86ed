package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/archecs/ecs"
)

type EntityInfo struct {
	ID             ecs.EntityId
	ArchetypeID    ecs.ArchetypeId
	ComponentTypes []string
	ComponentCount int
}

// EntityBrowserCache holds the entity list. It is rebuilt when the world's
// archetype version or entity count changes, or on request.
type EntityBrowserCache struct {
	entities      []EntityInfo
	version       uint64
	entityCount   int
	sortColumn    int
	sortAscending bool
}

const (
	entityColumnID = iota
	entityColumnArchetype
	entityColumnComponents
	entityColumnCount
)

func NewEntityBrowserComponent(maxEntitiesPerPage int) EntityBrowserComponent {
	return EntityBrowserComponent{
		cache: &EntityBrowserCache{
			sortColumn:    entityColumnID,
			sortAscending: true,
		},
		maxEntitiesPerPage: max(1, maxEntitiesPerPage),
	}
}

func (eb *EntityBrowserComponent) Render(world *ecs.World) {
	if !imgui.BeginV("Entity Browser", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}

	eb.rebuildCacheIfNeeded(world)

	imgui.InputTextWithHint("##search", "Search...", &eb.filterText, imgui.InputTextFlagsNone, nil)
	imgui.SameLine()
	if imgui.Button("Clear Filter") {
		eb.filterText = ""
		eb.filterArchetypeId = nil
		eb.currentPage = 0
	}
	imgui.SameLine()
	if imgui.Button("Refresh") {
		eb.cache.entities = nil
		eb.rebuildCacheIfNeeded(world)
	}

	filteredEntities := filterEntities(eb.cache.entities, eb.filterText, eb.filterArchetypeId)
	totalPages := max(1, (len(filteredEntities)+eb.maxEntitiesPerPage-1)/eb.maxEntitiesPerPage)
	eb.currentPage = min(eb.currentPage, totalPages-1)

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg | imgui.TableFlagsSortable | imgui.TableFlagsScrollY
	if imgui.BeginTableV("EntityTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Entity ID")
		imgui.TableSetupColumn("Archetype ID")
		imgui.TableSetupColumn("Components")
		imgui.TableSetupColumn("Count")
		imgui.TableHeadersRow()

		sortSpecs := imgui.TableGetSortSpecs()
		if sortSpecs.SpecsDirty() && sortSpecs.SpecsCount() > 0 {
			spec := sortSpecs.Specs()
			eb.cache.sortColumn = int(spec.ColumnIndex())
			eb.cache.sortAscending = spec.SortDirection() == imgui.SortDirectionAscending
			sortEntityInfos(eb.cache.entities, eb.cache.sortColumn, eb.cache.sortAscending)
			filteredEntities = filterEntities(eb.cache.entities, eb.filterText, eb.filterArchetypeId)
			sortSpecs.SetSpecsDirty(false)
		}

		startIdx := eb.currentPage * eb.maxEntitiesPerPage
		endIdx := min(startIdx+eb.maxEntitiesPerPage, len(filteredEntities))

		for _, entity := range filteredEntities[startIdx:endIdx] {
			imgui.TableNextRow()

			imgui.TableNextColumn()
			isSelected := eb.selectedEntityId == entity.ID
			alive := world.Alive(entity.ID)
			label := entity.ID.String()
			if !alive {
				label += " (gone)"
			}
			if imgui.SelectableBoolV(label, isSelected, imgui.SelectableFlagsSpanAllColumns, imgui.NewVec2(0, 0)) && alive {
				eb.selectedEntityId = entity.ID
			}

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("#%d", entity.ArchetypeID))

			imgui.TableNextColumn()
			imgui.Text(strings.Join(entity.ComponentTypes, ", "))

			imgui.TableNextColumn()
			imgui.Text(fmt.Sprintf("%d", entity.ComponentCount))
		}

		imgui.EndTable()
	}

	if len(filteredEntities) > eb.maxEntitiesPerPage {
		imgui.Text(fmt.Sprintf("Page %d / %d (%d entities)", eb.currentPage+1, totalPages, len(filteredEntities)))
		imgui.SameLine()
		if imgui.Button("Prev") && eb.currentPage > 0 {
			eb.currentPage--
		}
		imgui.SameLine()
		if imgui.Button("Next") && eb.currentPage < totalPages-1 {
			eb.currentPage++
		}
	} else {
		imgui.Text(fmt.Sprintf("Total: %d entities", len(filteredEntities)))
	}

	imgui.End()
}

func (eb *EntityBrowserComponent) rebuildCacheIfNeeded(world *ecs.World) {
	if eb.cache.version != world.Version() || eb.cache.entityCount != world.Len() {
		eb.cache.entities = nil
	}

	if eb.cache.entities == nil {
		eb.cache.entities = collectEntities(world)
		eb.cache.version = world.Version()
		eb.cache.entityCount = world.Len()
		sortEntityInfos(eb.cache.entities, eb.cache.sortColumn, eb.cache.sortAscending)
	}
}

// SetArchetypeFilter limits the list to one archetype.
func (eb *EntityBrowserComponent) SetArchetypeFilter(id ecs.ArchetypeId) {
	eb.filterArchetypeId = &id
	eb.currentPage = 0
}

func (eb *EntityBrowserComponent) GetSelectedEntity() ecs.EntityId {
	return eb.selectedEntityId
}

func collectEntities(world *ecs.World) []EntityInfo {
	registry := world.Registry()
	entities := make([]EntityInfo, 0, world.Len())

	for _, archetype := range world.Archetypes() {
		if archetype.Len() == 0 {
			continue
		}
		ids := archetype.Signature().IDs()
		componentTypes := registry.Names(ids)

		for _, entityId := range archetype.Iter() {
			entities = append(entities, EntityInfo{
				ID:             entityId,
				ArchetypeID:    archetype.ID(),
				ComponentTypes: componentTypes,
				ComponentCount: len(ids),
			})
		}
	}

	return entities
}

func sortEntityInfos(entities []EntityInfo, column int, ascending bool) {
	sort.SliceStable(entities, func(i, j int) bool {
		a, b := entities[i], entities[j]
		if !ascending {
			a, b = b, a
		}

		switch column {
		case entityColumnArchetype:
			return a.ArchetypeID < b.ArchetypeID
		case entityColumnComponents:
			return strings.Join(a.ComponentTypes, ",") < strings.Join(b.ComponentTypes, ",")
		case entityColumnCount:
			return a.ComponentCount < b.ComponentCount
		default:
			return a.ID < b.ID
		}
	})
}

// filterEntities keeps entities whose id, archetype or component names
// contain text (case-insensitive), optionally restricted to one archetype.
func filterEntities(entities []EntityInfo, text string, archetype *ecs.ArchetypeId) []EntityInfo {
	if text == "" && archetype == nil {
		return entities
	}

	filtered := make([]EntityInfo, 0, len(entities))
	filterLower := strings.ToLower(text)

	for _, entity := range entities {
		if archetype != nil && entity.ArchetypeID != *archetype {
			continue
		}

		if text != "" {
			idStr := entity.ID.String()
			archStr := fmt.Sprintf("#%d", entity.ArchetypeID)
			componentsStr := strings.ToLower(strings.Join(entity.ComponentTypes, " "))

			if !strings.Contains(idStr, filterLower) &&
				!strings.Contains(archStr, filterLower) &&
				!strings.Contains(componentsStr, filterLower) {
				continue
			}
		}

		filtered = append(filtered, entity)
	}

	return filtered
}
