package debugui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/archecs/ecs"
)

// FilterRole is the part a component plays in the filter being built.
type FilterRole uint8

const (
	RoleIgnore FilterRole = iota
	RoleRequire
	RoleAny
	RoleExclude
)

func (r FilterRole) String() string {
	switch r {
	case RoleRequire:
		return "require"
	case RoleAny:
		return "any"
	case RoleExclude:
		return "exclude"
	default:
		return "ignore"
	}
}

type componentEntry struct {
	id   ecs.ComponentId
	name string
}

type QueryDebuggerCache struct {
	components    []componentEntry
	registryCount int
}

func NewQueryDebuggerComponent() QueryDebuggerComponent {
	return QueryDebuggerComponent{
		roles: make(map[ecs.ComponentId]FilterRole),
		cache: &QueryDebuggerCache{registryCount: -1},
	}
}

func (qd *QueryDebuggerComponent) Render(world *ecs.World) {
	if !imgui.BeginV("Query Debugger", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}
	defer imgui.End()

	qd.rebuildCacheIfNeeded(world.Registry())

	imgui.Text("Component Roles:")
	imgui.Separator()

	if imgui.Button("Clear All") {
		clear(qd.roles)
	}

	const tableFlags = imgui.TableFlagsBorders | imgui.TableFlagsRowBg
	if imgui.BeginTableV("QueryRoleTable", 4, tableFlags, imgui.NewVec2(0, 0), 0) {
		imgui.TableSetupColumn("Component")
		imgui.TableSetupColumn("Require")
		imgui.TableSetupColumn("Any")
		imgui.TableSetupColumn("Exclude")
		imgui.TableHeadersRow()

		for _, entry := range qd.cache.components {
			imgui.TableNextRow()
			imgui.TableNextColumn()
			imgui.Text(entry.name)

			for _, role := range []FilterRole{RoleRequire, RoleAny, RoleExclude} {
				imgui.TableNextColumn()
				checked := qd.roles[entry.id] == role
				if imgui.Checkbox(fmt.Sprintf("##%s%d", role, entry.id), &checked) {
					qd.SetRole(entry.id, role, checked)
				}
			}
		}
		imgui.EndTable()
	}

	imgui.Separator()

	filter := buildFilter(qd.roles)
	if filter.IsEmpty() {
		imgui.Text("No components selected")
		return
	}

	registry := world.Registry()
	imgui.Text(describeFilter(filter, registry))

	group := world.Query(filter)
	imgui.Text(fmt.Sprintf("Matching Archetypes: %d", group.Len()))
	imgui.Text(fmt.Sprintf("Matching Entities: %d", group.EntityCount()))

	if imgui.TreeNodeStr("Archetype Details") {
		if imgui.BeginTableV("QueryArchTable", 3, tableFlags, imgui.NewVec2(0, 0), 0) {
			imgui.TableSetupColumn("Archetype ID")
			imgui.TableSetupColumn("All Components")
			imgui.TableSetupColumn("Entity Count")
			imgui.TableHeadersRow()

			for arch := range group.Archetypes() {
				imgui.TableNextRow()

				imgui.TableSetColumnIndex(0)
				imgui.Text(fmt.Sprintf("#%d", arch.ID()))

				imgui.TableSetColumnIndex(1)
				imgui.Text(strings.Join(registry.Names(arch.Signature().IDs()), ", "))

				imgui.TableSetColumnIndex(2)
				imgui.Text(fmt.Sprintf("%d", arch.Len()))
			}

			imgui.EndTable()
		}
		imgui.TreePop()
	}
}

// SetRole assigns role to id, or clears it when enabled is false and id
// currently has that role.
func (qd *QueryDebuggerComponent) SetRole(id ecs.ComponentId, role FilterRole, enabled bool) {
	switch {
	case enabled && role != RoleIgnore:
		qd.roles[id] = role
	case qd.roles[id] == role:
		delete(qd.roles, id)
	}
}

// Filter returns the filter described by the current roles.
func (qd *QueryDebuggerComponent) Filter() ecs.Filter {
	return buildFilter(qd.roles)
}

func (qd *QueryDebuggerComponent) rebuildCacheIfNeeded(registry *ecs.ComponentRegistry) {
	if qd.cache.registryCount == registry.Len() {
		return
	}
	qd.cache.registryCount = registry.Len()

	qd.cache.components = qd.cache.components[:0]
	for i := 0; i < registry.Len(); i++ {
		id := ecs.ComponentId(i)
		qd.cache.components = append(qd.cache.components, componentEntry{id: id, name: registry.Name(id)})
	}
	sort.SliceStable(qd.cache.components, func(i, j int) bool {
		return qd.cache.components[i].name < qd.cache.components[j].name
	})
}

func buildFilter(roles map[ecs.ComponentId]FilterRole) ecs.Filter {
	var all, anyOf, none []ecs.ComponentId
	for id, role := range roles {
		switch role {
		case RoleRequire:
			all = append(all, id)
		case RoleAny:
			anyOf = append(anyOf, id)
		case RoleExclude:
			none = append(none, id)
		}
	}
	return ecs.NewFilter(all, anyOf, none)
}

func describeFilter(f ecs.Filter, registry *ecs.ComponentRegistry) string {
	var parts []string
	if ids := f.AllIDs(); len(ids) > 0 {
		parts = append(parts, "all("+strings.Join(registry.Names(ids), ", ")+")")
	}
	if ids := f.AnyIDs(); len(ids) > 0 {
		parts = append(parts, "any("+strings.Join(registry.Names(ids), ", ")+")")
	}
	if ids := f.NoneIDs(); len(ids) > 0 {
		parts = append(parts, "none("+strings.Join(registry.Names(ids), ", ")+")")
	}
	return strings.Join(parts, " ")
}
