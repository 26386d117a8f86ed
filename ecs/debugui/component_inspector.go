package debugui

import (
	"fmt"
	"reflect"

	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/plus3/archecs/ecs"
	"github.com/rotisserie/eris"
)

var errFieldNotSettable = eris.New("field is not settable")

func NewComponentInspectorComponent() ComponentInspectorComponent {
	return ComponentInspectorComponent{fields: NewReflectionCache()}
}

func (ci *ComponentInspectorComponent) Render(world *ecs.World, selectedEntityId ecs.EntityId) {
	if !imgui.BeginV("Component Inspector", nil, imgui.WindowFlagsNone) {
		imgui.End()
		return
	}
	defer imgui.End()

	ci.selectedEntityId = selectedEntityId
	if ci.selectedEntityId == 0 {
		imgui.Text("No entity selected")
		return
	}

	archetype, row, err := world.Location(ci.selectedEntityId)
	if err != nil {
		imgui.Text(fmt.Sprintf("Entity %s is gone", ci.selectedEntityId))
		return
	}

	imgui.Text(fmt.Sprintf("Entity ID: %s", ci.selectedEntityId))
	imgui.Text(fmt.Sprintf("Archetype: #%d (row %d)", archetype.ID(), row))
	imgui.Separator()

	registry := world.Registry()
	for _, id := range archetype.Signature().IDs() {
		component, err := archetype.Component(row, id)
		if err != nil {
			continue
		}

		name := registry.Name(id)
		if imgui.TreeNodeStr(fmt.Sprintf("%s##c%d", name, id)) {
			// component is a pointer into the archetype column, so edits
			// through Elem() are written straight to storage.
			ci.renderValue(name, fmt.Sprintf("c%d", id), reflect.ValueOf(component).Elem())
			imgui.TreePop()
		}
	}
}

func (ci *ComponentInspectorComponent) renderValue(name, id string, val reflect.Value) {
	if !val.IsValid() {
		imgui.Text(fmt.Sprintf("%s: <invalid>", name))
		return
	}

	label := fmt.Sprintf("##%s", id)

	switch val.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		v := int32(0)
		if val.CanInt() {
			v = int32(val.Int())
		} else {
			v = int32(val.Uint())
		}
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputInt(label, &v) {
			_ = setScalar(val, int64(v))
		}

	case reflect.Float32, reflect.Float64:
		v := float32(val.Float())
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(150)
		if imgui.InputFloat(label, &v) {
			_ = setScalar(val, float64(v))
		}

	case reflect.Bool:
		v := val.Bool()
		if imgui.Checkbox(name+label, &v) {
			_ = setScalar(val, v)
		}

	case reflect.String:
		v := val.String()
		imgui.Text(fmt.Sprintf("%s:", name))
		imgui.SameLine()
		imgui.SetNextItemWidth(200)
		if imgui.InputTextWithHint(label, "", &v, imgui.InputTextFlagsNone, nil) {
			_ = setScalar(val, v)
		}

	case reflect.Pointer:
		if val.IsNil() {
			imgui.Text(fmt.Sprintf("%s: nil", name))
			return
		}
		ci.renderValue(name, id, val.Elem())

	case reflect.Struct:
		if imgui.TreeNodeStr(name + label) {
			for _, field := range ci.fields.Fields(val.Type()) {
				ci.renderValue(field.Name, fmt.Sprintf("%s.%d", id, field.Index), val.Field(field.Index))
			}
			imgui.TreePop()
		}

	case reflect.Slice, reflect.Array:
		imgui.Text(fmt.Sprintf("%s: [%d items]", name, val.Len()))

	case reflect.Map:
		imgui.Text(fmt.Sprintf("%s: map[%d items]", name, val.Len()))

	default:
		imgui.Text(fmt.Sprintf("%s: %v", name, val))
	}
}

// setScalar stores value into the addressable field dst, converting between
// the widths of the same numeric family. Values that would overflow dst are
// rejected and dst is left unchanged.
func setScalar(dst reflect.Value, value any) error {
	if !dst.CanSet() {
		return errFieldNotSettable
	}

	switch v := value.(type) {
	case int64:
		switch {
		case dst.CanInt():
			if dst.OverflowInt(v) {
				return eris.Errorf("%d overflows %s", v, dst.Type())
			}
			dst.SetInt(v)
		case dst.CanUint():
			if v < 0 || dst.OverflowUint(uint64(v)) {
				return eris.Errorf("%d overflows %s", v, dst.Type())
			}
			dst.SetUint(uint64(v))
		default:
			return eris.Errorf("cannot store integer in %s", dst.Type())
		}
	case float64:
		if !dst.CanFloat() {
			return eris.Errorf("cannot store float in %s", dst.Type())
		}
		if dst.OverflowFloat(v) {
			return eris.Errorf("%g overflows %s", v, dst.Type())
		}
		dst.SetFloat(v)
	case bool:
		if dst.Kind() != reflect.Bool {
			return eris.Errorf("cannot store bool in %s", dst.Type())
		}
		dst.SetBool(v)
	case string:
		if dst.Kind() != reflect.String {
			return eris.Errorf("cannot store string in %s", dst.Type())
		}
		dst.SetString(v)
	default:
		return eris.Errorf("unsupported value type %T", value)
	}
	return nil
}
