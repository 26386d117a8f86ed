package ecs

import (
	"encoding/binary"
	"encoding/json"
	"reflect"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/rotisserie/eris"
)

// ComponentId identifies a registered component type within one registry.
type ComponentId uint8

// componentInfo is the per-id factory table entry captured at registration.
type componentInfo struct {
	id       ComponentId
	typ      reflect.Type
	newValue func() any
	newPool  func() componentPool
	codec    any
	encode   func(value any) ([]byte, error)
	decode   func(data []byte, value any) error
}

// ComponentRegistry manages component type registration for an ECS instance.
// Each World is created from a registry; several worlds may share one, but
// ids are only meaningful within the registry that issued them.
type ComponentRegistry struct {
	mu    sync.RWMutex
	ids   map[reflect.Type]ComponentId
	infos []*componentInfo
}

// NewComponentRegistry creates a new component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		ids: make(map[reflect.Type]ComponentId),
	}
}

// RegisterComponent registers T and returns its id. Registering the same type
// again returns the existing id. Registering more than MaxComponentTypes types
// panics with ErrMaxComponentTypesExceeded.
func RegisterComponent[T any](r *ComponentRegistry) ComponentId {
	t := reflect.TypeFor[T]()

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[t]; ok {
		return id
	}

	switch t.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic("components cannot be pointers, maps, channels, functions or interfaces: " + t.String())
	}

	if len(r.infos) >= MaxComponentTypes {
		panic(eris.Wrapf(ErrMaxComponentTypesExceeded, "cannot register %s: limit is %d", t, MaxComponentTypes))
	}

	id := ComponentId(len(r.infos))
	codec := defaultCodec[T]()
	info := &componentInfo{
		id:       id,
		typ:      t,
		newValue: func() any { return new(T) },
		codec:    codec,
		newPool: func() componentPool {
			return &genericComponentPool[T]{}
		},
		encode: func(value any) ([]byte, error) {
			return codec.encode(value.(*T))
		},
		decode: func(data []byte, value any) error {
			return codec.decode(data, value.(*T))
		},
	}

	r.ids[t] = id
	r.infos = append(r.infos, info)
	return id
}

// RegisterComponentCodec registers T (if needed) and replaces the serializer
// used for it in snapshots. Pools created earlier pick up the new codec.
func RegisterComponentCodec[T any](r *ComponentRegistry, encode func(*T) ([]byte, error), decode func([]byte, *T) error) ComponentId {
	id := RegisterComponent[T](r)

	r.mu.Lock()
	defer r.mu.Unlock()

	codec := r.infos[id].codec.(*componentCodec[T])
	codec.encode = encode
	codec.decode = decode
	return id
}

// ComponentIdFor returns the id registered for T.
func ComponentIdFor[T any](r *ComponentRegistry) (ComponentId, bool) {
	return r.Lookup(reflect.TypeFor[T]())
}

// MustComponentId returns the id registered for T and panics if T was never registered.
func MustComponentId[T any](r *ComponentRegistry) ComponentId {
	id, ok := ComponentIdFor[T](r)
	if !ok {
		panic("component type " + reflect.TypeFor[T]().String() + " not registered")
	}
	return id
}

// Lookup returns the id registered for the given type.
func (r *ComponentRegistry) Lookup(t reflect.Type) (ComponentId, bool) {
	r.mu.RLock()
	id, ok := r.ids[t]
	r.mu.RUnlock()
	return id, ok
}

// Len returns the number of registered component types.
func (r *ComponentRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.infos)
}

// Type returns the Go type registered under id, or nil.
func (r *ComponentRegistry) Type(id ComponentId) reflect.Type {
	info := r.info(id)
	if info == nil {
		return nil
	}
	return info.typ
}

// Name returns a printable name for id.
func (r *ComponentRegistry) Name(id ComponentId) string {
	if t := r.Type(id); t != nil {
		return t.String()
	}
	return "#" + strconv.Itoa(int(id))
}

// Names maps ids to their printable names.
func (r *ComponentRegistry) Names(ids []ComponentId) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = r.Name(id)
	}
	return names
}

// New returns a pointer to a fresh zero value of the component type id.
func (r *ComponentRegistry) New(id ComponentId) (any, error) {
	info := r.info(id)
	if info == nil {
		return nil, eris.Wrapf(ErrComponentNotRegistered, "component id %d", id)
	}
	return info.newValue(), nil
}

// Fingerprint hashes the id-to-type table. Two registries with the same
// fingerprint assign the same ids to the same type names.
func (r *ComponentRegistry) Fingerprint() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d := xxhash.New()
	for _, info := range r.infos {
		_, _ = d.WriteString(strconv.Itoa(int(info.id)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(info.typ.String())
		_, _ = d.WriteString(";")
	}
	return d.Sum64()
}

func (r *ComponentRegistry) info(id ComponentId) *componentInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.infos) {
		return nil
	}
	return r.infos[id]
}

func (r *ComponentRegistry) newPool(id ComponentId) componentPool {
	info := r.info(id)
	if info == nil {
		panic("component id " + strconv.Itoa(int(id)) + " not registered")
	}
	return info.newPool()
}

// idOf resolves the component id of a value of type T or *T.
func (r *ComponentRegistry) idOf(component any) (ComponentId, error) {
	t := reflect.TypeOf(component)
	if t == nil {
		return 0, eris.Wrap(ErrComponentNotRegistered, "nil component")
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	id, ok := r.Lookup(t)
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "type %s", t)
	}
	return id, nil
}

type componentCodec[T any] struct {
	encode func(*T) ([]byte, error)
	decode func([]byte, *T) error
}

// defaultCodec uses fixed-size little-endian binary when T has a fixed
// encoding and JSON otherwise. Neither can reach unexported fields, so types
// that carry state the codecs cannot see get a codec that always fails until
// one is registered with RegisterComponentCodec.
func defaultCodec[T any]() *componentCodec[T] {
	if reason := unserializable(reflect.TypeFor[T](), "", nil); reason != "" {
		err := func() error {
			return eris.Wrapf(ErrSnapshotFormat, "default codec cannot round-trip %s (%s); register one with RegisterComponentCodec",
				reflect.TypeFor[T](), reason)
		}
		return &componentCodec[T]{
			encode: func(*T) ([]byte, error) { return nil, err() },
			decode: func([]byte, *T) error { return err() },
		}
	}

	var zero T
	if binary.Size(zero) >= 0 {
		return &componentCodec[T]{
			encode: func(v *T) ([]byte, error) {
				return binary.Append(nil, binary.LittleEndian, v)
			},
			decode: func(data []byte, v *T) error {
				_, err := binary.Decode(data, binary.LittleEndian, v)
				return err
			},
		}
	}
	return &componentCodec[T]{
		encode: func(v *T) ([]byte, error) {
			return json.Marshal(v)
		},
		decode: func(data []byte, v *T) error {
			return json.Unmarshal(data, v)
		},
	}
}

// unserializable describes the first field reachable from t that is
// unexported or holds an interface, function or channel, or returns "" when
// t is plain data. Blank fields are padding and are ignored.
func unserializable(t reflect.Type, path string, seen map[reflect.Type]bool) string {
	if seen[t] {
		return ""
	}
	if seen == nil {
		seen = make(map[reflect.Type]bool)
	}
	seen[t] = true

	switch t.Kind() {
	case reflect.Interface, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		if path == "" {
			return "value of type " + t.String()
		}
		return "field " + path + " of type " + t.String()
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return unserializable(t.Elem(), path, seen)
	case reflect.Map:
		if reason := unserializable(t.Key(), path, seen); reason != "" {
			return reason
		}
		return unserializable(t.Elem(), path, seen)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Name == "_" {
				continue
			}
			fieldPath := field.Name
			if path != "" {
				fieldPath = path + "." + field.Name
			}
			if !field.IsExported() {
				return "unexported field " + fieldPath
			}
			if reason := unserializable(field.Type, fieldPath, seen); reason != "" {
				return reason
			}
		}
	}
	return ""
}
