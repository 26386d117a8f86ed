package ecs

import (
	"reflect"
	"unsafe"
)

// singletonEntry is the world's single boxed value of one Go type. The box
// is allocated once and overwritten in place, so its address is stable until
// the entry is removed.
type singletonEntry struct {
	value   reflect.Value
	dataPtr unsafe.Pointer
	removed bool
}

// Singleton is a typed handle to the world's singleton of type T.
//
// Singletons live in a per-world table keyed by Go type, beside the archetype
// storage rather than in it: they belong to no entity, need no registration in
// the ComponentRegistry, never match a query and are not written to
// snapshots. A Singleton field on a system is bound by the Scheduler when the
// system is registered; elsewhere, use NewSingleton.
type Singleton[T any] struct {
	world *World
	entry *singletonEntry
}

// NewSingleton returns a handle to the world's T, first storing initializer
// (or the zero value) when the world has none.
func NewSingleton[T any](world *World, initializer ...T) *Singleton[T] {
	if world.getSingletonEntry(reflect.TypeFor[T]()) == nil {
		var value T
		if len(initializer) > 0 {
			value = initializer[0]
		}
		world.AddSingleton(value)
	}

	s := &Singleton[T]{}
	s.Init(world)
	return s
}

// Init binds the handle to world.
func (s *Singleton[T]) Init(world *World) {
	s.world = world
	s.entry = nil
	s.resolve()
}

// Get returns the world's T, or nil when it has none. The pointer stays valid
// across AddSingleton replacing the value; after RemoveSingleton it no longer
// refers to the world's state.
func (s *Singleton[T]) Get() *T {
	if !s.resolve() {
		return nil
	}
	return (*T)(s.entry.dataPtr)
}

// Exists reports whether the world currently holds a T.
func (s *Singleton[T]) Exists() bool {
	return s.resolve()
}

// resolve refreshes the cached entry when it is missing or was removed.
func (s *Singleton[T]) resolve() bool {
	if s.entry != nil && !s.entry.removed {
		return true
	}
	s.entry = nil
	if s.world == nil {
		return false
	}
	s.entry = s.world.getSingletonEntry(reflect.TypeFor[T]())
	return s.entry != nil
}

// AddSingleton stores value as the world's singleton of its dynamic type.
// An existing value is overwritten in place, so handles and pointers obtained
// earlier observe the new contents.
func (w *World) AddSingleton(value any) {
	t := reflect.TypeOf(value)
	if entry, ok := w.singletons[t]; ok {
		entry.value.Elem().Set(reflect.ValueOf(value))
		return
	}

	ptr := reflect.New(t)
	ptr.Elem().Set(reflect.ValueOf(value))
	w.singletons[t] = &singletonEntry{
		value:   ptr,
		dataPtr: ptr.UnsafePointer(),
	}
}

// RemoveSingleton drops the singleton of type t. Handles report it missing
// until a new one is added, which gets a fresh address.
func (w *World) RemoveSingleton(t reflect.Type) {
	if entry, ok := w.singletons[t]; ok {
		entry.removed = true
		delete(w.singletons, t)
	}
}

func (w *World) getSingletonEntry(t reflect.Type) *singletonEntry {
	return w.singletons[t]
}
