package ecs

import (
	"reflect"

	"github.com/rotisserie/eris"
)

func typedId[T any](w *World) (ComponentId, error) {
	id, ok := ComponentIdFor[T](w.registry)
	if !ok {
		return 0, eris.Wrapf(ErrComponentNotRegistered, "type %s", reflect.TypeFor[T]())
	}
	return id, nil
}

// AddComponent attaches value to e. It fails with ErrComponentAlreadyExists if
// e already carries a T.
func AddComponent[T any](w *World, e EntityId, value T) error {
	id, err := typedId[T](w)
	if err != nil {
		return err
	}
	a, row, err := w.addComponent(e, id)
	if err != nil {
		return err
	}
	a.pools[a.slots[id]].(*genericComponentPool[T]).set(row, value)
	return nil
}

// RemoveComponent detaches T from e and returns its last value.
func RemoveComponent[T any](w *World, e EntityId) (T, error) {
	var value T
	ptr, err := GetComponent[T](w, e)
	if err != nil {
		return value, err
	}
	value = *ptr

	id, _ := typedId[T](w)
	if err := w.removeComponent(e, id); err != nil {
		var zero T
		return zero, err
	}
	return value, nil
}

// GetComponent returns a pointer to e's T. The pointer is only valid until the
// next structural change in the world.
func GetComponent[T any](w *World, e EntityId) (*T, error) {
	id, err := typedId[T](w)
	if err != nil {
		return nil, err
	}
	a, row, err := w.Location(e)
	if err != nil {
		return nil, err
	}
	p, err := a.pool(id)
	if err != nil {
		return nil, eris.Wrapf(err, "entity %s", e)
	}
	return p.(*genericComponentPool[T]).get(row), nil
}

// HasComponent reports whether e is alive and carries a T.
func HasComponent[T any](w *World, e EntityId) bool {
	id, ok := ComponentIdFor[T](w.registry)
	if !ok {
		return false
	}
	return w.Has(e, id)
}

// SetComponent overwrites e's T, adding it first when missing.
func SetComponent[T any](w *World, e EntityId, value T) error {
	if ptr, err := GetComponent[T](w, e); err == nil {
		*ptr = value
		return nil
	}
	return AddComponent(w, e, value)
}

// ComponentReader is satisfied by World for the untyped accessors.
type ComponentReader interface {
	Get(EntityId, ComponentId) (any, error)
	Registry() *ComponentRegistry
}

// ReadComponent fetches e's T through any ComponentReader, returning nil when
// the entity or component is missing.
func ReadComponent[T any](reader ComponentReader, e EntityId) *T {
	id, ok := ComponentIdFor[T](reader.Registry())
	if !ok {
		return nil
	}
	v, err := reader.Get(e, id)
	if err != nil {
		return nil
	}
	return v.(*T)
}
