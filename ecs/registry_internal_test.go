package ecs

import (
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type overflowComponent struct{ V int }

// fillRegistry pads r with placeholder int components up to n ids.
func fillRegistry(r *ComponentRegistry, n int) {
	for len(r.infos) < n {
		id := ComponentId(len(r.infos))
		r.infos = append(r.infos, &componentInfo{
			id:       id,
			typ:      reflect.TypeFor[int](),
			newValue: func() any { return new(int) },
			newPool:  func() componentPool { return &genericComponentPool[int]{} },
		})
	}
}

func TestRegisterComponentOverflow(t *testing.T) {
	registry := NewComponentRegistry()
	fillRegistry(registry, MaxComponentTypes)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		RegisterComponent[overflowComponent](registry)
	}()

	require.NotNil(t, recovered)
	err, ok := recovered.(error)
	require.True(t, ok, "panic value should be an error, got %T", recovered)
	assert.True(t, errors.Is(err, ErrMaxComponentTypesExceeded))
	assert.Equal(t, MaxComponentTypes, registry.Len())
}

func TestRegisterComponentLastId(t *testing.T) {
	registry := NewComponentRegistry()
	fillRegistry(registry, MaxComponentTypes-1)

	id := RegisterComponent[overflowComponent](registry)
	assert.Equal(t, ComponentId(MaxComponentTypes-1), id)
}

func TestRegisterComponentCodec(t *testing.T) {
	registry := NewComponentRegistry()
	id := RegisterComponentCodec(registry,
		func(v *overflowComponent) ([]byte, error) { return []byte{byte(v.V)}, nil },
		func(data []byte, v *overflowComponent) error {
			v.V = int(data[0])
			return nil
		},
	)

	info := registry.info(id)
	data, err := info.encode(&overflowComponent{V: 7})
	require.NoError(t, err)
	assert.Equal(t, []byte{7}, data)

	var decoded overflowComponent
	require.NoError(t, info.decode([]byte{9}, &decoded))
	assert.Equal(t, 9, decoded.V)
}

func TestDefaultCodec(t *testing.T) {
	type fixed struct {
		X, Y float32
		N    int32
	}
	type variable struct {
		Name string
		Tags []string
	}

	fixedCodec := defaultCodec[fixed]()
	data, err := fixedCodec.encode(&fixed{X: 1, Y: 2, N: -3})
	require.NoError(t, err)
	assert.Len(t, data, 12)

	var f fixed
	require.NoError(t, fixedCodec.decode(data, &f))
	assert.Equal(t, fixed{X: 1, Y: 2, N: -3}, f)

	variableCodec := defaultCodec[variable]()
	data, err = variableCodec.encode(&variable{Name: "orc", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name":"orc","Tags":["a"]}`, string(data))

	var v variable
	require.NoError(t, variableCodec.decode(data, &v))
	assert.Equal(t, "orc", v.Name)
}

func TestDefaultCodecUnserializable(t *testing.T) {
	type inner struct{ secret int }
	type nested struct {
		Stats inner
	}
	type callback struct {
		OnHit func()
	}
	type padded struct {
		X int32
		_ int32
	}

	assert.Equal(t, "unexported field Stats.secret", unserializable(reflect.TypeFor[nested](), "", nil))
	assert.Equal(t, "field OnHit of type func()", unserializable(reflect.TypeFor[callback](), "", nil))
	assert.Equal(t, "unexported field secret", unserializable(reflect.TypeFor[map[string][]inner](), "", nil))
	assert.Empty(t, unserializable(reflect.TypeFor[padded](), "", nil))

	codec := defaultCodec[nested]()
	_, err := codec.encode(&nested{})
	assert.ErrorIs(t, err, ErrSnapshotFormat)
	assert.ErrorIs(t, codec.decode([]byte{0}, &nested{}), ErrSnapshotFormat)
}
