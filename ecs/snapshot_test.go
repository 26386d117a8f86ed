package ecs_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/plus3/archecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func snapshotHeader(registry *ecs.ComponentRegistry) []byte {
	buf := []byte("ECSS")
	buf = append(buf, 1)
	return binary.LittleEndian.AppendUint64(buf, registry.Fingerprint())
}

func TestSnapshotRoundTrip(t *testing.T) {
	src := newTestWorld()
	e1, _ := src.Spawn(Position{X: 1, Y: 2}, Velocity{DX: 3})
	e2, _ := src.Spawn(Name{Value: "goblin"}, Health{Current: 4, Max: 8})
	e3, _ := src.Spawn()
	e4, _ := src.Spawn(Inventory{Items: []string{"sword", "rope"}}, Score(12), Tag("boss"))
	gone, _ := src.Spawn(Position{})
	require.NoError(t, src.Despawn(gone))

	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))

	dst := ecs.NewWorld(newTestRegistry())
	_, _ = dst.Spawn(Position{X: 99})

	mapping, err := dst.ReadSnapshot(&buf)
	require.NoError(t, err)
	require.Len(t, mapping, 4)
	assert.Equal(t, 5, dst.Len())
	assert.NotContains(t, mapping, gone)

	pos, err := ecs.GetComponent[Position](dst, mapping[e1])
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1, Y: 2}, *pos)
	vel, _ := ecs.GetComponent[Velocity](dst, mapping[e1])
	assert.Equal(t, Velocity{DX: 3}, *vel)

	name, _ := ecs.GetComponent[Name](dst, mapping[e2])
	assert.Equal(t, "goblin", name.Value)
	hp, _ := ecs.GetComponent[Health](dst, mapping[e2])
	assert.Equal(t, Health{Current: 4, Max: 8}, *hp)

	a, _, err := dst.Location(mapping[e3])
	require.NoError(t, err)
	assert.Equal(t, ecs.ArchetypeId(0), a.ID())

	inv, _ := ecs.GetComponent[Inventory](dst, mapping[e4])
	assert.Equal(t, []string{"sword", "rope"}, inv.Items)
	score, _ := ecs.GetComponent[Score](dst, mapping[e4])
	assert.Equal(t, Score(12), *score)
	tag, _ := ecs.GetComponent[Tag](dst, mapping[e4])
	assert.Equal(t, Tag("boss"), *tag)
}

func TestSnapshotZeroComponentRecord(t *testing.T) {
	w := newTestWorld()

	data := snapshotHeader(w.Registry())
	data = binary.LittleEndian.AppendUint64(data, uint64(ecs.NewEntityId(3, 1)))
	data = append(data, 0x00)

	mapping, err := w.ReadSnapshot(bytes.NewReader(data))
	require.NoError(t, err)
	require.Len(t, mapping, 1)

	e := mapping[ecs.NewEntityId(3, 1)]
	assert.True(t, w.Alive(e))
	a, _, _ := w.Location(e)
	assert.Equal(t, 0, a.Signature().Len())
}

func TestSnapshotTruncatedRecord(t *testing.T) {
	src := newTestWorld()
	e, _ := src.Spawn(Position{X: 7}, Velocity{DX: 1}, Health{Current: 3})

	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))
	full := buf.Bytes()

	// Position (8 bytes) and Velocity (8 bytes) are complete, Health is cut.
	cut := len(snapshotHeader(src.Registry())) + 8 + 2*(3+8) + 5
	require.Less(t, cut, len(full))

	core, logs := observer.New(zap.WarnLevel)
	dst := ecs.NewWorld(newTestRegistry(), ecs.WithLogger(zap.New(core)))

	mapping, err := dst.ReadSnapshot(bytes.NewReader(full[:cut]))
	require.NoError(t, err)
	require.Len(t, mapping, 1)

	restored := mapping[e]
	assert.True(t, ecs.HasComponent[Position](dst, restored))
	assert.True(t, ecs.HasComponent[Velocity](dst, restored))
	assert.False(t, ecs.HasComponent[Health](dst, restored))
	pos, _ := ecs.GetComponent[Position](dst, restored)
	assert.Equal(t, float32(7), pos.X)

	assert.Equal(t, 1, logs.FilterMessage("snapshot ends inside an entity record").Len())
}

func TestSnapshotTruncatedEntityId(t *testing.T) {
	w := newTestWorld()
	data := append(snapshotHeader(w.Registry()), 1, 2, 3)

	mapping, err := w.ReadSnapshot(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Empty(t, mapping)
	assert.Equal(t, 0, w.Len())
}

func TestSnapshotRejectsForeignRegistry(t *testing.T) {
	src := newTestWorld()
	_, _ = src.Spawn(Position{})
	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))

	other := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Velocity](other)
	ecs.RegisterComponent[Position](other)

	_, err := ecs.NewWorld(other).ReadSnapshot(&buf)
	assert.ErrorIs(t, err, ecs.ErrSnapshotSchema)
}

func TestSnapshotMalformed(t *testing.T) {
	w := newTestWorld()

	_, err := w.ReadSnapshot(bytes.NewReader([]byte("EC")))
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)

	bad := snapshotHeader(w.Registry())
	bad[0] = 'X'
	_, err = w.ReadSnapshot(bytes.NewReader(bad))
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)

	version := snapshotHeader(w.Registry())
	version[4] = 9
	_, err = w.ReadSnapshot(bytes.NewReader(version))
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)

	tag := snapshotHeader(w.Registry())
	tag = binary.LittleEndian.AppendUint64(tag, 1)
	tag = append(tag, 0x07)
	_, err = w.ReadSnapshot(bytes.NewReader(tag))
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)

	unknown := snapshotHeader(w.Registry())
	unknown = binary.LittleEndian.AppendUint64(unknown, 1)
	unknown = append(unknown, 0x01, 200, 0, 0x00)
	_, err = w.ReadSnapshot(bytes.NewReader(unknown))
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)

	dup := snapshotHeader(w.Registry())
	dup = binary.LittleEndian.AppendUint64(dup, 1)
	for i := 0; i < 2; i++ {
		dup = append(dup, 0x01, byte(idOf[Score](w)), 4, 1, 0, 0, 0)
	}
	dup = append(dup, 0x00)
	_, err = w.ReadSnapshot(bytes.NewReader(dup))
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)
}

func TestSnapshotCustomCodec(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponentCodec(registry,
		func(v *Temperature) ([]byte, error) { return []byte{byte(*v)}, nil },
		func(data []byte, v *Temperature) error {
			*v = Temperature(data[0])
			return nil
		},
	)
	w := ecs.NewWorld(registry)
	e, _ := w.Spawn(Temperature(21))

	var buf bytes.Buffer
	require.NoError(t, w.WriteSnapshot(&buf))
	assert.Equal(t, len(snapshotHeader(registry))+8+3+1+1, buf.Len())

	dst := ecs.NewWorld(registry)
	mapping, err := dst.ReadSnapshot(&buf)
	require.NoError(t, err)
	temp, _ := ecs.GetComponent[Temperature](dst, mapping[e])
	assert.Equal(t, Temperature(21), *temp)
}

type hiddenHP struct {
	hp int32
}

type namedMob struct {
	HP   int
	name string
}

func TestSnapshotRejectsUnexportedFields(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[hiddenHP](registry)
	ecs.RegisterComponent[namedMob](registry)

	fixed := ecs.NewWorld(registry)
	_, _ = fixed.Spawn(hiddenHP{hp: 7})
	var buf bytes.Buffer
	err := fixed.WriteSnapshot(&buf)
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)
	assert.ErrorContains(t, err, "unexported field hp")

	variable := ecs.NewWorld(registry)
	_, _ = variable.Spawn(namedMob{HP: 7, name: "orc"})
	buf.Reset()
	err = variable.WriteSnapshot(&buf)
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)
	assert.ErrorContains(t, err, "unexported field name")
}

func TestSnapshotUnexportedFieldsWithCodec(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponentCodec(registry,
		func(v *hiddenHP) ([]byte, error) {
			return binary.LittleEndian.AppendUint32(nil, uint32(v.hp)), nil
		},
		func(data []byte, v *hiddenHP) error {
			v.hp = int32(binary.LittleEndian.Uint32(data))
			return nil
		},
	)
	ecs.RegisterComponentCodec(registry,
		func(v *namedMob) ([]byte, error) {
			return append([]byte{byte(v.HP)}, v.name...), nil
		},
		func(data []byte, v *namedMob) error {
			v.HP, v.name = int(data[0]), string(data[1:])
			return nil
		},
	)

	src := ecs.NewWorld(registry)
	e, _ := src.Spawn(hiddenHP{hp: 7}, namedMob{HP: 3, name: "orc"})

	var buf bytes.Buffer
	require.NoError(t, src.WriteSnapshot(&buf))

	dst := ecs.NewWorld(registry)
	mapping, err := dst.ReadSnapshot(&buf)
	require.NoError(t, err)

	hp, err := ecs.GetComponent[hiddenHP](dst, mapping[e])
	require.NoError(t, err)
	assert.Equal(t, int32(7), hp.hp)
	mob, err := ecs.GetComponent[namedMob](dst, mapping[e])
	require.NoError(t, err)
	assert.Equal(t, namedMob{HP: 3, name: "orc"}, *mob)
}

func TestSnapshotPanickingDecoder(t *testing.T) {
	registry := ecs.NewComponentRegistry()
	id := ecs.RegisterComponentCodec(registry,
		func(v *Temperature) ([]byte, error) { return []byte{byte(*v)}, nil },
		func(data []byte, v *Temperature) error {
			*v = Temperature(data[0])
			return nil
		},
	)
	w := ecs.NewWorld(registry)

	data := snapshotHeader(registry)
	data = binary.LittleEndian.AppendUint64(data, uint64(ecs.NewEntityId(1, 1)))
	data = append(data, 0x01, byte(id), 0, 0x00)

	var err error
	require.NotPanics(t, func() {
		_, err = w.ReadSnapshot(bytes.NewReader(data))
	})
	assert.ErrorIs(t, err, ecs.ErrSnapshotFormat)
	assert.Equal(t, 0, w.Len())
}
