package ecs

import (
	"bufio"
	"encoding/binary"
	"errors"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const (
	snapshotMagic   = "ECSS"
	snapshotVersion = 1

	recordEnd       byte = 0x00
	recordComponent byte = 0x01

	maxSnapshotComponentSize = 1 << 24
)

// WriteSnapshot serializes every live entity. The stream starts with a header
// (magic, version, registry fingerprint) followed by one record per entity:
// the entity id, one tagged entry per component, and a terminator. Entities
// are written archetype by archetype, in creation order.
func (w *World) WriteSnapshot(out io.Writer) error {
	bw := bufio.NewWriter(out)

	header := make([]byte, 0, len(snapshotMagic)+1+8)
	header = append(header, snapshotMagic...)
	header = append(header, snapshotVersion)
	header = binary.LittleEndian.AppendUint64(header, w.registry.Fingerprint())
	if _, err := bw.Write(header); err != nil {
		return eris.Wrap(err, "write snapshot header")
	}

	var buf []byte
	for _, a := range w.graph.archetypes {
		infos := make([]*componentInfo, len(a.signature.ids))
		for i, cid := range a.signature.ids {
			infos[i] = w.registry.info(cid)
		}

		for row := 0; row < a.rows; row++ {
			e := a.entities[row]
			buf = binary.LittleEndian.AppendUint64(buf[:0], uint64(e))

			for i, info := range infos {
				data, err := info.encode(a.pools[i].getAny(row))
				if err != nil {
					return eris.Wrapf(err, "encode %s of entity %s", info.typ, e)
				}
				buf = append(buf, recordComponent, byte(info.id))
				buf = binary.AppendUvarint(buf, uint64(len(data)))
				buf = append(buf, data...)
			}
			buf = append(buf, recordEnd)

			if _, err := bw.Write(buf); err != nil {
				return eris.Wrapf(err, "write entity %s", e)
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return eris.Wrap(err, "flush snapshot")
	}
	return nil
}

// ReadSnapshot restores the entities of a snapshot into w as new entities and
// returns the mapping from the ids stored in the snapshot to the new ids.
//
// A record listing no components restores an entity with no components. If
// the stream ends in the middle of the last record, the entity is restored
// with the components that were read completely and a warning is logged.
func (w *World) ReadSnapshot(in io.Reader) (map[EntityId]EntityId, error) {
	br := bufio.NewReader(in)

	var header [len(snapshotMagic) + 1 + 8]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		return nil, eris.Wrapf(ErrSnapshotFormat, "read header: %v", err)
	}
	if string(header[:len(snapshotMagic)]) != snapshotMagic {
		return nil, eris.Wrapf(ErrSnapshotFormat, "bad magic %q", header[:len(snapshotMagic)])
	}
	if v := header[len(snapshotMagic)]; v != snapshotVersion {
		return nil, eris.Wrapf(ErrSnapshotFormat, "unsupported version %d", v)
	}
	fingerprint := binary.LittleEndian.Uint64(header[len(snapshotMagic)+1:])
	if want := w.registry.Fingerprint(); fingerprint != want {
		return nil, eris.Wrapf(ErrSnapshotSchema, "fingerprint %016x, registry has %016x", fingerprint, want)
	}

	mapping := make(map[EntityId]EntityId)
	for {
		var idBuf [8]byte
		n, err := io.ReadFull(br, idBuf[:])
		if err == io.EOF {
			return mapping, nil
		}
		if err != nil {
			w.logger.Warn("snapshot ends inside an entity id", zap.Int("bytes", n))
			return mapping, nil
		}
		old := EntityId(binary.LittleEndian.Uint64(idBuf[:]))

		components, complete, err := w.readRecord(br, old)
		if err != nil {
			return mapping, err
		}
		if !complete {
			w.logger.Warn("snapshot ends inside an entity record",
				zap.Stringer("entity", old),
				zap.Int("components", len(components)),
			)
		}

		e, err := w.Spawn(components...)
		if err != nil {
			return mapping, eris.Wrapf(ErrSnapshotFormat, "restore entity %s: %v", old, err)
		}
		mapping[old] = e

		if !complete {
			return mapping, nil
		}
	}
}

// readRecord decodes the component entries of one record. complete is false
// when the stream ended before the terminator; the components decoded up to
// that point are still returned.
func (w *World) readRecord(br *bufio.Reader, e EntityId) ([]any, bool, error) {
	var components []any
	for {
		tag, err := br.ReadByte()
		if err != nil {
			return components, false, nil
		}

		switch tag {
		case recordEnd:
			return components, true, nil
		case recordComponent:
		default:
			return nil, false, eris.Wrapf(ErrSnapshotFormat, "entity %s: unknown tag 0x%02x", e, tag)
		}

		idByte, err := br.ReadByte()
		if err != nil {
			return components, false, nil
		}
		size, err := binary.ReadUvarint(br)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return components, false, nil
			}
			return nil, false, eris.Wrapf(ErrSnapshotFormat, "entity %s: component length: %v", e, err)
		}
		if size > maxSnapshotComponentSize {
			return nil, false, eris.Wrapf(ErrSnapshotFormat, "entity %s: component of %d bytes", e, size)
		}
		data := make([]byte, size)
		if _, err := io.ReadFull(br, data); err != nil {
			return components, false, nil
		}

		id := ComponentId(idByte)
		info := w.registry.info(id)
		if info == nil {
			return nil, false, eris.Wrapf(ErrSnapshotFormat, "entity %s: unknown component id %d", e, id)
		}
		value, err := decodeComponent(info, data)
		if err != nil {
			return nil, false, eris.Wrapf(ErrSnapshotFormat, "entity %s: decode %s: %v", e, info.typ, err)
		}
		components = append(components, value)
	}
}

// decodeComponent runs the codec for one entry, turning a panicking decoder
// into an error so a bad stream cannot take the reader down.
func decodeComponent(info *componentInfo, data []byte) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, eris.Errorf("decoder panicked: %v", r)
		}
	}()
	value = info.newValue()
	if err := info.decode(data, value); err != nil {
		return nil, err
	}
	return value, nil
}
