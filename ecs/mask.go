package ecs

import (
	"math/bits"
	"strconv"
	"strings"
)

const (
	bitsPerWord = 64
	maskWords   = 4

	// MaxComponentTypes is the number of distinct component types a registry can hold.
	MaxComponentTypes = maskWords * bitsPerWord
)

// Mask is a 256-bit set of component ids, one bit per id.
type Mask [maskWords]uint64

// MaskOf builds a mask with the given ids set.
func MaskOf(ids ...ComponentId) Mask {
	var m Mask
	for _, id := range ids {
		m[id>>6] |= 1 << (id & 63)
	}
	return m
}

// Has reports whether id is in the mask.
func (m Mask) Has(id ComponentId) bool {
	return m[id>>6]&(1<<(id&63)) != 0
}

// With returns a copy of m with id set.
func (m Mask) With(id ComponentId) Mask {
	m[id>>6] |= 1 << (id & 63)
	return m
}

// Without returns a copy of m with id cleared.
func (m Mask) Without(id ComponentId) Mask {
	m[id>>6] &^= 1 << (id & 63)
	return m
}

// Contains reports whether every bit of sub is also set in m.
func (m Mask) Contains(sub Mask) bool {
	return m[0]&sub[0] == sub[0] &&
		m[1]&sub[1] == sub[1] &&
		m[2]&sub[2] == sub[2] &&
		m[3]&sub[3] == sub[3]
}

// Intersects reports whether m and o share at least one bit.
func (m Mask) Intersects(o Mask) bool {
	return m[0]&o[0] != 0 ||
		m[1]&o[1] != 0 ||
		m[2]&o[2] != 0 ||
		m[3]&o[3] != 0
}

// IsZero reports whether no bit is set.
func (m Mask) IsZero() bool {
	return m[0]|m[1]|m[2]|m[3] == 0
}

// Or returns the union of m and o.
func (m Mask) Or(o Mask) Mask {
	return Mask{m[0] | o[0], m[1] | o[1], m[2] | o[2], m[3] | o[3]}
}

// Count returns the number of set bits.
func (m Mask) Count() int {
	return bits.OnesCount64(m[0]) + bits.OnesCount64(m[1]) +
		bits.OnesCount64(m[2]) + bits.OnesCount64(m[3])
}

// Compare orders masks as 256-bit unsigned integers, word 3 being the most
// significant. It returns -1, 0 or +1.
func (m Mask) Compare(o Mask) int {
	for i := maskWords - 1; i >= 0; i-- {
		switch {
		case m[i] < o[i]:
			return -1
		case m[i] > o[i]:
			return 1
		}
	}
	return 0
}

// Highest returns the highest set id, or -1 for an empty mask.
func (m Mask) Highest() int {
	for i := maskWords - 1; i >= 0; i-- {
		if m[i] != 0 {
			return i*bitsPerWord + bitsPerWord - 1 - bits.LeadingZeros64(m[i])
		}
	}
	return -1
}

// Lowest returns the lowest set id, or -1 for an empty mask.
func (m Mask) Lowest() int {
	for i := 0; i < maskWords; i++ {
		if m[i] != 0 {
			return i*bitsPerWord + bits.TrailingZeros64(m[i])
		}
	}
	return -1
}

// IDs returns the set ids in ascending order.
func (m Mask) IDs() []ComponentId {
	ids := make([]ComponentId, 0, m.Count())
	for i := 0; i < maskWords; i++ {
		w := m[i]
		for w != 0 {
			b := bits.TrailingZeros64(w)
			ids = append(ids, ComponentId(i*bitsPerWord+b))
			w &= w - 1
		}
	}
	return ids
}

func (m Mask) String() string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, id := range m.IDs() {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.Itoa(int(id)))
	}
	sb.WriteByte('}')
	return sb.String()
}
