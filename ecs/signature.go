package ecs

import "slices"

// Signature is the immutable set of component types an archetype carries,
// held both as a sorted id list and as a bitset.
type Signature struct {
	ids  []ComponentId
	mask Mask
}

// NewSignature builds a signature from ids in any order. Duplicates collapse.
func NewSignature(ids ...ComponentId) Signature {
	mask := MaskOf(ids...)
	return Signature{ids: mask.IDs(), mask: mask}
}

func signatureFromMask(mask Mask) Signature {
	return Signature{ids: mask.IDs(), mask: mask}
}

// With returns a new signature that also contains id.
func (s Signature) With(id ComponentId) Signature {
	if s.mask.Has(id) {
		return s
	}
	pos, _ := slices.BinarySearch(s.ids, id)
	ids := make([]ComponentId, 0, len(s.ids)+1)
	ids = append(ids, s.ids[:pos]...)
	ids = append(ids, id)
	ids = append(ids, s.ids[pos:]...)
	return Signature{ids: ids, mask: s.mask.With(id)}
}

// Without returns a new signature that no longer contains id.
func (s Signature) Without(id ComponentId) Signature {
	if !s.mask.Has(id) {
		return s
	}
	ids := make([]ComponentId, 0, len(s.ids)-1)
	for _, c := range s.ids {
		if c != id {
			ids = append(ids, c)
		}
	}
	return Signature{ids: ids, mask: s.mask.Without(id)}
}

// Has reports whether the signature contains id.
func (s Signature) Has(id ComponentId) bool {
	return s.mask.Has(id)
}

// IDs returns a copy of the sorted component ids.
func (s Signature) IDs() []ComponentId {
	return slices.Clone(s.ids)
}

// Len is the number of component types in the signature.
func (s Signature) Len() int {
	return len(s.ids)
}

// Mask returns the bitset form of the signature.
func (s Signature) Mask() Mask {
	return s.mask
}

// Compare orders signatures by their masks.
func (s Signature) Compare(o Signature) int {
	return s.mask.Compare(o.mask)
}

// Equal reports whether both signatures name the same component set.
func (s Signature) Equal(o Signature) bool {
	return s.mask == o.mask
}

func (s Signature) String() string {
	return s.mask.String()
}
