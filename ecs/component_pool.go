package ecs

import "unsafe"

// componentPool is a type-erased, densely packed column of one component type.
// Rows are owned by the Archetype, which tracks the authoritative length; the
// pool only knows its capacity.
type componentPool interface {
	capacity() int
	resize(capacity int)
	setZero(row int)
	swapRemove(row, last int)
	copyRow(dst componentPool, srcRow, dstRow int)
	getAny(row int) any
	setAny(row int, value any) bool
	pointer(row int) unsafe.Pointer
}

// genericComponentPool stores components of type T contiguously.
type genericComponentPool[T any] struct {
	data []T
}

func (p *genericComponentPool[T]) capacity() int {
	return len(p.data)
}

// resize reallocates the column, keeping the first min(old, new) values.
func (p *genericComponentPool[T]) resize(capacity int) {
	if capacity == len(p.data) {
		return
	}
	data := make([]T, capacity)
	copy(data, p.data)
	p.data = data
}

func (p *genericComponentPool[T]) get(row int) *T {
	return &p.data[row]
}

func (p *genericComponentPool[T]) set(row int, value T) {
	p.data[row] = value
}

func (p *genericComponentPool[T]) setZero(row int) {
	var zero T
	p.data[row] = zero
}

// swapRemove overwrites row with last and clears last so the pool does not
// keep references alive past the logical end.
func (p *genericComponentPool[T]) swapRemove(row, last int) {
	if row != last {
		p.data[row] = p.data[last]
	}
	var zero T
	p.data[last] = zero
}

func (p *genericComponentPool[T]) copyRow(dst componentPool, srcRow, dstRow int) {
	dst.(*genericComponentPool[T]).data[dstRow] = p.data[srcRow]
}

func (p *genericComponentPool[T]) getAny(row int) any {
	return &p.data[row]
}

func (p *genericComponentPool[T]) setAny(row int, value any) bool {
	switch v := value.(type) {
	case T:
		p.data[row] = v
	case *T:
		p.data[row] = *v
	default:
		return false
	}
	return true
}

func (p *genericComponentPool[T]) pointer(row int) unsafe.Pointer {
	return unsafe.Pointer(&p.data[row])
}
