// Package bitsetpool pools visited-set bitsets for repeated graph searches,
// so that a traversal borrows one on entry and returns it on every exit
// path, including error, instead of allocating a set sized to the whole
// graph on every call.
package bitsetpool

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Pool hands out bitsets sized to at least `capacity` bits and clears them
// before reuse. It is safe for concurrent use by many searchers and
// inserters at once.
type Pool struct {
	capacity uint
	pool     sync.Pool
}

// New creates a Pool whose bitsets are sized to cover internal ids in
// [0, capacity).
func New(capacity uint) *Pool {
	p := &Pool{capacity: capacity}
	p.pool.New = func() any {
		return bitset.New(p.capacity)
	}
	return p
}

// Get returns a zeroed bitset with at least Capacity() bits.
func (p *Pool) Get() *bitset.BitSet {
	b := p.pool.Get().(*bitset.BitSet)
	b.ClearAll()
	return b
}

// Put returns a bitset to the pool for reuse. Callers must not retain a
// reference to b after calling Put.
func (p *Pool) Put(b *bitset.BitSet) {
	if b == nil {
		return
	}
	p.pool.Put(b)
}

// Capacity reports the number of bits bitsets drawn from this pool cover.
func (p *Pool) Capacity() uint {
	return p.capacity
}
