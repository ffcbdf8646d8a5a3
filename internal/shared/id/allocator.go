package id

import (
	"math"
	"sync/atomic"

	"github.com/GriffinCanCode/stratisd/internal/shared/status"
)

// Allocator issues entity ids. The counter starts at zero and every call to
// Next returns the incremented value, so the first id is 1. An id is consumed
// even if the operation that asked for it later fails.
type Allocator struct {
	last atomic.Uint64
}

// NewAllocator returns an allocator whose first id is 1
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Next returns a fresh id, or a Malloc error once the u64 space is spent
func (a *Allocator) Next() (uint64, error) {
	for {
		cur := a.last.Load()
		if cur == math.MaxUint64 {
			return 0, status.Errorf(status.Malloc, "entity id space exhausted")
		}
		if a.last.CompareAndSwap(cur, cur+1) {
			return cur + 1, nil
		}
	}
}

// Peek returns the most recently issued id, 0 if none
func (a *Allocator) Peek() uint64 {
	return a.last.Load()
}
