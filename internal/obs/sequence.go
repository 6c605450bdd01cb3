package obs

import (
	"sync/atomic"
)

// Sequence hands out monotonically increasing numbers.
type Sequence struct {
	next uint64
}

// NewSequence returns a sequence whose first value is start+1.
func NewSequence(start uint64) *Sequence {
	return &Sequence{next: start}
}

// Next returns the next value.
func (g *Sequence) Next() uint64 {
	if g == nil {
		return 0
	}
	return atomic.AddUint64(&g.next, 1)
}
