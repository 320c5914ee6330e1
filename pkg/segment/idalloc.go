package segment

// idAllocator hands out internal ids and recycles those freed by deletion.
// All of its methods are called only while the segment's global lock is
// held; it has no locking of its own.
type idAllocator struct {
	nodeCount    int // highwater mark of ever-assigned slots
	maxNodeCount int
	freed        []InternalID // LIFO of slots vacated by deletion
}

func newIDAllocator(maxNodeCount int) *idAllocator {
	return &idAllocator{maxNodeCount: maxNodeCount}
}

// next returns the next internal id to assign, or ErrCapacityExceeded if
// the segment is full and nothing has been freed.
func (a *idAllocator) next() (InternalID, error) {
	if n := len(a.freed); n > 0 {
		id := a.freed[n-1]
		a.freed = a.freed[:n-1]
		return id, nil
	}
	if a.nodeCount < a.maxNodeCount {
		id := InternalID(a.nodeCount)
		a.nodeCount++
		return id, nil
	}
	return 0, ErrCapacityExceeded
}

// free pushes id back onto the recycle stack.
func (a *idAllocator) free(id InternalID) {
	a.freed = append(a.freed, id)
}
