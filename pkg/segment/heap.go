package segment

import "container/heap"

// candidate is one entry in a distance-ordered queue: a node and its
// distance to the query. Ties are broken by ascending internal id so that
// traversal order, and therefore search results, are deterministic across
// runs.
type candidate struct {
	id   InternalID
	dist float32
}

func candidateLess(a, b candidate) bool {
	if a.dist != b.dist {
		return a.dist < b.dist
	}
	return a.id < b.id
}

// candHeap is container/heap.Interface over a []candidate. When max is true
// it behaves as a max-heap (root = farthest candidate), used for the
// size-bounded "top" result set; otherwise it is a plain min-heap, used for
// the "frontier" of candidates still to explore.
type candHeap struct {
	items []candidate
	max   bool
}

func (h *candHeap) Len() int { return len(h.items) }

func (h *candHeap) Less(i, j int) bool {
	if h.max {
		return candidateLess(h.items[j], h.items[i])
	}
	return candidateLess(h.items[i], h.items[j])
}

func (h *candHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }

func (h *candHeap) Push(x any) { h.items = append(h.items, x.(candidate)) }

func (h *candHeap) Pop() any {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

func (h *candHeap) peek() candidate { return h.items[0] }

func (h *candHeap) len() int { return len(h.items) }

// sortedAscending drains the heap into a slice ordered closest-first. The
// heap is left empty.
func (h *candHeap) sortedAscending() []candidate {
	out := make([]candidate, 0, len(h.items))
	for h.Len() > 0 {
		out = append(out, heap.Pop(h).(candidate))
	}
	if h.max {
		// heap.Pop off a max-heap yields farthest-first; reverse in place.
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}
