package segment

import (
	"container/heap"

	"github.com/ken/hnswseg/pkg/core/vector"
)

// searchLayer is the layer-local best-first search: a greedy beam search
// from entry, returning at most k candidates ordered by ascending distance
// to q, restricted to the subgraph reachable through layer L's out-edges.
//
// The search borrows a visited bitset from the segment's pool and returns
// it via defer on every exit path after the borrow; the early return for an
// absent entry node happens before any bitset is borrowed.
func (s *Segment) searchLayer(entry InternalID, q *vector.Vector, k int, level int) []candidate {
	entryNode := s.arena.get(entry)
	if entryNode == nil {
		return nil
	}

	visited := s.visited.Get()
	defer s.visited.Put(visited)

	d0 := s.dist(q, entryNode.Vector)
	visited.Set(uint(entry))

	top := &candHeap{max: true}
	frontier := &candHeap{}
	heap.Push(top, candidate{entry, d0})
	heap.Push(frontier, candidate{entry, d0})
	lowerBound := d0

	for frontier.Len() > 0 {
		c := frontier.peek()
		if c.dist > lowerBound {
			break
		}
		heap.Pop(frontier)

		cNode := s.arena.get(c.id)
		if cNode == nil || cNode.deleted() || level > cNode.MaxLevel {
			continue
		}

		cNode.mu.Lock()
		neighbors := append([]InternalID(nil), cNode.OutConns[level]...)
		cNode.mu.Unlock()

		for _, nbrID := range neighbors {
			if visited.Test(uint(nbrID)) {
				continue
			}
			visited.Set(uint(nbrID))

			nbrNode := s.arena.get(nbrID)
			if nbrNode == nil || nbrNode.deleted() {
				continue
			}

			d := s.dist(q, nbrNode.Vector)

			if top.Len() < k || d < top.peek().dist {
				heap.Push(frontier, candidate{nbrID, d})
				if top.Len() < k {
					heap.Push(top, candidate{nbrID, d})
				} else {
					heap.Pop(top)
					heap.Push(top, candidate{nbrID, d})
				}
				lowerBound = top.peek().dist
			}
		}
	}

	return top.sortedAscending()
}
