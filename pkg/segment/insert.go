package segment

import (
	"sort"

	"github.com/ken/hnswseg/pkg/core/vector"
)

// Add inserts item into the segment. It returns true on accept or
// idempotent duplicate, false on capacity exhaustion or a duplicate that
// belongs to another segment / cannot be updated in place.
func (s *Segment) Add(item Item) bool {
	ok, err := s.add(item)
	if err != nil {
		s.log.Debug().Err(err).Uint64("external_id", uint64(item.ExternalID)).Msg("add rejected")
	}
	return ok
}

func (s *Segment) add(item Item) (bool, error) {
	s.coord.lockGlobal()

	// Step 1: duplicate handling.
	if existing, exists := s.lookup.get(item.ExternalID); exists {
		if !s.cfg.RemoveEnabled {
			s.coord.unlockGlobal()
			return false, ErrUpdateWithoutRemoveEnabled
		}
		if !s.ownsGlobalID(existing) {
			s.coord.unlockGlobal()
			return false, ErrDuplicateInOtherSegment
		}
		existingInternal := s.toInternal(existing)
		existingNode := s.arena.get(existingInternal)
		if existingNode != nil && vectorsEqual(existingNode.Vector, item.Vector) {
			s.coord.unlockGlobal()
			return true, nil
		}
		// Detach the stale node by its internal id, never by the caller's
		// external id, so removeLocked never has to re-resolve a lookup
		// entry that this call is about to overwrite.
		s.removeLocked(existingInternal)
	}

	// Step 2: allocate.
	internalID, err := s.ids.next()
	if err != nil {
		s.coord.unlockGlobal()
		return false, err
	}

	// Step 3: level + node shape.
	randomLevel := s.levelFn(item.ExternalID)
	newNode := newNode(internalID, item, randomLevel, s.cfg.M, s.cfg.M0, s.cfg.RemoveEnabled)

	// Step 4: snapshot entry point; an insert that cannot move the entry
	// point is free to let other inserters proceed in parallel.
	epSnap := s.entryPoint()
	releasedGlobal := false
	if epSnap.valid && randomLevel <= epSnap.level {
		s.coord.unlockGlobal()
		releasedGlobal = true
	}

	// Step 5: become a topology reader, flag construction.
	s.coord.readTopology()
	s.coord.markConstruction(internalID)

	// Step 6: publish.
	s.arena.publish(internalID, newNode)
	s.lookup.put(item.ExternalID, s.toGlobal(internalID))

	// Step 7 & 8: zoom then descend, wiring connections.
	if epSnap.valid {
		cur := epSnap.id
		for l := epSnap.level; l > randomLevel; l-- {
			cur = s.zoomStep(newNode.Vector, cur, l)
		}

		top := epSnap.level
		if randomLevel < top {
			top = randomLevel
		}
		for l := top; l >= 0; l-- {
			candidates := s.searchLayer(cur, newNode.Vector, s.cfg.EfConstruction, l)
			s.mutuallyConnect(newNode, candidates, l)
			if len(candidates) > 0 {
				cur = candidates[0].id
			}
		}
	}

	// Step 9: entry-point maintenance.
	if !epSnap.valid || randomLevel > epSnap.level {
		s.entry.Store(&epRef{valid: true, id: internalID, level: randomLevel})
	}

	// Step 10: release.
	s.coord.clearConstruction(internalID)
	s.coord.unreadTopology()
	if !releasedGlobal {
		s.coord.unlockGlobal()
	}

	return true, nil
}

// zoomStep greedily replaces cur with its closest out-neighbor to q on
// layer, until no neighbor improves on cur, and returns the resulting local
// minimum.
func (s *Segment) zoomStep(q *vector.Vector, cur InternalID, level int) InternalID {
	curNode := s.arena.get(cur)
	if curNode == nil {
		return cur
	}
	bestDist := s.dist(q, curNode.Vector)

	for {
		curNode = s.arena.get(cur)
		if curNode == nil || level > curNode.MaxLevel {
			return cur
		}

		curNode.mu.Lock()
		neighbors := append([]InternalID(nil), curNode.OutConns[level]...)
		curNode.mu.Unlock()

		improved := false
		for _, nbrID := range neighbors {
			nbrNode := s.arena.get(nbrID)
			if nbrNode == nil || nbrNode.deleted() {
				continue
			}
			d := s.dist(q, nbrNode.Vector)
			if d < bestDist {
				bestDist = d
				cur = nbrID
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

// mutuallyConnect runs the heuristic selector on candidates and wires
// bidirectional connections at level.
func (s *Segment) mutuallyConnect(newNode *Node, candidates []candidate, level int) {
	bestN := s.cfg.M
	if level == 0 {
		bestN = s.cfg.M0
	}

	selected := s.selectByHeuristic(newNode.Vector, candidates, bestN)

	for _, c := range selected {
		if s.coord.underConstruction(c.id) {
			// Half-wired neighbor: never link a new node to it, per spec
			// §4.F.i. The neighbor's own insert may still link to this node
			// on a layer it has not yet wired, if its search finds it there.
			continue
		}

		n := s.arena.get(c.id)
		if n == nil {
			continue
		}

		newNode.mu.Lock()
		newNode.OutConns[level] = append(newNode.OutConns[level], c.id)
		newNode.mu.Unlock()

		n.mu.Lock()
		if s.cfg.RemoveEnabled {
			n.InConns[level] = append(n.InConns[level], newNode.InternalID)
		}

		if len(n.OutConns[level]) < bestN {
			n.OutConns[level] = append(n.OutConns[level], newNode.InternalID)
			if s.cfg.RemoveEnabled {
				newNode.mu.Lock()
				newNode.InConns[level] = append(newNode.InConns[level], n.InternalID)
				newNode.mu.Unlock()
			}
			n.mu.Unlock()
			continue
		}

		// n is already at capacity: keep the bestN closest of
		// {newNode} ∪ n.OutConns[level] by distance to n, evict the rest.
		pool := make([]candidate, 0, len(n.OutConns[level])+1)
		pool = append(pool, candidate{newNode.InternalID, s.dist(n.Vector, newNode.Vector)})
		for _, existingID := range n.OutConns[level] {
			en := s.arena.get(existingID)
			if en == nil {
				continue
			}
			pool = append(pool, candidate{existingID, s.dist(n.Vector, en.Vector)})
		}
		sort.Slice(pool, func(i, j int) bool { return candidateLess(pool[i], pool[j]) })
		kept := pool
		if len(kept) > bestN {
			kept = kept[:bestN]
		}

		keptSet := make(map[InternalID]bool, len(kept))
		newOut := make([]InternalID, 0, len(kept))
		keepsNew := false
		for _, k := range kept {
			keptSet[k.id] = true
			newOut = append(newOut, k.id)
			if k.id == newNode.InternalID {
				keepsNew = true
			}
		}

		evicted := make([]InternalID, 0, len(n.OutConns[level])+1-len(kept))
		for _, existingID := range n.OutConns[level] {
			if !keptSet[existingID] {
				evicted = append(evicted, existingID)
			}
		}
		n.OutConns[level] = newOut
		n.mu.Unlock()

		if s.cfg.RemoveEnabled {
			if keepsNew {
				newNode.mu.Lock()
				newNode.InConns[level] = append(newNode.InConns[level], n.InternalID)
				newNode.mu.Unlock()
			}
			for _, evictedID := range evicted {
				ev := s.arena.get(evictedID)
				if ev == nil {
					continue
				}
				ev.mu.Lock()
				ev.InConns[level] = removeID(ev.InConns[level], n.InternalID)
				ev.mu.Unlock()
			}
		}
	}
}

func removeID(list []InternalID, target InternalID) []InternalID {
	for i, id := range list {
		if id == target {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

func (s *Segment) ownsGlobalID(g GlobalID) bool {
	if uint64(g) < uint64(s.cfg.BaseID) {
		return false
	}
	internal := uint64(g) - uint64(s.cfg.BaseID)
	return internal < uint64(s.arena.capacity())
}

func (s *Segment) toInternal(g GlobalID) InternalID {
	return InternalID(uint64(g) - uint64(s.cfg.BaseID))
}

func (s *Segment) toGlobal(id InternalID) GlobalID {
	return GlobalID(uint64(id) + uint64(s.cfg.BaseID))
}

func vectorsEqual(a, b *vector.Vector) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Dimension != b.Dimension {
		return false
	}
	for i := range a.Values {
		if a.Values[i] != b.Values[i] {
			return false
		}
	}
	return true
}
