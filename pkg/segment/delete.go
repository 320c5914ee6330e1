package segment

// Remove detaches the node at internalID from the graph and recycles its
// id. It requires RemoveEnabled; otherwise it always returns false.
func (s *Segment) Remove(internalID InternalID) bool {
	if !s.cfg.RemoveEnabled {
		s.log.Debug().Err(ErrRemoveDisabled).Msg("remove rejected")
		return false
	}

	s.coord.lockGlobal()
	defer s.coord.unlockGlobal()

	if !s.removeLocked(internalID) {
		s.log.Debug().Err(ErrNotFound).Uint32("internal_id", uint32(internalID)).Msg("remove rejected")
		return false
	}
	return true
}

// removeLocked assumes the global lock is already held by the caller (Add's
// duplicate-update branch calls this inline).
func (s *Segment) removeLocked(internalID InternalID) bool {
	node := s.arena.get(internalID)
	if node == nil {
		return false
	}

	for l := node.MaxLevel; l >= 0; l-- {
		for _, p := range node.InConns[l] {
			pn := s.arena.get(p)
			if pn == nil {
				continue
			}
			pn.mu.Lock()
			pn.OutConns[l] = removeID(pn.OutConns[l], internalID)
			pn.mu.Unlock()
		}
		for _, q := range node.OutConns[l] {
			qn := s.arena.get(q)
			if qn == nil {
				continue
			}
			qn.mu.Lock()
			qn.InConns[l] = removeID(qn.InConns[l], internalID)
			qn.mu.Unlock()
		}
	}

	if cur := s.entryPoint(); cur.valid && cur.id == internalID {
		s.rotateEntryPoint(node)
	}

	node.markDeleted()
	s.lookup.remove(node.ExternalID)
	s.arena.clear(internalID)
	s.ids.free(internalID)

	return true
}

// rotateEntryPoint picks a replacement for the entry point being removed:
// the first neighbor found at the highest layer that still has out-edges,
// or "none" if the node was isolated.
func (s *Segment) rotateEntryPoint(removed *Node) {
	for l := removed.MaxLevel; l >= 0; l-- {
		if len(removed.OutConns[l]) == 0 {
			continue
		}
		candidateID := removed.OutConns[l][0]
		if cn := s.arena.get(candidateID); cn != nil {
			s.entry.Store(&epRef{valid: true, id: candidateID, level: cn.MaxLevel})
			return
		}
	}
	s.entry.Store(&epRef{})
}
