package segment

import "github.com/ken/hnswseg/pkg/core/vector"

// SearchKNN performs a k-nearest neighbor search: zoom from the entry point
// down to layer 1, then run searchLayer on layer 0 with beam max(ef, k),
// trimmed to k results ordered by ascending distance.
func (s *Segment) SearchKNN(query *vector.Vector, k int, ef int) []Result {
	s.coord.readTopology()
	defer s.coord.unreadTopology()

	epSnap := s.entryPoint()
	if !epSnap.valid {
		return nil
	}

	cur := epSnap.id
	for l := epSnap.level; l > 0; l-- {
		cur = s.zoomStep(query, cur, l)
	}

	beam := ef
	if k > beam {
		beam = k
	}

	candidates := s.searchLayer(cur, query, beam, 0)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		n := s.arena.get(c.id)
		if n == nil {
			continue
		}
		results = append(results, Result{ExternalID: n.ExternalID, Distance: c.dist})
	}
	return results
}
