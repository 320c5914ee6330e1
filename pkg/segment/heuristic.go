package segment

import (
	"sort"

	"github.com/ken/hnswseg/pkg/core/vector"
)

// selectByHeuristic prunes candidates down to at most m neighbors while
// preserving diversity: a candidate is kept only if it is closer to the
// query than to every neighbor already kept.
// candidates need not be pre-sorted; q is the vector the candidates were
// searched against (the new node's vector during insertion, or the query
// vector during a plain k-NN search that wants a diverse result set).
func (s *Segment) selectByHeuristic(q *vector.Vector, candidates []candidate, m int) []candidate {
	sorted := append([]candidate(nil), candidates...)
	sort.Slice(sorted, func(i, j int) bool { return candidateLess(sorted[i], sorted[j]) })

	selected := make([]candidate, 0, m)
	for _, c := range sorted {
		if len(selected) >= m {
			break
		}
		cNode := s.arena.get(c.id)
		if cNode == nil {
			continue
		}
		good := true
		for _, a := range selected {
			aNode := s.arena.get(a.id)
			if aNode == nil {
				continue
			}
			if s.dist(cNode.Vector, aNode.Vector) <= s.dist(cNode.Vector, q) {
				good = false
				break
			}
		}
		if good {
			selected = append(selected, c)
		}
	}
	return selected
}
