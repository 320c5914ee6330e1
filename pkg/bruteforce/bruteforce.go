// Package bruteforce is an exact, linear-scan nearest-neighbor index used
// only as a recall oracle in tests: given the same vectors a segment holds,
// it always returns the true k closest, so a segment's approximate results
// can be scored against it.
package bruteforce

import (
	"sort"
	"sync"

	"github.com/ken/hnswseg/pkg/core/distance"
	"github.com/ken/hnswseg/pkg/core/vector"
	"github.com/ken/hnswseg/pkg/segment"
)

// Index holds every inserted vector and scans all of them on every query.
type Index struct {
	mu      sync.RWMutex
	metric  distance.Metric
	entries map[segment.ExternalID]*vector.Vector
}

// New creates an empty brute-force index using metric.
func New(metric distance.Metric) *Index {
	return &Index{
		metric:  metric,
		entries: make(map[segment.ExternalID]*vector.Vector),
	}
}

// Add stores item's vector under its external id, overwriting any existing
// entry for that id.
func (idx *Index) Add(item segment.Item) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[item.ExternalID] = item.Vector
}

// Remove deletes the entry for id, if present.
func (idx *Index) Remove(id segment.ExternalID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
}

// Size returns the number of stored vectors.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// SearchKNN returns the true k nearest neighbors of query, ordered by
// ascending distance, breaking ties by ascending external id so the order
// is deterministic (segment.SearchKNN breaks ties by internal id instead).
func (idx *Index) SearchKNN(query *vector.Vector, k int) []segment.Result {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	results := make([]segment.Result, 0, len(idx.entries))
	for id, v := range idx.entries {
		d, err := idx.metric.Distance(query, v)
		if err != nil {
			continue
		}
		results = append(results, segment.Result{ExternalID: id, Distance: d})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].ExternalID < results[j].ExternalID
	})

	if k < len(results) {
		results = results[:k]
	}
	return results
}

// Recall computes the fraction of exact that also appears in approx,
// treating both as unordered id sets. Useful for scoring SearchKNN results
// from a segment against SearchKNN results from this oracle on the same
// query.
func Recall(exact, approx []segment.Result) float64 {
	if len(exact) == 0 {
		return 1
	}
	exactSet := make(map[segment.ExternalID]bool, len(exact))
	for _, r := range exact {
		exactSet[r.ExternalID] = true
	}
	hits := 0
	for _, r := range approx {
		if exactSet[r.ExternalID] {
			hits++
		}
	}
	return float64(hits) / float64(len(exact))
}
