package bruteforce

import (
	"math/rand"
	"testing"

	"github.com/ken/hnswseg/pkg/core/distance"
	"github.com/ken/hnswseg/pkg/core/vector"
	"github.com/ken/hnswseg/pkg/segment"
)

func TestSearchKNNExact(t *testing.T) {
	idx := New(&distance.EuclideanDistance{})
	idx.Add(segment.Item{ExternalID: 1, Vector: vector.New([]float32{1, 0, 0})})
	idx.Add(segment.Item{ExternalID: 2, Vector: vector.New([]float32{2, 0, 0})})
	idx.Add(segment.Item{ExternalID: 3, Vector: vector.New([]float32{3, 0, 0})})

	results := idx.SearchKNN(vector.New([]float32{0, 0, 0}), 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].ExternalID != 1 || results[1].ExternalID != 2 {
		t.Errorf("expected nearest two to be 1 then 2, got %d then %d", results[0].ExternalID, results[1].ExternalID)
	}
}

func TestRemove(t *testing.T) {
	idx := New(&distance.EuclideanDistance{})
	idx.Add(segment.Item{ExternalID: 1, Vector: vector.New([]float32{1, 0})})
	idx.Remove(1)
	if idx.Size() != 0 {
		t.Errorf("expected empty index after remove, got size %d", idx.Size())
	}
}

func TestRecallAgainstSegment(t *testing.T) {
	metric := &distance.EuclideanDistance{}
	oracle := New(metric)

	cfg := segment.DefaultConfig()
	cfg.MaxNodeCount = 2000
	seg := segment.New(cfg, metric)

	r := rand.New(rand.NewSource(99))
	const n = 500
	for i := 0; i < n; i++ {
		item := segment.Item{ExternalID: segment.ExternalID(i), Vector: vector.Random(r, 16)}
		seg.Add(item)
		oracle.Add(item)
	}

	const queries = 30
	var total float64
	for q := 0; q < queries; q++ {
		query := vector.Random(r, 16)
		exact := oracle.SearchKNN(query, 10)
		approx := seg.SearchKNN(query, 10, 100)
		total += Recall(exact, approx)
	}

	avg := total / queries
	if avg < 0.90 {
		t.Errorf("expected average recall@10 >= 0.90, got %f", avg)
	}
}
