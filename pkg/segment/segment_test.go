package segment

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ken/hnswseg/pkg/core/distance"
	"github.com/ken/hnswseg/pkg/core/vector"
)

func newTestSegment(maxNodes int) *Segment {
	cfg := DefaultConfig()
	cfg.MaxNodeCount = maxNodes
	return New(cfg, &distance.EuclideanDistance{})
}

func vec(values ...float32) *vector.Vector {
	return vector.New(values)
}

func TestEmptySegmentSearch(t *testing.T) {
	s := newTestSegment(16)
	results := s.SearchKNN(vec(0, 0, 0), 5, 20)
	assert.Empty(t, results)
}

func TestSingleInsertExactMatch(t *testing.T) {
	s := newTestSegment(16)
	require.True(t, s.Add(Item{ExternalID: 1, Vector: vec(1, 0, 0)}))

	results := s.SearchKNN(vec(1, 0, 0), 1, 10)
	require.Len(t, results, 1)
	assert.Equal(t, ExternalID(1), results[0].ExternalID)
	assert.Equal(t, float32(0), results[0].Distance)
}

func TestIdempotentDuplicateAdd(t *testing.T) {
	s := newTestSegment(16)
	item := Item{ExternalID: 5, Vector: vec(1, 2, 3)}

	require.True(t, s.Add(item))
	require.True(t, s.Add(item), "idempotent re-add should succeed")
	assert.Equal(t, 1, s.Size())
}

func TestDuplicateDifferentVectorWithoutRemove(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoveEnabled = false
	s := New(cfg, &distance.EuclideanDistance{})

	require.True(t, s.Add(Item{ExternalID: 1, Vector: vec(1, 0, 0)}))
	assert.False(t, s.Add(Item{ExternalID: 1, Vector: vec(0, 1, 0)}),
		"expected rejection of a changed duplicate when remove is disabled")
	assert.Equal(t, 1, s.Size())
}

func TestDuplicateDifferentVectorUpdatesInPlace(t *testing.T) {
	s := newTestSegment(16)

	if ok := s.Add(Item{ExternalID: 1, Vector: vec(1, 0, 0)}); !ok {
		t.Fatal("first add failed")
	}
	if ok := s.Add(Item{ExternalID: 1, Vector: vec(0, 10, 0)}); !ok {
		t.Fatal("update-in-place add should succeed")
	}
	if s.Size() != 1 {
		t.Errorf("expected 1 live vector after update, got %d", s.Size())
	}

	results := s.SearchKNN(vec(0, 10, 0), 1, 10)
	if len(results) != 1 || results[0].Distance != 0 {
		t.Errorf("expected exact match at the updated position, got %+v", results)
	}
}

func TestCapacityExhaustionThenRecoveryAfterRemove(t *testing.T) {
	s := newTestSegment(2)

	if ok := s.Add(Item{ExternalID: 1, Vector: vec(1, 0)}); !ok {
		t.Fatal("add 1 failed")
	}
	if ok := s.Add(Item{ExternalID: 2, Vector: vec(0, 1)}); !ok {
		t.Fatal("add 2 failed")
	}
	if ok := s.Add(Item{ExternalID: 3, Vector: vec(1, 1)}); ok {
		t.Fatal("add 3 should fail: segment is at capacity")
	}

	n, ok := s.GetNode(0)
	if !ok {
		t.Fatal("expected internal id 0 to be live")
	}
	if !s.Remove(n.InternalID) {
		t.Fatal("remove failed")
	}

	if ok := s.Add(Item{ExternalID: 3, Vector: vec(1, 1)}); !ok {
		t.Fatal("add after remove should recycle the freed id and succeed")
	}
	if s.Size() != 2 {
		t.Errorf("expected 2 live vectors, got %d", s.Size())
	}
}

func TestRemoveUnknownID(t *testing.T) {
	s := newTestSegment(4)
	if s.Remove(99) {
		t.Error("expected remove of an unknown internal id to report false")
	}
}

func TestRemoveDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RemoveEnabled = false
	s := New(cfg, &distance.EuclideanDistance{})
	s.Add(Item{ExternalID: 1, Vector: vec(1, 0)})
	if s.Remove(0) {
		t.Error("expected remove to report false when RemoveEnabled is false")
	}
}

func TestSearchKNNOrdering(t *testing.T) {
	s := newTestSegment(64)
	for i := 0; i < 20; i++ {
		s.Add(Item{ExternalID: ExternalID(i), Vector: vec(float32(i), 0, 0)})
	}

	results := s.SearchKNN(vec(0, 0, 0), 5, 50)
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if results[i].Distance < results[i-1].Distance {
			t.Errorf("results not sorted by ascending distance at index %d", i)
		}
	}
	if results[0].ExternalID != 0 {
		t.Errorf("expected nearest neighbor to be external id 0, got %d", results[0].ExternalID)
	}
}

func TestBidirectionalConnections(t *testing.T) {
	s := newTestSegment(64)
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 40; i++ {
		s.Add(Item{ExternalID: ExternalID(i), Vector: vector.Random(r, 4)})
	}

	for id := 0; id < 40; id++ {
		n, ok := s.GetNode(InternalID(id))
		if !ok {
			continue
		}
		for level, outs := range n.OutConns {
			for _, out := range outs {
				peer, ok := s.GetNode(out)
				if !ok {
					t.Errorf("node %d references missing out-neighbor %d at level %d", id, out, level)
					continue
				}
				found := false
				for _, back := range peer.InConns[level] {
					if back == n.InternalID {
						found = true
						break
					}
				}
				if !found {
					t.Errorf("node %d -> %d at level %d has no matching in-edge", id, out, level)
				}
			}
		}
	}
}

func TestDegreeBound(t *testing.T) {
	s := newTestSegment(128)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 100; i++ {
		s.Add(Item{ExternalID: ExternalID(i), Vector: vector.Random(r, 4)})
	}

	for id := 0; id < 100; id++ {
		n, ok := s.GetNode(InternalID(id))
		if !ok {
			continue
		}
		for level, outs := range n.OutConns {
			limit := s.cfg.M
			if level == 0 {
				limit = s.cfg.M0
			}
			if len(outs) > limit {
				t.Errorf("node %d level %d has %d out-edges, limit is %d", id, level, len(outs), limit)
			}
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s := newTestSegment(64)
	r := rand.New(rand.NewSource(3))
	for i := 0; i < 30; i++ {
		s.Add(Item{ExternalID: ExternalID(i), Vector: vector.Random(r, 6)})
	}
	s.Remove(5)

	if err := s.Snapshot(dir); err != nil {
		t.Fatalf("snapshot failed: %v", err)
	}

	loaded := newTestSegment(64)
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if loaded.Size() != s.Size() {
		t.Errorf("expected %d live vectors after load, got %d", s.Size(), loaded.Size())
	}

	for i := 0; i < 30; i++ {
		if i == 5 {
			continue
		}
		id := InternalID(i)
		orig, ok := s.GetVector(id)
		if !ok {
			continue
		}
		got, ok := loaded.GetVector(id)
		if !ok {
			t.Errorf("expected node %d to survive round trip", i)
			continue
		}
		for j := range orig.Values {
			if orig.Values[j] != got.Values[j] {
				t.Errorf("node %d value %d mismatch: want %f got %f", i, j, orig.Values[j], got.Values[j])
			}
		}
	}
}

func TestConcurrentInsertsDisjointRanges(t *testing.T) {
	s := newTestSegment(1000)

	const threads = 8
	const perThread = 50

	var wg sync.WaitGroup
	for worker := 0; worker < threads; worker++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(int64(base)))
			for i := 0; i < perThread; i++ {
				id := ExternalID(base*perThread + i)
				s.Add(Item{ExternalID: id, Vector: vector.Random(r, 8)})
			}
		}(worker)
	}
	wg.Wait()

	if s.Size() != threads*perThread {
		t.Errorf("expected %d live vectors, got %d", threads*perThread, s.Size())
	}

	for i := 0; i < threads*perThread; i++ {
		if _, ok := s.lookup.get(ExternalID(i)); !ok {
			t.Errorf("external id %d missing from lookup after concurrent insert", i)
		}
	}
}

func TestConcurrentSearchDuringInsert(t *testing.T) {
	s := newTestSegment(500)
	r := rand.New(rand.NewSource(11))
	for i := 0; i < 50; i++ {
		s.Add(Item{ExternalID: ExternalID(i), Vector: vector.Random(r, 8)})
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		rr := rand.New(rand.NewSource(12))
		for i := 50; i < 150; i++ {
			s.Add(Item{ExternalID: ExternalID(i), Vector: vector.Random(rr, 8)})
		}
	}()

	go func() {
		defer wg.Done()
		rr := rand.New(rand.NewSource(13))
		for i := 0; i < 100; i++ {
			s.SearchKNN(vector.Random(rr, 8), 5, 20)
		}
	}()

	wg.Wait()
	if s.Size() != 150 {
		t.Errorf("expected 150 live vectors, got %d", s.Size())
	}
}
