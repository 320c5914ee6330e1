package segment

import (
	"fmt"

	"github.com/ken/hnswseg/pkg/core/vector"
	"github.com/ken/hnswseg/pkg/storage"
)

const (
	artifactVectors  = "vectors.bin"
	artifactOutConns = "outconns.bin"
	artifactInConns  = "inconns.bin"
	artifactLookup   = "lookup.bin"
)

// vectorRecord is one slot of the vectors-table artifact: present plus,
// when present, the raw vector payload.
type vectorRecord struct {
	Present   bool
	Dimension int
	Values    []float32
}

// connArtifact is the shape shared by the out-connections and
// in-connections artifacts: Layers[internalID][level] = neighbor ids. An
// absent node contributes a nil Layers[internalID].
type connArtifact struct {
	Layers [][][]uint32
}

// lookupArtifact is the invert-lookup artifact: external ids indexed by
// internal id, plus the small bookkeeping header (nodeCount, freed ids,
// entry point) needed to fully reconstruct a segment's mutable state.
type lookupArtifact struct {
	NodeCount   int
	FreedIDs    []uint32
	EntryValid  bool
	EntryID     uint32
	EntryLevel  int
	ExternalIDs []uint64
}

// Snapshot persists the segment's four artifacts under dir, each written
// under the topology lock in write mode so they describe the same logical
// state.
func (s *Segment) Snapshot(dir string) error {
	s.coord.writeTopology()
	defer s.coord.unwriteTopology()

	n := s.ids.nodeCount

	vectors := make([]vectorRecord, n)
	outConns := make([][][]uint32, n)
	var inConns [][][]uint32
	if s.cfg.RemoveEnabled {
		inConns = make([][][]uint32, n)
	}
	externalIDs := make([]uint64, n)

	for id := 0; id < n; id++ {
		node := s.arena.get(InternalID(id))
		if node == nil {
			continue
		}
		vectors[id] = vectorRecord{
			Present:   true,
			Dimension: node.Vector.Dimension,
			Values:    append([]float32(nil), node.Vector.Values...),
		}
		externalIDs[id] = uint64(node.ExternalID)
		outConns[id] = encodeConns(node.OutConns)
		if s.cfg.RemoveEnabled {
			inConns[id] = encodeConns(node.InConns)
		}
	}

	ep := s.entryPoint()
	lookup := lookupArtifact{
		NodeCount:   n,
		FreedIDs:    idsToUint32(s.ids.freed),
		EntryValid:  ep.valid,
		EntryID:     uint32(ep.id),
		EntryLevel:  ep.level,
		ExternalIDs: externalIDs,
	}

	if err := storage.WriteArtifact(dir, artifactVectors, vectors); err != nil {
		return err
	}
	if err := storage.WriteArtifact(dir, artifactOutConns, connArtifact{outConns}); err != nil {
		return err
	}
	if s.cfg.RemoveEnabled {
		if err := storage.WriteArtifact(dir, artifactInConns, connArtifact{inConns}); err != nil {
			return err
		}
	}
	if err := storage.WriteArtifact(dir, artifactLookup, lookup); err != nil {
		return err
	}
	return nil
}

// Load replaces the segment's mutable state (nodes, nodeCount, freedIds,
// lookup, entryPoint) with the content of a snapshot previously written by
// Snapshot. The segment's immutable Config must already provide enough
// capacity (MaxNodeCount >= the snapshot's NodeCount); Load does not resize
// the arena.
func (s *Segment) Load(dir string) error {
	var vectors []vectorRecord
	if err := storage.ReadArtifact(dir, artifactVectors, &vectors); err != nil {
		return err
	}
	var out connArtifact
	if err := storage.ReadArtifact(dir, artifactOutConns, &out); err != nil {
		return err
	}
	var in connArtifact
	if s.cfg.RemoveEnabled {
		if err := storage.ReadArtifact(dir, artifactInConns, &in); err != nil {
			return err
		}
	}
	var lookup lookupArtifact
	if err := storage.ReadArtifact(dir, artifactLookup, &lookup); err != nil {
		return err
	}

	if lookup.NodeCount > s.arena.capacity() {
		return fmt.Errorf("segment: snapshot has %d nodes, arena capacity is %d", lookup.NodeCount, s.arena.capacity())
	}

	s.coord.lockGlobal()
	s.coord.writeTopology()
	defer s.coord.unwriteTopology()
	defer s.coord.unlockGlobal()

	fresh := newArena(s.arena.capacity())
	freshLookup := newIDLookup()

	for id := 0; id < lookup.NodeCount; id++ {
		if id >= len(vectors) || !vectors[id].Present {
			continue
		}
		rec := vectors[id]
		v := &vector.Vector{Values: append([]float32(nil), rec.Values...), Dimension: rec.Dimension}

		internalID := InternalID(id)
		node := &Node{
			InternalID: internalID,
			ExternalID: ExternalID(lookup.ExternalIDs[id]),
			Vector:     v,
			OutConns:   decodeConns(out.Layers[id]),
		}
		node.MaxLevel = len(node.OutConns) - 1
		if s.cfg.RemoveEnabled {
			node.InConns = decodeConns(in.Layers[id])
		}

		fresh.publish(internalID, node)
		freshLookup.put(node.ExternalID, s.toGlobal(internalID))
	}

	s.arena = fresh
	s.lookup = freshLookup
	s.ids = &idAllocator{
		nodeCount:    lookup.NodeCount,
		maxNodeCount: s.cfg.MaxNodeCount,
		freed:        uint32ToIDs(lookup.FreedIDs),
	}
	if lookup.EntryValid {
		s.entry.Store(&epRef{valid: true, id: InternalID(lookup.EntryID), level: lookup.EntryLevel})
	} else {
		s.entry.Store(&epRef{})
	}

	return nil
}

func encodeConns(levels [][]InternalID) [][]uint32 {
	out := make([][]uint32, len(levels))
	for i, l := range levels {
		out[i] = idsToUint32(l)
	}
	return out
}

func decodeConns(levels [][]uint32) [][]InternalID {
	out := make([][]InternalID, len(levels))
	for i, l := range levels {
		out[i] = uint32ToIDs(l)
	}
	return out
}

func idsToUint32(ids []InternalID) []uint32 {
	out := make([]uint32, len(ids))
	for i, id := range ids {
		out[i] = uint32(id)
	}
	return out
}

func uint32ToIDs(raw []uint32) []InternalID {
	out := make([]InternalID, len(raw))
	for i, v := range raw {
		out[i] = InternalID(v)
	}
	return out
}
