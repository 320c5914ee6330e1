package segment

import (
	"sync"
	"sync/atomic"

	"github.com/ken/hnswseg/pkg/core/vector"
)

// ExternalID is the caller-chosen key carried by an Item.
type ExternalID uint64

// InternalID is a dense index into a segment's node arena.
type InternalID uint32

// GlobalID is unique across the whole multi-segment index: internal id plus
// the owning segment's baseID.
type GlobalID uint64

// Item is the payload passed to Add: an external id and its vector.
type Item struct {
	ExternalID ExternalID
	Vector     *vector.Vector
}

// Node is one vertex of the HNSW graph. OutConns[L] and InConns[L] hold
// internal ids, never pointers, so the graph survives deletion as a local
// rewrite and snapshotting as a linear scan, with no cyclic references to
// unwind.
//
// Node uses itself as a monitor: every read or mutation of OutConns/InConns
// happens while mu is held, rather than relying on a single lock shared by
// the whole graph.
type Node struct {
	mu sync.Mutex

	InternalID InternalID
	ExternalID ExternalID
	Vector     *vector.Vector

	// MaxLevel is the highest layer this node participates in; OutConns and
	// InConns each have MaxLevel+1 entries, index 0 is the base layer.
	MaxLevel int
	OutConns [][]InternalID
	InConns  [][]InternalID // nil when the owning segment has RemoveEnabled == false

	deletedFlag atomic.Bool // guards a reader holding a stale pointer across concurrent removal
}

func (n *Node) deleted() bool { return n.deletedFlag.Load() }

func (n *Node) markDeleted() { n.deletedFlag.Store(true) }

// newNode allocates a fully initialized Node (ids and empty, capacity-sized
// connection lists) before it is ever published into the arena, so a
// reader that loads it from the arena never observes a partially built
// node.
func newNode(internalID InternalID, item Item, maxLevel int, m, m0 int, removeEnabled bool) *Node {
	n := &Node{
		InternalID: internalID,
		ExternalID: item.ExternalID,
		Vector:     item.Vector,
		MaxLevel:   maxLevel,
		OutConns:   make([][]InternalID, maxLevel+1),
	}
	if removeEnabled {
		n.InConns = make([][]InternalID, maxLevel+1)
	}
	for l := 0; l <= maxLevel; l++ {
		capacity := m
		if l == 0 {
			capacity = m0
		}
		n.OutConns[l] = make([]InternalID, 0, capacity)
		if removeEnabled {
			n.InConns[l] = make([]InternalID, 0, capacity)
		}
	}
	return n
}

// arena is the fixed-length array of optional Node slots: a reader observes
// either a fully initialized Node or absent, thanks to atomic.Pointer
// publication.
type arena struct {
	slots []atomic.Pointer[Node]
}

func newArena(capacity int) *arena {
	return &arena{slots: make([]atomic.Pointer[Node], capacity)}
}

func (a *arena) get(id InternalID) *Node {
	if int(id) < 0 || int(id) >= len(a.slots) {
		return nil
	}
	return a.slots[id].Load()
}

func (a *arena) publish(id InternalID, n *Node) {
	a.slots[id].Store(n)
}

func (a *arena) clear(id InternalID) {
	a.slots[id].Store(nil)
}

func (a *arena) capacity() int {
	return len(a.slots)
}
