package segment

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// coordinator bundles the segment's synchronization primitives:
//
//   - global: mutual exclusion for topology changes (id allocation,
//     entry-point rotation, deletion).
//   - topology: reader/writer lock. Inserts that will not move the entry
//     point and all searches are readers; Snapshot and Load are the only
//     writers.
//   - construction: the activeConstruction bitset, tracking which internal
//     ids are mid-mutuallyConnect, guarded by its own mutex rather than the
//     global lock because searchers must never block on it (only other
//     inserters do).
//
// Per-node monitors live on Node itself (node.go), not here.
type coordinator struct {
	global sync.Mutex

	topology sync.RWMutex

	constructionMu sync.Mutex
	construction   *bitset.BitSet
}

func newCoordinator(capacity int) *coordinator {
	return &coordinator{
		construction: bitset.New(uint(capacity)),
	}
}

func (c *coordinator) lockGlobal()   { c.global.Lock() }
func (c *coordinator) unlockGlobal() { c.global.Unlock() }

func (c *coordinator) readTopology()    { c.topology.RLock() }
func (c *coordinator) unreadTopology()  { c.topology.RUnlock() }
func (c *coordinator) writeTopology()   { c.topology.Lock() }
func (c *coordinator) unwriteTopology() { c.topology.Unlock() }

// markConstruction flags id as mid-mutuallyConnect.
func (c *coordinator) markConstruction(id InternalID) {
	c.constructionMu.Lock()
	defer c.constructionMu.Unlock()
	c.construction.Set(uint(id))
}

// clearConstruction un-flags id.
func (c *coordinator) clearConstruction(id InternalID) {
	c.constructionMu.Lock()
	defer c.constructionMu.Unlock()
	c.construction.Clear(uint(id))
}

// underConstruction reports whether id is currently flagged.
func (c *coordinator) underConstruction(id InternalID) bool {
	c.constructionMu.Lock()
	defer c.constructionMu.Unlock()
	return c.construction.Test(uint(id))
}
