// Package segment implements a single HNSW leaf segment: a bounded graph
// into which vectors are inserted and from which nearest neighbors are
// searched, concurrently, by many threads.
package segment

import (
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ken/hnswseg/pkg/bitsetpool"
	"github.com/ken/hnswseg/pkg/core/distance"
	"github.com/ken/hnswseg/pkg/core/vector"
)

// Config holds the segment's immutable configuration.
type Config struct {
	M              int     // target out-degree for layers > 0
	M0             int     // target out-degree for layer 0 (typically 2*M)
	EfConstruction int     // beam width for insertion search
	LevelLambda    float64 // exponent governing level assignment
	MaxNodeCount   int     // capacity
	BaseID         GlobalID
	RemoveEnabled  bool // whether in-edges are tracked
}

// DefaultConfig returns sane defaults for the segment's knob set.
func DefaultConfig() Config {
	m := 16
	return Config{
		M:              m,
		M0:             2 * m,
		EfConstruction: 200,
		LevelLambda:    1.0 / math.Log(float64(m)),
		MaxNodeCount:   1 << 20,
		RemoveEnabled:  true,
	}
}

// epRef is an immutable snapshot of the current entry point, swapped
// wholesale under the global lock so readers can atomic.Load a consistent
// view without taking any lock, and can keep working against their own
// snapshot even after a concurrent insert or removal moves the entry point.
type epRef struct {
	valid bool
	id    InternalID
	level int
}

// Segment is a single concurrent HNSW leaf: a bounded vector arena plus the
// graph connecting it.
type Segment struct {
	cfg     Config
	metric  distance.Metric
	levelFn func(ExternalID) int

	arena   *arena
	ids     *idAllocator
	lookup  *idLookup
	coord   *coordinator
	visited *bitsetpool.Pool

	entry atomic.Pointer[epRef]

	log zerolog.Logger
}

// Option configures a Segment at construction time.
type Option func(*Segment)

// WithLogger overrides the segment's structured logger (default: a disabled
// zerolog.Logger, quiet unless asked).
func WithLogger(l zerolog.Logger) Option {
	return func(s *Segment) { s.log = l }
}

// WithLevelFunc overrides the deterministic level sampler, mainly for tests
// that need to pin specific nodes to specific layers.
func WithLevelFunc(f func(ExternalID) int) Option {
	return func(s *Segment) { s.levelFn = f }
}

// New creates an empty segment with the given configuration and distance
// metric.
func New(cfg Config, metric distance.Metric, opts ...Option) *Segment {
	if cfg.M0 == 0 {
		cfg.M0 = 2 * cfg.M
	}
	s := &Segment{
		cfg:     cfg,
		metric:  metric,
		arena:   newArena(cfg.MaxNodeCount),
		ids:     newIDAllocator(cfg.MaxNodeCount),
		lookup:  newIDLookup(),
		coord:   newCoordinator(cfg.MaxNodeCount),
		visited: bitsetpool.New(uint(cfg.MaxNodeCount)),
		log:     zerolog.Nop(),
	}
	s.levelFn = func(id ExternalID) int { return LevelFor(id, cfg.LevelLambda) }
	s.entry.Store(&epRef{})
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Segment) dist(a, b *vector.Vector) float32 {
	d, err := s.metric.Distance(a, b)
	if err != nil {
		// The only failure mode of a Metric is a dimension mismatch, which
		// can only happen if a caller inserted vectors of inconsistent
		// dimensionality: a usage bug, not a recoverable runtime state.
		invariantViolation("distance: " + err.Error())
	}
	return d
}

// Config returns a copy of the segment's configuration.
func (s *Segment) Config() Config { return s.cfg }

// entryPoint returns the current entry point snapshot.
func (s *Segment) entryPoint() epRef {
	return *s.entry.Load()
}

// GetVector returns the vector stored at internalID, if the slot is live.
func (s *Segment) GetVector(id InternalID) (*vector.Vector, bool) {
	n := s.arena.get(id)
	if n == nil {
		return nil, false
	}
	return n.Vector, true
}

// GetNode returns the node at internalID, if the slot is live. Callers must
// not mutate the returned connection lists directly.
func (s *Segment) GetNode(id InternalID) (*Node, bool) {
	n := s.arena.get(id)
	if n == nil {
		return nil, false
	}
	return n, true
}

// Size reports the number of live nodes.
func (s *Segment) Size() int {
	return s.lookup.len()
}

// Result is one entry of a SearchKNN response.
type Result struct {
	ExternalID ExternalID
	Distance   float32
}
