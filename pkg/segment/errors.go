package segment

import "errors"

// Error kinds surfaced internally by Add and Remove. Both return a plain
// bool to callers; the sentinel behind a false result is logged at debug
// level (the internal add path also returns it as its error value).
var (
	// ErrCapacityExceeded is raised by Add when nodeCount == maxNodeCount
	// and no freed ids remain.
	ErrCapacityExceeded = errors.New("segment: capacity exceeded")

	// ErrDuplicateInOtherSegment is raised by Add when the external id is
	// already mapped to a global id outside this segment's range.
	ErrDuplicateInOtherSegment = errors.New("segment: external id belongs to another segment")

	// ErrUpdateWithoutRemoveEnabled is raised by Add when a duplicate
	// external id is seen in this segment but removal is disabled.
	ErrUpdateWithoutRemoveEnabled = errors.New("segment: duplicate external id, remove disabled")

	// ErrNotFound is raised by Remove when the internal id is absent.
	ErrNotFound = errors.New("segment: internal id not found")

	// ErrRemoveDisabled is raised by Remove when removeEnabled == false.
	ErrRemoveDisabled = errors.New("segment: remove disabled for this segment")
)

// invariantViolation panics with a message identifying a broken invariant.
// The segment calls it when a distance computation fails, which happens
// only if vectors of different dimensions were inserted.
func invariantViolation(msg string) {
	panic("segment: invariant violation: " + msg)
}
