package fts5

import "errors"

// Sentinel errors mirroring spec.md §7's error kinds. NOMEM has no
// analogue here — Go has no allocation-failure protocol distinct from a
// normal error return, so out-of-memory conditions (if bubbled up from a
// Store at all) surface as whatever error that Store returns.
var (
	// ErrCorrupt is wrapped by any error raised when a page header,
	// varint, offset or structure/averages-record invariant is violated.
	// Never auto-recovered; a corrupt index should be closed and
	// rebuilt.
	ErrCorrupt = errors.New("fts5: corrupt")

	// ErrFull is returned when the 16-bit segment-id space is exhausted
	// (structure.MaxSegments active segments already).
	ErrFull = errors.New("fts5: segment id space exhausted")

	// ErrError is a generic fatal condition: malformed configuration,
	// a transaction operation with no matching counterpart, and the
	// like.
	ErrError = errors.New("fts5: error")

	// ErrSchemaMismatch reports that a configuration cookie computed
	// from the options passed to Open does not match the cookie stored
	// in the index's structure record (spec.md §3's configuration
	// invariant).
	ErrSchemaMismatch = errors.New("fts5: configuration does not match the persisted schema")
)
