// Package storage defines the persisted-table contract an index opens
// against (spec.md §6): the `_data`, `_idx`, `_docsize` and `_config`
// shadow tables, plus an optional `_content` table for rows stored
// inside the index itself rather than in an external-content table.
//
// The host's virtual-table dispatch, SQL parser and blob-I/O primitives
// are out of scope (spec.md §1); this package is the narrow seam the
// rest of the engine depends on instead, so that internal/segment,
// internal/writer and the top-level fts5 package never talk to a
// concrete database directly.
package storage

import "errors"

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("storage: not found")

// DataTable is the `<name>_data(id INTEGER PRIMARY KEY, block BLOB)`
// shadow table: structure record, averages record, leaf pages and dlidx
// pages all live here, addressed by the rowid encoding in internal/rowid.
type DataTable interface {
	// Get returns the block stored at id, or ErrNotFound.
	Get(id int64) ([]byte, error)
	// Put stores (or overwrites) the block at id.
	Put(id int64, block []byte) error
	// Delete removes the block at id, if present. Deleting an absent id
	// is not an error.
	Delete(id int64) error
	// DeleteRange removes every id in [first, last] (inclusive).
	DeleteRange(first, last int64) error
}

// IdxEntry is one row of the `%_idx` helper table.
type IdxEntry struct {
	Term  []byte
	Pgno  uint32 // leaf page number; the dlidx flag is split out into Dlidx
	Dlidx bool
}

// IdxTable is the `<name>_idx(segid, term, pgno, PRIMARY KEY(segid,
// term))` helper table: one row per leaf's first term, used by segment
// iterators to seek directly to the leaf a term might live on.
type IdxTable interface {
	// Put records (or overwrites) the row for (segid, term).
	Put(segid uint16, term []byte, pgno uint32, dlidx bool) error
	// SeekFloor returns the entry with the greatest term <= term within
	// segid, or found=false if segid has no entry that small.
	SeekFloor(segid uint16, term []byte) (entry IdxEntry, found bool, err error)
	// DeleteSegment removes every row belonging to segid.
	DeleteSegment(segid uint16) error
}

// DocsizeTable is the `<name>_docsize(id INTEGER PRIMARY KEY, sz BLOB)`
// shadow table: sz is a sequence of varint(tokenCount), one per column,
// for the row at id.
type DocsizeTable interface {
	Get(id int64) ([]byte, error)
	Put(id int64, sz []byte) error
	Delete(id int64) error
}

// ConfigTable is the `<name>_config(k TEXT PRIMARY KEY, v)` key/value
// table holding settings such as `version` and `rank`.
type ConfigTable interface {
	Get(key string) (string, bool, error)
	Put(key, value string) error
}

// ContentTable is the `<name>_content(id INTEGER PRIMARY KEY, c0, c1,
// …)` table holding the original row text, present only when the index
// is not running in external-content mode.
type ContentTable interface {
	Get(id int64) ([]string, error)
	Put(id int64, cols []string) error
	Delete(id int64) error
}

// Store bundles the persisted tables one index instance needs. A
// storage/bolt.Store is the reference implementation, but anything
// satisfying this interface (an in-memory fake for tests, a different
// embedded engine) can back an index.
type Store interface {
	Data() DataTable
	Idx() IdxTable
	Docsize() DocsizeTable
	Config() ConfigTable
	// Content returns the content table and true, or (nil, false) if
	// the index was opened in external-content mode.
	Content() (ContentTable, bool)
	// Close releases the underlying resources (file handles, etc).
	Close() error
}
