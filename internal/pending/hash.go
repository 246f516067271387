// Package pending implements the in-memory accumulator that buffers
// postings between flushes (spec.md §3 "pending hash entry", §4.3).
//
// The reference implementation this module is modeled on keeps entries
// as a hand-rolled bucket/linked-list hash table with an inline
// back-pointer trick so a single append-only byte buffer can be replayed
// forwards at flush time. Per spec.md §9 ("re-model [manual linked
// lists] as owned... lists"), this package drops the bucket/back-pointer
// machinery for a plain Go map keyed by term, with each entry finishing
// one row at a time into the exact on-disk doclist wire format
// (internal/doclist) as soon as a new rowid arrives for that term. The
// result is bit-identical bytes at flush time without replicating the
// back-pointer bookkeeping, which existed only to keep the C
// implementation's memory layout compact.
package pending

import (
	"sort"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/poslist"
)

// perTermOverhead approximates the bucket/slot bookkeeping the hash
// would otherwise cost, so ByteSize tracks something proportional to
// true memory use even though this implementation does not replicate
// the original struct layout byte-for-byte.
const perTermOverhead = 24

type entry struct {
	finished  []byte // completed rows, doclist-entry-encoded, not yet terminated
	started   bool
	lastRowid int64

	hasCurRow  bool
	curRowid   int64
	curRowPos  []poslist.Position
	curRowDel  bool
}

func (e *entry) flushRow() {
	first := !e.started
	e.finished = doclist.AppendEntry(e.finished, e.lastRowid, first, doclist.Entry{
		Rowid:     e.curRowid,
		Positions: e.curRowPos,
		Delete:    e.curRowDel,
	})
	e.lastRowid = e.curRowid
	e.started = true
	e.curRowPos = e.curRowPos[:0]
	e.curRowDel = false
	e.hasCurRow = false
}

// doclistBytes returns the terminated doclist for this entry, flushing
// any in-progress row first. It does not mutate e.
func (e *entry) doclistBytes() []byte {
	if e.hasCurRow {
		// Snapshot without mutating the live entry: scans may run before
		// the writer is done for this flush cycle (e.g. size estimates).
		first := !e.started
		tmp := doclist.AppendEntry(append([]byte(nil), e.finished...), e.lastRowid, first, doclist.Entry{
			Rowid:     e.curRowid,
			Positions: e.curRowPos,
			Delete:    e.curRowDel,
		})
		return doclist.AppendTerminator(tmp)
	}
	return doclist.AppendTerminator(append([]byte(nil), e.finished...))
}

// Hash is the pending-postings accumulator for one index between
// flushes.
type Hash struct {
	entries map[string]*entry
	bytes   int
}

// New returns an empty Hash.
func New() *Hash {
	return &Hash{entries: make(map[string]*entry)}
}

// Write records one (term, column, offset) occurrence in rowid. Within a
// term, rowid must be non-decreasing (spec.md §3 invariant); the caller
// (the Index) is responsible for flushing before writing a lower rowid.
func (h *Hash) Write(rowid int64, col, offset uint32, term []byte) {
	e, ok := h.entries[string(term)]
	if !ok {
		e = &entry{lastRowid: -1}
		h.entries[string(term)] = e
		h.bytes += len(term) + perTermOverhead
	}
	if e.hasCurRow && rowid != e.curRowid {
		before := len(e.finished)
		e.flushRow()
		h.bytes += len(e.finished) - before
	}
	if !e.hasCurRow {
		e.curRowid = rowid
		e.hasCurRow = true
	}
	e.curRowPos = append(e.curRowPos, poslist.Pack(col, offset))
	h.bytes += 2 // rough per-position cost; exact count is irrelevant to correctness, only to flush timing
}

// Delete records a tombstone for rowid in term: an entry with zero
// positions and the delete flag set, which mergeLevel later propagates
// or discards per spec.md §4.8.
func (h *Hash) Delete(rowid int64, term []byte) {
	e, ok := h.entries[string(term)]
	if !ok {
		e = &entry{lastRowid: -1}
		h.entries[string(term)] = e
		h.bytes += len(term) + perTermOverhead
	}
	if e.hasCurRow && rowid != e.curRowid {
		e.flushRow()
	}
	e.curRowid = rowid
	e.hasCurRow = true
	e.curRowPos = e.curRowPos[:0]
	e.curRowDel = true
}

// ByteSize estimates the memory held by the hash, used by the Index to
// decide when to flush.
func (h *Hash) ByteSize() int { return h.bytes }

// Len returns the number of distinct terms currently buffered.
func (h *Hash) Len() int { return len(h.entries) }

// Clear discards all entries, replacing the map with a fresh one.
func (h *Hash) Clear() {
	h.entries = make(map[string]*entry)
	h.bytes = 0
}

// Iterator walks the pending hash in ascending term order, presenting it
// as a synthetic segment so the multi-iterator (internal/multiiter) can
// merge it uniformly with on-disk segments.
type Iterator struct {
	terms []string
	data  map[string][]byte
	idx   int
}

// NewIterator snapshots the hash's current contents in sorted term
// order. The snapshot is stable even if the hash is written to
// afterwards (callers typically open an iterator right before a flush).
func (h *Hash) NewIterator() *Iterator {
	terms := make([]string, 0, len(h.entries))
	data := make(map[string][]byte, len(h.entries))
	for term, e := range h.entries {
		terms = append(terms, term)
		data[term] = e.doclistBytes()
	}
	sort.Strings(terms)
	return &Iterator{terms: terms, data: data}
}

// Valid reports whether the iterator is positioned on a term.
func (it *Iterator) Valid() bool { return it.idx < len(it.terms) }

// Term returns the current term.
func (it *Iterator) Term() string { return it.terms[it.idx] }

// Doclist returns the current term's terminated doclist bytes.
func (it *Iterator) Doclist() []byte { return it.data[it.terms[it.idx]] }

// Next advances to the next term.
func (it *Iterator) Next() { it.idx++ }

// SeekTerm advances to the first term >= term (linear from the current
// position; pending-hash term counts are small enough between flushes
// that a full binary search is not worth the complexity).
func (it *Iterator) SeekTerm(term string) {
	for it.Valid() && it.Term() < term {
		it.Next()
	}
}
