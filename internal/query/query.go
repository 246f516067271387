// Package query implements the query surface (spec.md §4.6): turning a
// single token, with or without the PREFIX flag, into a merged iterator
// over the pending hash and every on-disk segment of an index.
package query

import (
	"bytes"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/multiiter"
	"github.com/tursodatabase/go-fts5/internal/pending"
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/internal/segment"
	"github.com/tursodatabase/go-fts5/internal/structure"
)

// Index answers term and prefix queries against one logical index: the
// pending hash plus every on-disk segment named by a structure record.
// A host with several configured prefix indexes (spec.md §4.6) builds
// one Index per index class (see storage/bolt's namespace split).
type Index struct {
	fetcher segment.PageFetcher
	lookup  segment.IndexLookup
	pending *pending.Hash
}

// NewIndex builds a query.Index over the given page store and pending
// hash. pending may be nil (e.g. querying a read-only snapshot).
func NewIndex(fetcher segment.PageFetcher, lookup segment.IndexLookup, pending *pending.Hash) *Index {
	return &Index{fetcher: fetcher, lookup: lookup, pending: pending}
}

// newestFirstSegments orders every segment in st newest-first: level 0
// holds the most recently flushed segments, and within a level,
// Segments is stored oldest-first (structure.Level's documented
// convention), so the newest-first order is level-ascending, then
// reversed within each level — the same convention internal/writer's
// merger uses for its own input ordering.
func newestFirstSegments(st *structure.Structure) []structure.Segment {
	var out []structure.Segment
	for _, l := range st.Levels {
		for i := len(l.Segments) - 1; i >= 0; i-- {
			out = append(out, l.Segments[i])
		}
	}
	return out
}

// Term returns a merged iterator confined to exactly one term (spec.md
// §4.6's non-prefix path, and the direct-hit path when a prefix token
// matches a configured prefix index's character length): ONETERM,
// optionally REVERSE, folding deletes and cross-source duplicates.
func (q *Index) Term(st *structure.Structure, term []byte, reverse bool) (*multiiter.Multi, error) {
	var subs []multiiter.SubIterator
	if sub := q.pendingTermSub(term, reverse); sub != nil {
		subs = append(subs, sub)
	}
	flags := segment.Flags{OneTerm: true, Reverse: reverse}
	for _, seg := range newestFirstSegments(st) {
		it := segment.New(q.fetcher, q.lookup, seg)
		if err := it.SeekInit(term, flags); err != nil {
			return nil, err
		}
		subs = append(subs, it)
	}
	return multiiter.New(subs, reverse, true)
}

// pendingTermSub returns a materialized, ONETERM sub-iterator over
// exactly term's rows in the pending hash, in the requested rowid
// order, or nil if there is no pending hash or it holds no such term.
//
// The pending hash's own Iterator (multiiter.NewPendingSubSeek) only
// ever walks a term's rows in ascending-rowid order, since it replays
// the hash's append-only wire format directly; that format cannot
// represent descending order. A reverse Term query therefore decodes
// the one term's doclist in full (pending doclists are small — they
// hold only what hasn't flushed yet) and hands back the rows reversed,
// so a reverse query's result is the exact mirror of its forward
// counterpart (spec.md §8 property 7) even when the pending hash
// contributes more than one row for the term.
func (q *Index) pendingTermSub(term []byte, reverse bool) multiiter.SubIterator {
	if q.pending == nil {
		return nil
	}
	it := q.pending.NewIterator()
	it.SeekTerm(string(term))
	if !it.Valid() || it.Term() != string(term) {
		return nil
	}
	entries := doclist.Decode(it.Doclist())
	if reverse {
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	}
	return newMaterializedEntries(term, entries)
}

// prefixSubs opens one sub-iterator per source (pending hash plus every
// segment), each positioned at the first term >= prefix, for Prefix's
// scan.
func (q *Index) prefixSubs(st *structure.Structure, prefix []byte) ([]multiiter.SubIterator, error) {
	var subs []multiiter.SubIterator
	if q.pending != nil {
		subs = append(subs, multiiter.NewPendingSubSeek(q.pending, prefix))
	}
	for _, seg := range newestFirstSegments(st) {
		it := segment.New(q.fetcher, q.lookup, seg)
		if err := it.SeekPrefix(prefix); err != nil {
			return nil, err
		}
		subs = append(subs, it)
	}
	return subs, nil
}

// bucketEntry is one row's contribution while materializing a prefix
// doclist: possibly several terms contributed positions for the same
// rowid, which must be unioned (sorted, deduplicated) before the final
// doclist is built.
type bucketEntry struct {
	rowid int64
	pos   []poslist.Position
}

// buffer is one level of the geometric bucket tree: capacity doubles
// with level, mirroring spec.md §4.6's "32 geometrically-sized buffers
// (inspired by merge-sort's buffer trees)". Entries inside one buffer
// are always kept sorted by rowid with duplicates already folded, so
// merging two buffers is a linear merge, not a re-sort.
type buffer struct {
	entries []bucketEntry
}

// maxBuckets bounds the bucket tree's depth. Bucket i holds at most
// baseCap<<i rows, except the last bucket, which has no cap and absorbs
// whatever cascades into it; the buckets below it hold
// baseCap*(2^(maxBuckets-1) - 1) rows between them, far beyond what any
// single prefix query should ever accumulate (spec.md §4.6).
const maxBuckets = 32

const baseCap = 64

// prefixAccumulator implements the bucketed buffer-tree merge spec.md
// §4.6 describes: incoming (rowid, positions) pairs land in bucket 0;
// whenever a bucket would exceed its capacity it is merged into the
// next bucket (doubling the capacity ceiling) and cleared, cascading
// like a binary counter increment. The final doclist is the merge of
// every still-populated bucket.
type prefixAccumulator struct {
	buckets [maxBuckets]buffer
}

func mergeSortedEntries(a, b []bucketEntry) []bucketEntry {
	out := make([]bucketEntry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].rowid < b[j].rowid:
			out = append(out, a[i])
			i++
		case a[i].rowid > b[j].rowid:
			out = append(out, b[j])
			j++
		default:
			merged := mergePositions(a[i].pos, b[j].pos)
			out = append(out, bucketEntry{rowid: a[i].rowid, pos: merged})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// mergePositions unions two already-sorted position lists belonging to
// the same rowid under different matching terms, deduplicating exact
// (col, offset) collisions (the same token occurrence should not be
// double-counted just because two configured terms both matched it —
// this can't happen for distinct terms on real text, but is cheap to
// guard).
func mergePositions(a, b []poslist.Position) []poslist.Position {
	out := make([]poslist.Position, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// add inserts one (rowid, positions) pair, cascading merges up the
// bucket tree as capacities are exceeded.
func (acc *prefixAccumulator) add(rowid int64, pos []poslist.Position) {
	level := 0
	incoming := []bucketEntry{{rowid: rowid, pos: pos}}
	for {
		b := &acc.buckets[level]
		merged := mergeSortedEntries(b.entries, incoming)
		capacity := baseCap << uint(level)
		if len(merged) <= capacity || level == maxBuckets-1 {
			b.entries = merged
			return
		}
		b.entries = nil
		incoming = merged
		level++
	}
}

// drain folds every populated bucket into one fully sorted, deduplicated
// slice, from smallest (newest, level 0) upward.
func (acc *prefixAccumulator) drain() []bucketEntry {
	var out []bucketEntry
	for i := range acc.buckets {
		if len(acc.buckets[i].entries) == 0 {
			continue
		}
		out = mergeSortedEntries(out, acc.buckets[i].entries)
	}
	return out
}

// Prefix materializes the merged doclist for every term beginning with
// prefix (spec.md §4.6's setupPrefixIter fallback, used when prefix
// doesn't match one of the host's configured prefix-index character
// lengths): it scans the pending hash and every segment from the first
// term >= prefix, folds in every (term, rowid, positions) triple whose
// term has prefix using the bucketed buffer-tree merge, and returns a
// synthetic single-term sub-iterator over the combined doclist.
func (q *Index) Prefix(st *structure.Structure, prefix []byte) (multiiter.SubIterator, error) {
	subs, err := q.prefixSubs(st, prefix)
	if err != nil {
		return nil, err
	}
	m, err := multiiter.New(subs, false, true)
	if err != nil {
		return nil, err
	}

	var acc prefixAccumulator
	for m.Valid() {
		term := m.Term()
		if !bytes.HasPrefix(term, prefix) {
			break
		}
		acc.add(m.Rowid(), m.Positions())
		if err := m.Next(); err != nil {
			return nil, err
		}
	}
	if err := m.Err(); err != nil {
		return nil, err
	}

	entries := acc.drain()
	docEntries := make([]doclist.Entry, 0, len(entries))
	for _, e := range entries {
		docEntries = append(docEntries, doclist.Entry{Rowid: e.rowid, Positions: e.pos})
	}
	return newMaterializedEntries(prefix, docEntries), nil
}

// materializedSub presents an already-built, in-memory run of doclist
// entries (the output of Prefix, or one term's pending-hash rows in
// reverse) as a multiiter.SubIterator, so downstream phrase matching
// sees every query path through the identical interface regardless of
// where its rows came from. Entries are held as plain values rather
// than re-encoded into the on-disk doclist wire format, since that
// format's delta-from-previous-rowid encoding only supports ascending
// order and a reverse Term query needs descending.
type materializedSub struct {
	term    []byte
	entries []doclist.Entry
	idx     int
}

func newMaterializedEntries(term []byte, entries []doclist.Entry) *materializedSub {
	return &materializedSub{term: append([]byte(nil), term...), entries: entries}
}

func (s *materializedSub) Valid() bool  { return s.idx < len(s.entries) }
func (s *materializedSub) Term() []byte { return s.term }
func (s *materializedSub) Rowid() int64 { return s.entries[s.idx].Rowid }
func (s *materializedSub) Positions() []poslist.Position {
	return s.entries[s.idx].Positions
}
func (s *materializedSub) Deleted() bool { return s.entries[s.idx].Delete }
func (s *materializedSub) Next() error   { s.idx++; return nil }
