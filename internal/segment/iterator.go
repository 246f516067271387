// Package segment implements the segment iterator (spec.md §4.4): a
// cursor over one on-disk segment's leaves, B-tree directory and
// doclist-index, used both for full scans and for term/prefix seeks.
package segment

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/page"
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/internal/rowid"
	"github.com/tursodatabase/go-fts5/internal/structure"
)

// PageFetcher fetches one page's raw bytes from the `_data` shadow
// table by its composed rowid.
type PageFetcher interface {
	FetchPage(r int64) ([]byte, error)
}

// IndexLookup resolves the `%_idx` helper table: the leaf page whose
// first term is the greatest one not exceeding term (spec.md §6,
// "Table <name>_idx"). found is false if term precedes every leaf's
// first term, in which case a scan should start at the segment's first
// leaf.
type IndexLookup interface {
	SeekFloor(segid uint16, term []byte) (pgno uint32, dlidxPgno uint32, hasDlidx bool, found bool, err error)
}

// Flags for Init/SeekInit, mirroring spec.md §4.4.
type Flags struct {
	OneTerm bool // confine iteration to the seeked term's doclist
	Reverse bool // walk rowids in descending order (requires OneTerm)
}

// Iterator walks one segment's leaves in term, then rowid, order.
type Iterator struct {
	fetcher PageFetcher
	idx     IndexLookup
	seg     structure.Segment

	flags Flags

	pgno    uint32
	leaf    *page.Leaf
	tgr     *page.TermGroupReader
	term    []byte
	dl      *doclist.Reader
	dlBase  int // base offset of the current doclist reader's window into leaf.Payload

	rowid  int64
	pos    []poslist.Position
	del    bool

	// reverse support: every row (rowid, positions, delete flag) of the
	// current term's doclist, collected by a forward pass in reverseInit.
	revEntries []reverseEntry
	revIdx     int

	valid bool
	eof   bool
	err   error
}

type reverseEntry struct {
	rowid int64
	pos   []poslist.Position
	del   bool
}

// New constructs an iterator over seg. Call Init or SeekInit before use.
func New(fetcher PageFetcher, idx IndexLookup, seg structure.Segment) *Iterator {
	return &Iterator{fetcher: fetcher, idx: idx, seg: seg}
}

// Err returns the first error encountered, if any.
func (it *Iterator) Err() error { return it.err }

// Valid reports whether the iterator currently names a (term, rowid).
func (it *Iterator) Valid() bool { return it.valid && it.err == nil }

// Term returns the current term.
func (it *Iterator) Term() []byte { return it.term }

// Rowid returns the current row id.
func (it *Iterator) Rowid() int64 { return it.rowid }

// Positions returns the current row's position list.
func (it *Iterator) Positions() []poslist.Position { return it.pos }

// Deleted reports whether the current row is a tombstone.
func (it *Iterator) Deleted() bool { return it.del }

// Close releases the iterator's references. Segment iterators hold no
// external resources beyond Go-managed memory, so this is a no-op
// provided for symmetry with spec.md's close() operation.
func (it *Iterator) Close() error { return nil }

func (it *Iterator) fail(err error) {
	if it.err == nil {
		it.err = err
	}
	it.valid = false
}

// loadLeaf fetches and decodes the leaf at pgno, positioning a fresh
// term-group reader at its first term header.
func (it *Iterator) loadLeaf(pgno uint32) error {
	raw, err := it.fetcher.FetchPage(rowid.Compose(it.seg.ID, false, 0, pgno))
	if err != nil {
		return fmt.Errorf("segment: fetch leaf %d: %w", pgno, err)
	}
	leaf, err := page.DecodeLeaf(raw)
	if err != nil {
		return fmt.Errorf("segment: decode leaf %d: %w", pgno, err)
	}
	it.pgno = pgno
	it.leaf = leaf
	if leaf.FirstTermOffset == 0 {
		// Continuation page: no term header, the current term carries
		// over from the previous leaf. The payload begins directly
		// with a doclist continuation for it.
		it.tgr = nil
		return nil
	}
	relOff := int(leaf.FirstTermOffset) - page.HeaderSize
	it.tgr = page.NewTermGroupReader(leaf.Payload, relOff, true, nil)
	return nil
}

// Init starts the iterator at the segment's very first term and rowid
// (a full scan).
func (it *Iterator) Init() error {
	it.flags = Flags{}
	if err := it.loadLeaf(it.seg.FirstLeaf); err != nil {
		it.fail(err)
		return err
	}
	return it.advanceToNextTerm()
}

// SeekInit positions the iterator at term (spec.md §4.4 seekInit): the
// %_idx table locates the containing leaf, then a linear forward scan
// within that leaf (and, if necessary, subsequent leaves) finds the
// exact match.
func (it *Iterator) SeekInit(term []byte, flags Flags) error {
	it.flags = flags
	if err := it.seekToFloor(term); err != nil {
		return err
	}
	if !it.Valid() || cmpBytes(it.term, term) != 0 {
		it.valid = false
		return nil
	}
	if flags.Reverse {
		return it.reverseInit()
	}
	return nil
}

// SeekPrefix positions the iterator at the first term >= prefix (unlike
// SeekInit, no exact match is required), for the prefix-scan path of
// spec.md §4.6's setupPrefixIter. Flags.OneTerm/Reverse make no sense
// for a multi-term prefix scan and are not accepted.
func (it *Iterator) SeekPrefix(prefix []byte) error {
	it.flags = Flags{}
	return it.seekToFloor(prefix)
}

// seekToFloor uses the %_idx helper table to jump near term, then walks
// forward term-by-term until reaching the first term >= term (or EOF).
func (it *Iterator) seekToFloor(term []byte) error {
	start := it.seg.FirstLeaf
	if it.idx != nil {
		pgno, _, _, found, err := it.idx.SeekFloor(it.seg.ID, term)
		if err != nil {
			it.fail(err)
			return err
		}
		if found && pgno >= it.seg.FirstLeaf {
			start = pgno
		}
	}
	if err := it.loadLeaf(start); err != nil {
		it.fail(err)
		return err
	}
	if err := it.advanceToNextTerm(); err != nil {
		return err
	}
	for it.Valid() && cmpBytes(it.term, term) < 0 {
		if err := it.NextTerm(); err != nil {
			return err
		}
	}
	return nil
}

// advanceToNextTerm reads the next term/doclist group from the current
// leaf, crossing into subsequent leaves as needed, and primes the
// doclist reader and first row of the new term.
func (it *Iterator) advanceToNextTerm() error {
	for {
		if it.tgr == nil {
			// Sitting on a continuation leaf with no term header of
			// its own and nothing queued: nothing more to read here.
			if err := it.loadLeaf(it.pgno + 1); err != nil {
				it.valid = false
				return nil // EOF: no next leaf
			}
			continue
		}
		term, dlStart, ok := it.tgr.Next()
		if !ok {
			if it.tgr.Err() != nil {
				it.fail(it.tgr.Err())
				return it.err
			}
			if err := it.loadLeaf(it.pgno + 1); err != nil {
				it.valid = false
				return nil
			}
			continue
		}
		it.term = term
		it.dl = doclist.NewReader(it.leaf.Payload[dlStart:])
		it.dlBase = dlStart
		if !it.nextRowFromDoclist() {
			// Empty doclist (shouldn't normally happen); move on.
			continue
		}
		it.valid = true
		return nil
	}
}

// nextEntry returns the doclist reader's next entry, transparently
// following the term's doclist onto a continuation leaf (spec.md §3)
// when the current leaf's tail runs out without ever reaching the
// terminator. ok is false only once the terminator has genuinely been
// consumed.
func (it *Iterator) nextEntry() (doclist.Entry, bool, error) {
	for {
		e, ok := it.dl.Next()
		if ok {
			return e, true, nil
		}
		if it.dl.Done() {
			return doclist.Entry{}, false, nil
		}
		if err := it.loadLeaf(it.pgno + 1); err != nil {
			return doclist.Entry{}, false, fmt.Errorf("segment: doclist continuation leaf: %w", err)
		}
		it.dl = doclist.NewContinuationReader(it.leaf.Payload, it.rowid)
		it.dlBase = 0
	}
}

// nextRowFromDoclist pulls the next entry out of the current doclist
// reader (crossing continuation leaves as needed) into the current row.
// It does not move the term-group reader; NextTerm does that.
func (it *Iterator) nextRowFromDoclist() bool {
	e, ok, err := it.nextEntry()
	if err != nil {
		it.fail(err)
		return false
	}
	if !ok {
		return false
	}
	it.rowid = e.Rowid
	it.pos = e.Positions
	it.del = e.Delete
	return true
}

// NextTerm advances to the next term in the segment (the "new term"
// half of spec.md's next(outNewTerm)), skipping any rows of the current
// term's doclist not yet read.
func (it *Iterator) NextTerm() error {
	for it.dl != nil && !it.dl.Done() && it.nextRowFromDoclist() {
	}
	if it.err != nil {
		return it.err
	}
	if it.tgr != nil {
		it.tgr.Advance(it.dl.Offset())
	}
	return it.advanceToNextTerm()
}

// Next advances by one row, either to the next rowid within the current
// term's doclist or, if that doclist is exhausted, to the first rowid of
// the next term (unless OneTerm is set, in which case it goes straight
// to EOF).
func (it *Iterator) Next() error {
	if !it.valid {
		return it.err
	}
	if it.flags.Reverse {
		return it.nextReverse()
	}
	if it.nextRowFromDoclist() {
		return nil
	}
	if it.err != nil {
		return it.err
	}
	if it.flags.OneTerm {
		it.valid = false
		return nil
	}
	return it.NextTerm()
}

// NextFrom skips ahead within the current term's doclist to the first
// rowid >= target, first consulting the term's dlidx (if it has one) to
// jump straight to the leaf most likely to hold target, then linearly
// scanning the rest (spec.md §3 "Doclist-index").
func (it *Iterator) NextFrom(target int64) error {
	if it.Valid() && it.rowid < target {
		if err := it.jumpViaDlidx(target); err != nil {
			return err
		}
	}
	for it.Valid() && it.rowid < target {
		if err := it.Next(); err != nil {
			return err
		}
	}
	return nil
}

// jumpViaDlidx repositions the iterator at the last leaf of the current
// term's dlidx whose first rowid is <= target, if the term has a dlidx
// and that leaf is further ahead than where the iterator already sits.
// It is a best-effort accelerator: any failure to find or read a dlidx
// just leaves the iterator where it was, for NextFrom's linear scan to
// handle.
func (it *Iterator) jumpViaDlidx(target int64) error {
	if it.idx == nil {
		return nil
	}
	_, dlidxPgno, hasDlidx, found, err := it.idx.SeekFloor(it.seg.ID, it.term)
	if err != nil {
		it.fail(err)
		return err
	}
	if !found || !hasDlidx {
		return nil
	}
	raw, err := it.fetcher.FetchPage(rowid.Compose(it.seg.ID, true, 0, dlidxPgno))
	if err != nil {
		return nil
	}
	dp, err := page.DecodeDlidxPage(raw)
	if err != nil || len(dp.Entries) == 0 {
		return nil
	}
	best := dp.Entries[0]
	for _, e := range dp.Entries {
		if e.Rowid > target {
			break
		}
		best = e
	}
	if best.Pgno <= it.pgno || best.Rowid <= it.rowid {
		return nil
	}
	if err := it.loadLeaf(best.Pgno); err != nil {
		it.fail(err)
		return err
	}
	delta, ok := doclist.FirstDelta(it.leaf.Payload)
	if !ok {
		it.fail(fmt.Errorf("segment: dlidx leaf %d: corrupt doclist continuation", best.Pgno))
		return it.err
	}
	it.dl = doclist.NewContinuationReader(it.leaf.Payload, best.Rowid-delta)
	it.dlBase = 0
	if !it.nextRowFromDoclist() {
		if it.err != nil {
			return it.err
		}
		it.valid = false
	}
	return nil
}

// reverseInit implements spec.md's reverseInit: scan forward across the
// current term's doclist once, recording every row, then replay
// backward.
func (it *Iterator) reverseInit() error {
	var rows []reverseEntry
	for it.Valid() {
		rows = append(rows, reverseEntry{rowid: it.rowid, pos: it.pos, del: it.del})
		e, ok, err := it.nextEntry()
		if err != nil {
			it.fail(err)
			return err
		}
		if !ok {
			break
		}
		it.rowid, it.pos, it.del = e.Rowid, e.Positions, e.Delete
	}
	it.revEntries = rows
	it.revIdx = len(rows) - 1
	if it.revIdx < 0 {
		it.valid = false
		return nil
	}
	it.applyReverseCursor()
	return nil
}

func (it *Iterator) applyReverseCursor() {
	e := it.revEntries[it.revIdx]
	it.rowid, it.pos, it.del = e.rowid, e.pos, e.del
	it.valid = true
}

// nextReverse steps the reverse cursor backward; Next dispatches here
// automatically when Flags.Reverse is set.
func (it *Iterator) nextReverse() error {
	it.revIdx--
	if it.revIdx < 0 {
		it.valid = false
		return nil
	}
	it.applyReverseCursor()
	return nil
}

func cmpBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
