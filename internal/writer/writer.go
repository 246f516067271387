// Package writer implements the segment writer and the leveled merger
// (spec.md §4.7, §4.8): building new immutable segments from sorted
// (term, doclist) input, and folding existing segments together as the
// index grows.
package writer

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/page"
	"github.com/tursodatabase/go-fts5/internal/rowid"
	"github.com/tursodatabase/go-fts5/internal/structure"
)

// PageSink persists one page of the `_data` shadow table.
type PageSink interface {
	WritePage(r int64, data []byte) error
}

// IdxSink records one row of the `%_idx` helper table: the first term of
// a leaf, its page number, and whether that leaf has a companion dlidx.
type IdxSink interface {
	Put(segid uint16, term []byte, pgno uint32, dlidx bool) error
}

// Writer builds one new immutable segment, one leaf at a time.
//
// A term whose doclist alone overflows a fresh page is split across as
// many continuation leaves as it takes (FirstTermOffset 0: no term
// header, the payload opens directly with more of the same doclist),
// with a companion dlidx page recording each leaf's first rowid so a
// later seek can jump straight to the leaf holding a target rowid
// instead of scanning every one in between (spec.md §3
// "Doclist-index"). Simplification (see DESIGN.md): the segment
// directory stays a single interior node regardless of leaf count
// (spec.md's deeper B-tree levels are not built), and a dlidx itself is
// never split across further dlidx pages even if the chain of
// continuation leaves it indexes is very long — both are size
// bookkeeping refinements on top of an otherwise complete structure,
// not the core split/seek-acceleration behavior itself.
type Writer struct {
	sink    PageSink
	idx     IdxSink
	segid   uint16
	pageSize int

	groups    []page.TermGroup
	leafBytes int

	pgno      uint32
	firstLeaf uint32
	lastLeaf  uint32
	nLeaf     uint32

	parentLeftmost uint32
	haveLeftmost   bool
	parent         []page.InteriorEntry

	err error
}

// New constructs a writer for a fresh segment with the given id.
func New(sink PageSink, idx IdxSink, segid uint16, pageSize int) *Writer {
	return &Writer{sink: sink, idx: idx, segid: segid, pageSize: pageSize}
}

// estimateSize is a conservative (uncompressed) estimate of how many
// bytes a term/doclist group would add to the current leaf.
func estimateSize(term, dlBytes []byte) int {
	return 9 + len(term) + len(dlBytes)
}

// WriteTerm appends one term's doclist bytes to the segment. Terms must
// be supplied in ascending order.
func (w *Writer) WriteTerm(term, dlBytes []byte) error {
	if w.err != nil {
		return w.err
	}
	size := estimateSize(term, dlBytes)
	if len(w.groups) > 0 && w.leafBytes+size > w.pageSize {
		if err := w.flushLeaf(); err != nil {
			return err
		}
	}
	if size > w.pageSize {
		return w.writeSplitTerm(term, dlBytes)
	}
	w.groups = append(w.groups, page.TermGroup{
		Term:    append([]byte(nil), term...),
		Doclist: dlBytes,
	})
	w.leafBytes += size
	return nil
}

// dlChunk is one entry-aligned slice of a doclist being split across
// continuation leaves, and the absolute rowid of its first entry.
type dlChunk struct {
	data       []byte
	firstRowid int64
}

// splitDoclist partitions a fully terminated doclist into consecutive
// entry-aligned chunks of at most budget bytes each. An individual
// entry is never split (its poslist is atomic), so a single
// oversized entry still gets a chunk to itself. Only the last chunk
// keeps the doclist's 0x00 terminator; the others end without one, which
// is what tells a reader to continue on the next leaf.
func splitDoclist(dlBytes []byte, budget int) []dlChunk {
	if budget < 1 {
		budget = 1
	}
	var chunks []dlChunk
	r := doclist.NewReader(dlBytes)
	chunkStart := 0
	haveFirst := false
	var firstRowid int64
	for {
		off := r.Offset()
		e, ok := r.Next()
		if !ok {
			break
		}
		end := r.Offset()
		switch {
		case !haveFirst:
			chunkStart = off
			firstRowid = e.Rowid
			haveFirst = true
		case end-chunkStart > budget:
			chunks = append(chunks, dlChunk{data: dlBytes[chunkStart:off], firstRowid: firstRowid})
			chunkStart = off
			firstRowid = e.Rowid
		}
	}
	if haveFirst {
		chunks = append(chunks, dlChunk{data: dlBytes[chunkStart:], firstRowid: firstRowid})
	}
	return chunks
}

// writeSplitTerm writes a term whose doclist alone would overflow a
// fresh page across as many leaves as it takes: the first carries the
// term header as usual, every following leaf is a pure continuation
// (FirstTermOffset 0, payload opening directly with more doclist
// bytes). When the doclist spans more than one leaf this way, a
// companion dlidx page is written recording each leaf's first rowid
// (spec.md §3 "Doclist-index").
func (w *Writer) writeSplitTerm(term, dlBytes []byte) error {
	budget := w.pageSize - estimateSize(term, nil)
	chunks := splitDoclist(dlBytes, budget)
	if len(chunks) == 0 {
		return nil
	}
	termCopy := append([]byte(nil), term...)

	dlidxEntries := make([]page.DlidxEntry, 0, len(chunks))
	for i, c := range chunks {
		var leaf *page.Leaf
		if i == 0 {
			payload, firstTermOff := page.BuildLeafPayload([]page.TermGroup{{Term: termCopy, Doclist: c.data}})
			leaf = &page.Leaf{FirstTermOffset: firstTermOff, Payload: payload}
		} else {
			leaf = &page.Leaf{Payload: c.data}
		}

		w.pgno++
		if w.nLeaf == 0 {
			w.firstLeaf = w.pgno
		}
		w.lastLeaf = w.pgno
		w.nLeaf++

		r := rowid.Compose(w.segid, false, 0, w.pgno)
		if err := w.sink.WritePage(r, leaf.Encode()); err != nil {
			w.err = fmt.Errorf("writer: write leaf %d: %w", w.pgno, err)
			return w.err
		}
		dlidxEntries = append(dlidxEntries, page.DlidxEntry{Pgno: w.pgno, Rowid: c.firstRowid})

		if i == 0 {
			if !w.haveLeftmost {
				w.parentLeftmost = w.pgno
				w.haveLeftmost = true
			} else {
				w.parent = append(w.parent, page.InteriorEntry{Term: termCopy})
			}
		}
	}

	hasDlidx := len(dlidxEntries) > 1
	if hasDlidx {
		dp := &page.DlidxPage{Entries: dlidxEntries}
		r := rowid.Compose(w.segid, true, 0, dlidxEntries[0].Pgno)
		if err := w.sink.WritePage(r, dp.Encode()); err != nil {
			w.err = fmt.Errorf("writer: write dlidx for leaf %d: %w", dlidxEntries[0].Pgno, err)
			return w.err
		}
	}

	if err := w.idx.Put(w.segid, termCopy, dlidxEntries[0].Pgno, hasDlidx); err != nil {
		w.err = fmt.Errorf("writer: index leaf %d: %w", dlidxEntries[0].Pgno, err)
		return w.err
	}
	return nil
}

// flushLeaf writes the buffered groups as one leaf page.
func (w *Writer) flushLeaf() error {
	if len(w.groups) == 0 {
		return nil
	}
	payload, firstTermOff := page.BuildLeafPayload(w.groups)
	leaf := &page.Leaf{FirstTermOffset: firstTermOff, Payload: payload}

	w.pgno++
	if w.nLeaf == 0 {
		w.firstLeaf = w.pgno
	}
	w.lastLeaf = w.pgno
	w.nLeaf++

	r := rowid.Compose(w.segid, false, 0, w.pgno)
	if err := w.sink.WritePage(r, leaf.Encode()); err != nil {
		w.err = fmt.Errorf("writer: write leaf %d: %w", w.pgno, err)
		return w.err
	}

	firstTerm := w.groups[0].Term
	if err := w.idx.Put(w.segid, firstTerm, w.pgno, false); err != nil {
		w.err = fmt.Errorf("writer: index leaf %d: %w", w.pgno, err)
		return w.err
	}

	if !w.haveLeftmost {
		w.parentLeftmost = w.pgno
		w.haveLeftmost = true
	} else {
		w.parent = append(w.parent, page.InteriorEntry{Term: firstTerm})
	}

	w.groups = w.groups[:0]
	w.leafBytes = 0
	return nil
}

// Finish flushes any buffered leaf, writes the interior B-tree node if
// more than one leaf was produced, and returns the completed segment's
// metadata for insertion into the structure record.
func (w *Writer) Finish() (structure.Segment, error) {
	if w.err != nil {
		return structure.Segment{}, w.err
	}
	if err := w.flushLeaf(); err != nil {
		return structure.Segment{}, err
	}
	if w.nLeaf == 0 {
		return structure.Segment{}, fmt.Errorf("writer: segment has no leaves")
	}

	height := uint32(0)
	if w.nLeaf > 1 {
		node := &page.InteriorNode{LeftmostChild: w.parentLeftmost, Entries: w.parent}
		r := rowid.Compose(w.segid, false, 1, 1)
		if err := w.sink.WritePage(r, node.Encode()); err != nil {
			return structure.Segment{}, fmt.Errorf("writer: write interior node: %w", err)
		}
		height = 1
	}

	return structure.Segment{
		ID:        w.segid,
		FirstLeaf: w.firstLeaf,
		LastLeaf:  w.lastLeaf,
		Height:    height,
	}, nil
}
