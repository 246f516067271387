package fts5

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/structure"
	"github.com/tursodatabase/go-fts5/internal/varint"
	"github.com/tursodatabase/go-fts5/internal/writer"
)

// pendingOp is one buffered mutation against the pending hash, recorded
// so a Rollback/RollbackTo can rebuild the hash's contents without the
// hash itself supporting snapshot/undo (see txn.go).
type pendingOp struct {
	del      bool
	rowid    int64
	col, pos uint32
	term     []byte
}

// Insert tokenizes cols (one entry per configured column, in column
// order) and adds rowid's postings to the pending hash, writing the
// row's docsize and, unless the index is in external-content mode, its
// original text to the content table (spec.md §6's `update` with a new
// row only).
func (idx *Index) Insert(rowid int64, cols []string) error {
	if len(cols) != len(idx.cfg.Columns) {
		return fmt.Errorf("fts5: %w: insert supplied %d columns, index has %d", ErrError, len(cols), len(idx.cfg.Columns))
	}
	if idx.hasLast && rowid <= idx.lastRow && idx.pending.Len() > 0 {
		// A non-monotone rowid forces a flush first (spec.md §3): the
		// pending hash requires non-decreasing rowids within a term.
		if err := idx.flush(); err != nil {
			return err
		}
	}

	colTokens := make([]int64, len(cols))
	for col, text := range cols {
		toks, err := idx.cfg.Tokenizer.Tokenize(text)
		if err != nil {
			return fmt.Errorf("fts5: tokenize column %d: %w", col, err)
		}
		colTokens[col] = int64(len(toks))
		for _, tok := range toks {
			idx.writeTerm(rowid, uint32(col), tok.Pos, []byte(tok.Term))
		}
	}
	idx.averages.AddRow(colTokens)
	idx.lastRow, idx.hasLast = rowid, true

	if err := idx.store.Docsize().Put(rowid, encodeDocsize(colTokens)); err != nil {
		return fmt.Errorf("fts5: put docsize: %w", err)
	}
	if ct, ok := idx.store.Content(); ok {
		if err := ct.Put(rowid, cols); err != nil {
			return fmt.Errorf("fts5: put content: %w", err)
		}
	}

	return idx.maybeFlush()
}

// Delete removes rowid's postings for the terms in cols (the row's
// original column text, the same values it was inserted with — in
// external-content mode the host supplies these; otherwise DeleteRow
// looks them up from the content table).
func (idx *Index) Delete(rowid int64, cols []string) error {
	if len(cols) != len(idx.cfg.Columns) {
		return fmt.Errorf("fts5: %w: delete supplied %d columns, index has %d", ErrError, len(cols), len(idx.cfg.Columns))
	}
	colTokens := make([]int64, len(cols))
	seen := make(map[string]bool)
	for col, text := range cols {
		toks, err := idx.cfg.Tokenizer.Tokenize(text)
		if err != nil {
			return fmt.Errorf("fts5: tokenize column %d: %w", col, err)
		}
		colTokens[col] = int64(len(toks))
		for _, tok := range toks {
			if seen[tok.Term] {
				continue
			}
			seen[tok.Term] = true
			idx.deleteTerm(rowid, []byte(tok.Term))
		}
	}
	idx.averages.RemoveRow(colTokens)

	if err := idx.store.Docsize().Delete(rowid); err != nil {
		return fmt.Errorf("fts5: delete docsize: %w", err)
	}
	if ct, ok := idx.store.Content(); ok {
		if err := ct.Delete(rowid); err != nil {
			return fmt.Errorf("fts5: delete content: %w", err)
		}
	}
	return idx.maybeFlush()
}

// DeleteRow deletes rowid using its own content-table row as the source
// of the terms to remove. Only valid when the index is not running in
// external-content mode.
func (idx *Index) DeleteRow(rowid int64) error {
	ct, ok := idx.store.Content()
	if !ok {
		return fmt.Errorf("fts5: %w: DeleteRow requires an internal content table", ErrError)
	}
	cols, err := ct.Get(rowid)
	if err != nil {
		return fmt.Errorf("fts5: get content for delete: %w", err)
	}
	return idx.Delete(rowid, cols)
}

// Update replaces rowid's row, exactly the delete-then-reinsert sequence
// the reference implementation performs for an UPDATE (spec.md §6's
// `update(old, new, ...)`).
func (idx *Index) Update(rowid int64, oldCols, newCols []string) error {
	if err := idx.Delete(rowid, oldCols); err != nil {
		return err
	}
	return idx.Insert(rowid, newCols)
}

func (idx *Index) writeTerm(rowid int64, col, pos uint32, term []byte) {
	idx.pending.Write(rowid, col, pos, term)
	idx.oplog = append(idx.oplog, pendingOp{rowid: rowid, col: col, pos: pos, term: term})
}

func (idx *Index) deleteTerm(rowid int64, term []byte) {
	idx.pending.Delete(rowid, term)
	idx.oplog = append(idx.oplog, pendingOp{del: true, rowid: rowid, term: term})
}

// maybeFlush flushes the pending hash once it exceeds pendingFlushBytes.
func (idx *Index) maybeFlush() error {
	if idx.pending.ByteSize() < pendingFlushBytes {
		return nil
	}
	return idx.flush()
}

// flush serializes the pending hash as a new level-0 segment (spec.md
// §4.7/§4.8), applies automerge and crisis-merge, persists the updated
// structure and averages records, and clears the pending hash. It is a
// no-op if nothing is pending.
func (idx *Index) flush() error {
	if idx.pending.Len() == 0 {
		return nil
	}
	segid, err := writer.AllocSegID(idx.structure)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFull, err)
	}
	wtr := writer.New(idx.sink, idx.idxSink, segid, idx.cfg.PageSize)
	it := idx.pending.NewIterator()
	for it.Valid() {
		if err := wtr.WriteTerm([]byte(it.Term()), it.Doclist()); err != nil {
			return fmt.Errorf("fts5: flush: %w", err)
		}
		it.Next()
	}
	seg, err := wtr.Finish()
	if err != nil {
		return fmt.Errorf("fts5: flush: %w", err)
	}

	if len(idx.structure.Levels) == 0 {
		idx.structure.Levels = append(idx.structure.Levels, structure.Level{})
	}
	idx.structure.Levels[0].Segments = append(idx.structure.Levels[0].Segments, seg)

	nLeaf := segmentLeaves(seg)
	before := idx.structure.WriteCounter
	idx.structure.WriteCounter += nLeaf
	if quanta := writer.AutomergeQuanta(before, nLeaf, idx.cfg.Automerge); quanta > 0 {
		if err := idx.merger.RunAutomerge(idx.structure, quanta); err != nil {
			return fmt.Errorf("fts5: automerge: %w", err)
		}
	}
	if err := idx.merger.CrisisMerge(idx.structure, idx.cfg.CrisisMerge); err != nil {
		return fmt.Errorf("fts5: crisis merge: %w", err)
	}

	idx.pending.Clear()
	idx.oplog = idx.oplog[:0]
	idx.flushGen++

	if err := idx.persist(); err != nil {
		return err
	}
	idx.log.Info("fts5: flushed pending hash", "segment", segid, "leaves", nLeaf)
	return nil
}

// segmentLeaves counts the leaf pages a freshly written segment spans,
// the same FirstLeaf/LastLeaf arithmetic the merger uses to size a
// segment (internal/writer.segSize).
func segmentLeaves(seg structure.Segment) uint64 {
	if seg.LastLeaf < seg.FirstLeaf {
		return 1
	}
	return uint64(seg.LastLeaf - seg.FirstLeaf + 1)
}

// encodeDocsize serializes a row's per-column token counts as the
// `_docsize` shadow table's `sz` blob (spec.md §6: "a sequence of
// varint(tokenCount), one per column").
func encodeDocsize(colTokens []int64) []byte {
	var dst []byte
	for _, n := range colTokens {
		dst, _ = varint.Write(dst, uint64(n))
	}
	return dst
}

// decodeDocsize parses a docsize blob for a table with nCol columns.
func decodeDocsize(data []byte, nCol int) ([]int64, error) {
	out := make([]int64, nCol)
	off := 0
	for i := 0; i < nCol; i++ {
		if off >= len(data) {
			return nil, fmt.Errorf("%w: docsize record truncated at column %d", ErrCorrupt, i)
		}
		v, n := varint.Read(data[off:])
		if n == 0 {
			return nil, fmt.Errorf("%w: corrupt docsize varint at column %d", ErrCorrupt, i)
		}
		out[i] = int64(v)
		off += n
	}
	return out, nil
}
