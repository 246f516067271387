package fts5

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/structure"
)

// txFrame snapshots enough state to undo every write applied since it
// was taken: a deep copy of the structure and averages records (so a
// merge or flush can be undone) plus a marker into the oplog (so the
// pending hash's contents as of the snapshot can be rebuilt by replay).
//
// Simplification (see DESIGN.md): once flush has physically written a
// segment's pages and index rows to the Store, that write is not
// undone by Rollback/RollbackTo — only the pending hash and the
// structure/averages bookkeeping are restored. flushGen marks the
// boundary; a rollback that would cross a completed flush returns
// ErrError instead of silently leaving stale pages behind. Real FTS5
// savepoints are page-level and can undo a flush; reproducing that here
// would require tracking every page written since the savepoint, which
// this module's Store abstraction does not expose.
type txFrame struct {
	n        int
	flushGen int
	oplogLen int
	structure *structure.Structure
	averages  *structure.Averages
}

func cloneStructure(s *structure.Structure) *structure.Structure {
	out := &structure.Structure{Cookie: s.Cookie, WriteCounter: s.WriteCounter}
	out.Levels = make([]structure.Level, len(s.Levels))
	for i, l := range s.Levels {
		out.Levels[i].NMerge = l.NMerge
		out.Levels[i].Segments = append([]structure.Segment(nil), l.Segments...)
	}
	return out
}

func cloneAverages(a *structure.Averages) *structure.Averages {
	return &structure.Averages{
		TotalRowCount: a.TotalRowCount,
		ColumnTokens:  append([]int64(nil), a.ColumnTokens...),
	}
}

func (idx *Index) snapshot(n int) txFrame {
	return txFrame{
		n:         n,
		flushGen:  idx.flushGen,
		oplogLen:  len(idx.oplog),
		structure: cloneStructure(idx.structure),
		averages:  cloneAverages(idx.averages),
	}
}

// Begin opens a new transaction (spec.md §6's xBegin), pushing a
// snapshot callers later Commit or Rollback.
func (idx *Index) Begin() error {
	idx.txStack = append(idx.txStack, idx.snapshot(len(idx.txStack)))
	return nil
}

// Commit discards the innermost transaction's snapshot, keeping every
// write applied since Begin. Committing the outermost transaction also
// flushes the pending hash (spec.md §6's xCommit/xSync pair collapsed
// into one call — this module has no separate two-phase commit since
// there is exactly one Store).
func (idx *Index) Commit() error {
	if len(idx.txStack) == 0 {
		return fmt.Errorf("fts5: %w: commit with no matching begin", ErrError)
	}
	idx.txStack = idx.txStack[:len(idx.txStack)-1]
	if len(idx.txStack) == 0 {
		return idx.flush()
	}
	return nil
}

// Rollback undoes every write since the innermost Begin (spec.md §6's
// xRollback).
func (idx *Index) Rollback() error {
	if len(idx.txStack) == 0 {
		return fmt.Errorf("fts5: %w: rollback with no matching begin", ErrError)
	}
	frame := idx.txStack[len(idx.txStack)-1]
	idx.txStack = idx.txStack[:len(idx.txStack)-1]
	return idx.restore(frame)
}

// Savepoint opens savepoint n (spec.md §6's xSavepoint), nesting inside
// any currently open transaction.
func (idx *Index) Savepoint(n int) error {
	idx.txStack = append(idx.txStack, idx.snapshot(n))
	return nil
}

// Release closes savepoint n and every savepoint nested inside it,
// keeping their writes (spec.md §6's xRelease).
func (idx *Index) Release(n int) error {
	i := idx.findSavepoint(n)
	if i < 0 {
		return fmt.Errorf("fts5: %w: release of unknown savepoint %d", ErrError, n)
	}
	idx.txStack = idx.txStack[:i]
	return nil
}

// RollbackTo undoes every write applied since savepoint n was opened,
// keeping the savepoint itself open (spec.md §6's xRollbackTo).
func (idx *Index) RollbackTo(n int) error {
	i := idx.findSavepoint(n)
	if i < 0 {
		return fmt.Errorf("fts5: %w: rollback to unknown savepoint %d", ErrError, n)
	}
	frame := idx.txStack[i]
	if err := idx.restore(frame); err != nil {
		return err
	}
	idx.txStack = idx.txStack[:i+1]
	return nil
}

// Sync flushes any buffered postings to durable storage (spec.md §6's
// xSync), the point beyond which Rollback/RollbackTo can no longer
// undo the flush itself.
func (idx *Index) Sync() error {
	return idx.flush()
}

func (idx *Index) findSavepoint(n int) int {
	for i := len(idx.txStack) - 1; i >= 0; i-- {
		if idx.txStack[i].n == n {
			return i
		}
	}
	return -1
}

// restore rolls the index's structure, averages and pending hash back
// to frame, refusing if a flush has happened since (see the
// Simplification note on txFrame).
func (idx *Index) restore(frame txFrame) error {
	if frame.flushGen != idx.flushGen {
		return fmt.Errorf("fts5: %w: cannot roll back across a completed flush", ErrError)
	}
	idx.structure = frame.structure
	idx.averages = frame.averages
	idx.rebuildPendingFromOplog(frame.oplogLen)
	return nil
}

// rebuildPendingFromOplog clears the pending hash and replays
// oplog[:n], the only way to undo writes against a hash with no native
// snapshot/undo support (internal/pending.Hash).
func (idx *Index) rebuildPendingFromOplog(n int) {
	ops := append([]pendingOp(nil), idx.oplog[:n]...)
	idx.pending.Clear()
	for _, op := range ops {
		if op.del {
			idx.pending.Delete(op.rowid, op.term)
		} else {
			idx.pending.Write(op.rowid, op.col, op.pos, op.term)
		}
	}
	idx.oplog = ops
}
