package multiiter

import (
	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/pending"
	"github.com/tursodatabase/go-fts5/internal/poslist"
)

// PendingSub adapts the pending hash's term-at-a-time iterator into a
// row-at-a-time SubIterator, letting the pending hash participate in a
// Multi merge as if it were just another segment (spec.md §9: "the hash
// appears as a synthetic segment so that merging is uniform").
type PendingSub struct {
	it    *pending.Iterator
	dl    *doclist.Reader
	term  []byte
	rowid int64
	pos   []poslist.Position
	del   bool
	valid bool
}

// NewPendingSub wraps h's term iterator (in sorted term order, per
// pending.Hash.NewIterator) for use in a Multi merge.
func NewPendingSub(h *pending.Hash) *PendingSub {
	s := &PendingSub{it: h.NewIterator()}
	s.loadTerm()
	return s
}

// NewPendingSubSeek wraps h's term iterator positioned at the first term
// >= term, for participating in a seeked (term or prefix) query.
func NewPendingSubSeek(h *pending.Hash, term []byte) *PendingSub {
	it := h.NewIterator()
	it.SeekTerm(string(term))
	s := &PendingSub{it: it}
	s.loadTerm()
	return s
}

// loadTerm advances to the next non-empty term's first row, skipping
// over any term whose doclist is (degenerately) empty.
func (s *PendingSub) loadTerm() {
	for s.it.Valid() {
		s.term = []byte(s.it.Term())
		s.dl = doclist.NewReader(s.it.Doclist())
		if s.advanceRow() {
			return
		}
		s.it.Next()
	}
	s.valid = false
}

func (s *PendingSub) advanceRow() bool {
	e, ok := s.dl.Next()
	if !ok {
		return false
	}
	s.rowid, s.pos, s.del = e.Rowid, e.Positions, e.Delete
	s.valid = true
	return true
}

func (s *PendingSub) Valid() bool                    { return s.valid }
func (s *PendingSub) Term() []byte                   { return s.term }
func (s *PendingSub) Rowid() int64                   { return s.rowid }
func (s *PendingSub) Positions() []poslist.Position  { return s.pos }
func (s *PendingSub) Deleted() bool                  { return s.del }

// Next advances to the next row of the current term, or the first row
// of the next term once the current one is exhausted.
func (s *PendingSub) Next() error {
	if s.advanceRow() {
		return nil
	}
	s.it.Next()
	s.loadTerm()
	return nil
}
