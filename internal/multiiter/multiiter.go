// Package multiiter implements the multi-way merge over the pending
// hash and every on-disk segment of an index (spec.md §4.5): the single
// place phrase evaluation, integrity checks, full scans and the merger
// all go to see "what does this index currently say about term T".
package multiiter

import (
	"bytes"

	"github.com/tursodatabase/go-fts5/internal/poslist"
)

// SubIterator is anything multiiter can merge: internal/segment.Iterator
// satisfies it structurally, as does PendingSub.
type SubIterator interface {
	Valid() bool
	Term() []byte
	Rowid() int64
	Positions() []poslist.Position
	Deleted() bool
	Next() error
}

// Multi merges nSeg sub-iterators into one ascending- or
// descending-rowid stream of (term, rowid, positions, deleted), folding
// away duplicate (term, rowid) pairs that appear in more than one
// source.
//
// subs must be supplied newest-first (index 0 = the pending hash, then
// segments ordered from most to least recently flushed/merged): when
// two or more sources agree on (term, rowid), the lowest-indexed one is
// authoritative and the others are silently discarded, since a lower
// index always reflects a strictly newer write than a higher one.
// spec.md §4.5 describes this the other way around ("the
// younger-segment one... is advanced and its delete-flag folded into
// the surviving entry") because its segment indices run oldest-first;
// expressed in recency order the rule is simply "newest wins", which is
// what every query actually needs.
type Multi struct {
	subs      []SubIterator
	reverse   bool
	skipEmpty bool

	winner SubIterator
	term   []byte
	rowid  int64
	pos    []poslist.Position
	del    bool
	valid  bool
	err    error
}

// New builds a merged iterator. reverse walks rowids within a term in
// descending order (term order itself is always ascending — spec.md
// §4.5). skipEmpty causes rows whose surviving entry is a tombstone to
// be silently skipped, appropriate for query-time scans; the merger
// passes skipEmpty=false so it can propagate tombstones through
// non-bottom levels.
func New(subs []SubIterator, reverse, skipEmpty bool) (*Multi, error) {
	m := &Multi{subs: subs, reverse: reverse, skipEmpty: skipEmpty}
	if err := m.resolve(); err != nil {
		return nil, err
	}
	return m, nil
}

// Valid reports whether the iterator currently names a row.
func (m *Multi) Valid() bool { return m.valid && m.err == nil }

// Term returns the current term.
func (m *Multi) Term() []byte { return m.term }

// Rowid returns the current row id.
func (m *Multi) Rowid() int64 { return m.rowid }

// Positions returns the current row's position list.
func (m *Multi) Positions() []poslist.Position { return m.pos }

// Deleted reports whether the current row is a tombstone.
func (m *Multi) Deleted() bool { return m.del }

// Err returns the first error encountered, if any.
func (m *Multi) Err() error { return m.err }

// Next advances past the current row.
func (m *Multi) Next() error {
	if !m.valid {
		return m.err
	}
	if err := m.winner.Next(); err != nil {
		m.err = err
		m.valid = false
		return err
	}
	return m.resolve()
}

// resolve selects the next winning row across all live sub-iterators,
// discarding duplicates and, if skipEmpty is set, tombstones.
func (m *Multi) resolve() error {
	for {
		winner := m.pickWinner()
		if winner == nil {
			m.valid = false
			return nil
		}
		term, rowid := winner.Term(), winner.Rowid()
		for _, s := range m.subs {
			if s == winner || !s.Valid() {
				continue
			}
			if bytes.Equal(s.Term(), term) && s.Rowid() == rowid {
				if err := s.Next(); err != nil {
					m.err = err
					m.valid = false
					return err
				}
			}
		}

		m.winner = winner
		m.term = term
		m.rowid = rowid
		m.pos = winner.Positions()
		m.del = winner.Deleted()

		if m.skipEmpty && m.del {
			if err := winner.Next(); err != nil {
				m.err = err
				m.valid = false
				return err
			}
			continue
		}
		m.valid = true
		return nil
	}
}

// pickWinner finds the lowest-indexed sub-iterator at the minimal term
// (and, among ties on term, the minimal — or maximal, if reverse —
// rowid); nil if every sub-iterator is exhausted.
func (m *Multi) pickWinner() SubIterator {
	var best SubIterator
	for _, s := range m.subs {
		if !s.Valid() {
			continue
		}
		if best == nil {
			best = s
			continue
		}
		c := bytes.Compare(s.Term(), best.Term())
		switch {
		case c < 0:
			best = s
		case c == 0:
			if m.reverse {
				if s.Rowid() > best.Rowid() {
					best = s
				}
			} else if s.Rowid() < best.Rowid() {
				best = s
			}
		}
	}
	return best
}
