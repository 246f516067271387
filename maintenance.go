package fts5

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/segment"
)

// IntegrityCheck walks every segment named by the structure record from
// its first leaf to its last, decoding every page and every term group
// along the way (spec.md §6's integrity-check operation): a page that
// fails to decode, a term out of order, or a structure-record invariant
// violation is reported as ErrCorrupt. A nil return means the persisted
// index is internally consistent.
func (idx *Index) IntegrityCheck() error {
	if err := idx.structure.Validate(); err != nil {
		return fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
	}

	for _, l := range idx.structure.Levels {
		for _, seg := range l.Segments {
			it := segment.New(idx.fetcher, idx.idxLookup, seg)
			if err := it.Init(); err != nil {
				return fmt.Errorf("fts5: %w: segment %d: %v", ErrCorrupt, seg.ID, err)
			}
			var prevTerm []byte
			for it.Valid() {
				if prevTerm != nil && string(it.Term()) < string(prevTerm) {
					return fmt.Errorf("fts5: %w: segment %d: terms out of order", ErrCorrupt, seg.ID)
				}
				prevTerm = append(prevTerm[:0], it.Term()...)
				if err := it.Next(); err != nil {
					return fmt.Errorf("fts5: %w: segment %d: %v", ErrCorrupt, seg.ID, err)
				}
			}
			if err := it.Err(); err != nil {
				return fmt.Errorf("fts5: %w: segment %d: %v", ErrCorrupt, seg.ID, err)
			}
		}
	}
	return nil
}

// Optimize merges every segment in the index into one, the maintenance
// operation spec.md §6 exposes for an `INSERT INTO t(t) VALUES('optimize')`
// equivalent.
func (idx *Index) Optimize() error {
	if err := idx.merger.Optimize(idx.structure); err != nil {
		return fmt.Errorf("fts5: optimize: %w", err)
	}
	return idx.persist()
}
