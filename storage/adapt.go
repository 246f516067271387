package storage

import (
	"github.com/tursodatabase/go-fts5/internal/segment"
	"github.com/tursodatabase/go-fts5/internal/writer"
)

// PageFetcher adapts a DataTable to internal/segment's PageFetcher.
func PageFetcher(t DataTable) segment.PageFetcher { return pageFetcher{t} }

type pageFetcher struct{ t DataTable }

func (p pageFetcher) FetchPage(r int64) ([]byte, error) { return p.t.Get(r) }

// PageSink adapts a DataTable to internal/writer's PageSink.
func PageSink(t DataTable) writer.PageSink { return pageSink{t} }

type pageSink struct{ t DataTable }

func (p pageSink) WritePage(r int64, data []byte) error { return p.t.Put(r, data) }

// IndexLookup adapts an IdxTable to internal/segment's IndexLookup. A
// dlidx page shares its pgno with the leaf it accelerates (distinguished
// only by the dlidx bit in internal/rowid's encoding), so e.Pgno doubles
// as dlidxPgno whenever e.Dlidx is set. IdxTable already satisfies
// internal/writer's IdxSink directly (identical Put signature), so no
// adapter is needed on the write side.
func IndexLookup(t IdxTable) segment.IndexLookup { return indexLookup{t} }

type indexLookup struct{ t IdxTable }

func (l indexLookup) SeekFloor(segid uint16, term []byte) (pgno uint32, dlidxPgno uint32, hasDlidx bool, found bool, err error) {
	e, ok, err := l.t.SeekFloor(segid, term)
	if err != nil || !ok {
		return 0, 0, false, false, err
	}
	if e.Dlidx {
		return e.Pgno, e.Pgno, true, true, nil
	}
	return e.Pgno, 0, false, true, nil
}
