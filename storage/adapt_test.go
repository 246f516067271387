package storage_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/internal/segment"
	"github.com/tursodatabase/go-fts5/internal/structure"
	"github.com/tursodatabase/go-fts5/internal/writer"
	"github.com/tursodatabase/go-fts5/storage"
	"github.com/tursodatabase/go-fts5/storage/bolt"
)

func TestAdaptersWireWriterAndSegmentToBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	store, err := bolt.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	sink := storage.PageSink(store.Data())
	w := writer.New(sink, store.Idx(), 1, 4096)
	rows := []struct {
		term   string
		rowids []int64
	}{
		{"alpha", []int64{1, 2}},
		{"beta", []int64{3}},
		{"gamma", []int64{4, 5}},
	}
	for _, r := range rows {
		var entries []doclist.Entry
		for _, rid := range r.rowids {
			entries = append(entries, doclist.Entry{Rowid: rid, Positions: []poslist.Position{poslist.Pack(0, 0)}})
		}
		if err := w.WriteTerm([]byte(r.term), doclist.Build(entries)); err != nil {
			t.Fatalf("writeterm %q: %v", r.term, err)
		}
	}
	seg, err := w.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	fetcher := storage.PageFetcher(store.Data())
	lookup := storage.IndexLookup(store.Idx())

	it := segment.New(fetcher, lookup, structure.Segment{
		ID: seg.ID, FirstLeaf: seg.FirstLeaf, LastLeaf: seg.LastLeaf, Height: seg.Height,
	})
	if err := it.SeekInit([]byte("beta"), segment.Flags{OneTerm: true}); err != nil {
		t.Fatalf("seekinit: %v", err)
	}
	var got []string
	for it.Valid() {
		got = append(got, fmt.Sprintf("%s:%d", it.Term(), it.Rowid()))
		if err := it.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	want := []string{"beta:3"}
	if len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("got %v want %v", got, want)
	}
}
