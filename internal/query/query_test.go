package query_test

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/pending"
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/internal/query"
	"github.com/tursodatabase/go-fts5/internal/structure"
	"github.com/tursodatabase/go-fts5/internal/writer"
	"github.com/tursodatabase/go-fts5/storage"
	"github.com/tursodatabase/go-fts5/storage/bolt"
)

func openStore(t *testing.T) storage.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := bolt.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeSeg(t *testing.T, store storage.Store, segid uint16, terms map[string][]int64) structure.Segment {
	t.Helper()
	w := writer.New(storage.PageSink(store.Data()), store.Idx(), segid, 4096)
	keys := make([]string, 0, len(terms))
	for k := range terms {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	for _, term := range keys {
		var entries []doclist.Entry
		for _, rid := range terms[term] {
			entries = append(entries, doclist.Entry{Rowid: rid, Positions: []poslist.Position{poslist.Pack(0, 0)}})
		}
		if err := w.WriteTerm([]byte(term), doclist.Build(entries)); err != nil {
			t.Fatalf("writeterm %q: %v", term, err)
		}
	}
	seg, err := w.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return seg
}

func drain(t *testing.T, sub interface {
	Valid() bool
	Rowid() int64
	Next() error
}) []int64 {
	t.Helper()
	var out []int64
	for sub.Valid() {
		out = append(out, sub.Rowid())
		if err := sub.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	return out
}

func TestTermQueryMergesPendingAndSegments(t *testing.T) {
	store := openStore(t)
	seg1 := writeSeg(t, store, 1, map[string][]int64{"dog": {1, 3}, "cat": {2}})
	seg2 := writeSeg(t, store, 2, map[string][]int64{"dog": {5}})
	st := &structure.Structure{Levels: []structure.Level{{Segments: []structure.Segment{seg1, seg2}}}}

	ph := pending.New()
	ph.Write(4, 0, 0, []byte("dog"))

	idx := query.NewIndex(storage.PageFetcher(store.Data()), storage.IndexLookup(store.Idx()), ph)
	m, err := idx.Term(st, []byte("dog"), false)
	if err != nil {
		t.Fatalf("term: %v", err)
	}
	got := drain(t, m)
	want := []int64{1, 3, 4, 5}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestTermQueryExcludesOtherTerms(t *testing.T) {
	store := openStore(t)
	seg1 := writeSeg(t, store, 1, map[string][]int64{"dog": {1}, "cat": {2}})
	st := &structure.Structure{Levels: []structure.Level{{Segments: []structure.Segment{seg1}}}}

	idx := query.NewIndex(storage.PageFetcher(store.Data()), storage.IndexLookup(store.Idx()), nil)
	m, err := idx.Term(st, []byte("cat"), false)
	if err != nil {
		t.Fatalf("term: %v", err)
	}
	got := drain(t, m)
	want := []int64{2}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPrefixQueryMergesAcrossMatchingTermsAndRowids(t *testing.T) {
	store := openStore(t)
	seg1 := writeSeg(t, store, 1, map[string][]int64{"car": {1}, "care": {2}, "dog": {9}})
	seg2 := writeSeg(t, store, 2, map[string][]int64{"cart": {3}, "care": {1}})
	st := &structure.Structure{Levels: []structure.Level{{Segments: []structure.Segment{seg1, seg2}}}}

	ph := pending.New()
	ph.Write(4, 0, 5, []byte("carton"))

	idx := query.NewIndex(storage.PageFetcher(store.Data()), storage.IndexLookup(store.Idx()), ph)
	sub, err := idx.Prefix(st, []byte("car"))
	if err != nil {
		t.Fatalf("prefix: %v", err)
	}
	got := drain(t, sub)
	want := []int64{1, 2, 3, 4}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestPrefixQueryUnionsPositionsForSameRowidAcrossTerms(t *testing.T) {
	store := openStore(t)
	// seg1 has "car" at rowid 1 col 0 offset 0; seg2 has "care" at rowid 1
	// col 0 offset 5 — both should surface as one merged row.
	w1 := writer.New(storage.PageSink(store.Data()), store.Idx(), 1, 4096)
	if err := w1.WriteTerm([]byte("car"), doclist.Build([]doclist.Entry{
		{Rowid: 1, Positions: []poslist.Position{poslist.Pack(0, 0)}},
	})); err != nil {
		t.Fatalf("writeterm: %v", err)
	}
	seg1, err := w1.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	w2 := writer.New(storage.PageSink(store.Data()), store.Idx(), 2, 4096)
	if err := w2.WriteTerm([]byte("care"), doclist.Build([]doclist.Entry{
		{Rowid: 1, Positions: []poslist.Position{poslist.Pack(0, 5)}},
	})); err != nil {
		t.Fatalf("writeterm: %v", err)
	}
	seg2, err := w2.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	st := &structure.Structure{Levels: []structure.Level{{Segments: []structure.Segment{seg1, seg2}}}}

	idx := query.NewIndex(storage.PageFetcher(store.Data()), storage.IndexLookup(store.Idx()), nil)
	sub, err := idx.Prefix(st, []byte("car"))
	if err != nil {
		t.Fatalf("prefix: %v", err)
	}
	if !sub.Valid() || sub.Rowid() != 1 {
		t.Fatalf("expected a single merged row at rowid 1, got valid=%v rowid=%d", sub.Valid(), sub.Rowid())
	}
	pos := sub.Positions()
	if len(pos) != 2 {
		t.Fatalf("expected both terms' positions merged, got %v", pos)
	}
	if err := sub.Next(); err != nil {
		t.Fatalf("next: %v", err)
	}
	if sub.Valid() {
		t.Fatalf("expected exactly one merged row, got another: rowid=%d", sub.Rowid())
	}
}
