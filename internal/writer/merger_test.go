package writer

import (
	"fmt"
	"testing"

	"github.com/tursodatabase/go-fts5/internal/doclist"
	"github.com/tursodatabase/go-fts5/internal/segment"
	"github.com/tursodatabase/go-fts5/internal/structure"
)

func writeSegment(t *testing.T, sink *memSink, segid uint16, terms map[string][]int64) structure.Segment {
	t.Helper()
	idx := &memIdx{}
	w := New(sink, idx, segid, 4096)
	keys := []string{}
	for k := range terms {
		keys = append(keys, k)
	}
	// simple insertion sort to avoid importing sort for 2-3 element test fixtures
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	for _, term := range keys {
		if err := w.WriteTerm([]byte(term), buildDoclist(terms[term]...)); err != nil {
			t.Fatalf("writeterm: %v", err)
		}
	}
	seg, err := w.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}
	return seg
}

func scanAll(t *testing.T, sink *memSink, st *structure.Structure) []string {
	t.Helper()
	var out []string
	for _, l := range st.Levels {
		for _, s := range l.Segments {
			it := segment.New(sink, nil, s)
			if err := it.Init(); err != nil {
				t.Fatalf("init: %v", err)
			}
			for it.Valid() {
				out = append(out, fmt.Sprintf("%s:%d:del=%v", it.Term(), it.Rowid(), it.Deleted()))
				if err := it.Next(); err != nil {
					t.Fatalf("next: %v", err)
				}
			}
		}
	}
	return out
}

func TestMergeLevelCombinesSegments(t *testing.T) {
	sink := &memSink{pages: map[int64][]byte{}}
	seg1 := writeSegment(t, sink, 1, map[string][]int64{"apple": {1}, "cherry": {4}})
	seg2 := writeSegment(t, sink, 2, map[string][]int64{"banana": {2}, "cherry": {5}})

	st := &structure.Structure{Levels: []structure.Level{
		{Segments: []structure.Segment{seg1, seg2}},
	}}

	mg := NewMerger(sink, nil, sink, &memIdx{}, 4096)
	if err := mg.MergeLevel(st, 0); err != nil {
		t.Fatalf("mergelevel: %v", err)
	}
	if len(st.Levels[0].Segments) != 0 {
		t.Fatalf("expected level 0 drained, got %d segments", len(st.Levels[0].Segments))
	}
	if st.NumSegments() != 1 {
		t.Fatalf("expected exactly 1 output segment, got %d", st.NumSegments())
	}

	got := scanAll(t, sink, st)
	want := map[string]bool{
		"apple:1:del=false": true, "banana:2:del=false": true,
		"cherry:4:del=false": true, "cherry:5:del=false": true,
	}
	if len(got) != len(want) {
		t.Fatalf("got %v want keys %v", got, want)
	}
	for _, g := range got {
		if !want[g] {
			t.Fatalf("unexpected entry %q in merged output", g)
		}
	}
}

func TestMergeLevelDropsTombstonesAtBottom(t *testing.T) {
	sink := &memSink{pages: map[int64][]byte{}}
	idx := &memIdx{}
	w := New(sink, idx, 1, 4096)
	if err := w.WriteTerm([]byte("apple"), doclist.Build([]doclist.Entry{
		{Rowid: 1, Delete: true},
	})); err != nil {
		t.Fatalf("writeterm: %v", err)
	}
	seg1, err := w.Finish()
	if err != nil {
		t.Fatalf("finish: %v", err)
	}

	st := &structure.Structure{Levels: []structure.Level{
		{Segments: []structure.Segment{seg1}},
	}}
	mg := NewMerger(sink, nil, sink, &memIdx{}, 4096)
	if err := mg.MergeLevel(st, 0); err != nil {
		t.Fatalf("mergelevel: %v", err)
	}
	if st.NumSegments() != 0 {
		t.Fatalf("expected the tombstone-only merge into the bottom level to drop all rows, got %d segments", st.NumSegments())
	}
}

func TestCrisisMergeReducesSegmentCount(t *testing.T) {
	sink := &memSink{pages: map[int64][]byte{}}
	st := &structure.Structure{}
	var segs []structure.Segment
	for i := 0; i < 5; i++ {
		segs = append(segs, writeSegment(t, sink, uint16(i+10), map[string][]int64{fmt.Sprintf("t%d", i): {int64(i + 1)}}))
	}
	st.Levels = []structure.Level{{Segments: segs}}

	mg := NewMerger(sink, nil, sink, &memIdx{}, 4096)
	if err := mg.CrisisMerge(st, 5); err != nil {
		t.Fatalf("crisismerge: %v", err)
	}
	if st.NumSegments() != 1 {
		t.Fatalf("expected crisis merge to collapse to 1 segment, got %d", st.NumSegments())
	}
}

func TestAutomergeQuantaFormula(t *testing.T) {
	if got := AutomergeQuanta(0, 10, 4); got != 2 {
		t.Fatalf("got %d want 2", got)
	}
	if got := AutomergeQuanta(6, 2, 4); got != 1 {
		t.Fatalf("got %d want 1", got)
	}
	if got := AutomergeQuanta(0, 1, 4); got != 0 {
		t.Fatalf("got %d want 0", got)
	}
}

func TestOptimizeCollapsesAllLevels(t *testing.T) {
	sink := &memSink{pages: map[int64][]byte{}}
	seg1 := writeSegment(t, sink, 1, map[string][]int64{"a": {1}})
	seg2 := writeSegment(t, sink, 2, map[string][]int64{"b": {2}})
	seg3 := writeSegment(t, sink, 3, map[string][]int64{"c": {3}})
	st := &structure.Structure{Levels: []structure.Level{
		{Segments: []structure.Segment{seg1}},
		{Segments: []structure.Segment{seg2}},
		{Segments: []structure.Segment{seg3}},
	}}
	mg := NewMerger(sink, nil, sink, &memIdx{}, 4096)
	if err := mg.Optimize(st); err != nil {
		t.Fatalf("optimize: %v", err)
	}
	if st.NumSegments() != 1 {
		t.Fatalf("expected 1 segment after optimize, got %d", st.NumSegments())
	}
	got := scanAll(t, sink, st)
	if len(got) != 3 {
		t.Fatalf("expected all 3 original rows preserved, got %v", got)
	}
}

func TestPromoteMovesSingletonUpWhenNoLargerSegmentBelow(t *testing.T) {
	sink := &memSink{pages: map[int64][]byte{}}
	small := writeSegment(t, sink, 1, map[string][]int64{"a": {1}})
	large := writeSegment(t, sink, 2, map[string][]int64{"b": {2}, "c": {3}, "d": {4}})
	st := &structure.Structure{Levels: []structure.Level{
		{},
		{Segments: []structure.Segment{small}},
		{Segments: []structure.Segment{large}},
	}}
	mg := NewMerger(sink, nil, sink, &memIdx{}, 4096)
	mg.promote(st, 1)
	if len(st.Levels[1].Segments) != 0 {
		t.Fatalf("expected level 1 emptied by promotion")
	}
	if len(st.Levels[2].Segments) != 2 {
		t.Fatalf("expected level 2 to gain the promoted segment, got %d", len(st.Levels[2].Segments))
	}
}
