package structure

import "testing"

func TestStructureRoundTrip(t *testing.T) {
	s := &Structure{
		Cookie:       0xdeadbeef,
		WriteCounter: 42,
		Levels: []Level{
			{NMerge: 2, Segments: []Segment{
				{ID: 1, FirstLeaf: 1, LastLeaf: 10, Height: 0},
				{ID: 2, FirstLeaf: 11, LastLeaf: 20, Height: 1},
			}},
			{NMerge: 0, Segments: []Segment{
				{ID: 3, FirstLeaf: 1, LastLeaf: 100, Height: 2},
			}},
		},
	}
	enc := s.Encode()
	got, err := Decode(enc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cookie != s.Cookie || got.WriteCounter != s.WriteCounter {
		t.Fatalf("header mismatch: %+v vs %+v", got, s)
	}
	if len(got.Levels) != len(s.Levels) {
		t.Fatalf("got %d levels want %d", len(got.Levels), len(s.Levels))
	}
	for li := range s.Levels {
		if got.Levels[li].NMerge != s.Levels[li].NMerge {
			t.Fatalf("level %d nMerge mismatch", li)
		}
		if len(got.Levels[li].Segments) != len(s.Levels[li].Segments) {
			t.Fatalf("level %d segment count mismatch", li)
		}
		for si := range s.Levels[li].Segments {
			if got.Levels[li].Segments[si] != s.Levels[li].Segments[si] {
				t.Fatalf("level %d segment %d mismatch: got %+v want %+v",
					li, si, got.Levels[li].Segments[si], s.Levels[li].Segments[si])
			}
		}
	}
}

func TestStructureEmpty(t *testing.T) {
	s := &Structure{Cookie: 1, WriteCounter: 0}
	got, err := Decode(s.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.NumSegments() != 0 {
		t.Fatalf("expected 0 segments, got %d", got.NumSegments())
	}
}

func TestStructureRejectsTooManySegments(t *testing.T) {
	segs := make([]Segment, MaxSegments+1)
	for i := range segs {
		segs[i] = Segment{ID: uint16(i + 1)}
	}
	s := &Structure{Levels: []Level{{NMerge: 0, Segments: segs}}}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for too many segments")
	}
}

func TestStructureRejectsDuplicateSegmentID(t *testing.T) {
	s := &Structure{Levels: []Level{
		{Segments: []Segment{{ID: 5}}},
		{Segments: []Segment{{ID: 5}}},
	}}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for duplicate segment id")
	}
}

func TestStructureRejectsBadNMerge(t *testing.T) {
	s := &Structure{Levels: []Level{
		{NMerge: 5, Segments: []Segment{{ID: 1}}},
	}}
	if err := s.Validate(); err == nil {
		t.Fatalf("expected error for nMerge exceeding segment count")
	}
}

func TestAveragesRoundTrip(t *testing.T) {
	a := &Averages{TotalRowCount: 100, ColumnTokens: []int64{5000, 12000}}
	got, err := DecodeAverages(a.Encode(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.TotalRowCount != a.TotalRowCount {
		t.Fatalf("got %d want %d", got.TotalRowCount, a.TotalRowCount)
	}
	for i := range a.ColumnTokens {
		if got.ColumnTokens[i] != a.ColumnTokens[i] {
			t.Fatalf("column %d: got %d want %d", i, got.ColumnTokens[i], a.ColumnTokens[i])
		}
	}
}

func TestAveragesAvgColumnSize(t *testing.T) {
	a := &Averages{TotalRowCount: 10, ColumnTokens: []int64{100}}
	if got := a.AvgColumnSize(0); got != 10 {
		t.Fatalf("got %v want 10", got)
	}
	empty := &Averages{}
	if got := empty.AvgColumnSize(0); got != 0 {
		t.Fatalf("expected 0 avg for empty table, got %v", got)
	}
}

func TestAveragesAddRemoveRow(t *testing.T) {
	a := &Averages{ColumnTokens: []int64{0, 0}}
	a.AddRow([]int64{10, 20})
	a.AddRow([]int64{5, 8})
	if a.TotalRowCount != 2 || a.ColumnTokens[0] != 15 || a.ColumnTokens[1] != 28 {
		t.Fatalf("unexpected totals after AddRow: %+v", a)
	}
	a.RemoveRow([]int64{5, 8})
	if a.TotalRowCount != 1 || a.ColumnTokens[0] != 10 || a.ColumnTokens[1] != 20 {
		t.Fatalf("unexpected totals after RemoveRow: %+v", a)
	}
}
