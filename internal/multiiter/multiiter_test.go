package multiiter

import (
	"testing"

	"github.com/tursodatabase/go-fts5/internal/poslist"
)

// fakeSub is a hand-built SubIterator for exercising the merge logic in
// isolation from segment/pending concerns.
type fakeSub struct {
	rows []fakeRow
	idx  int
}

type fakeRow struct {
	term  string
	rowid int64
	del   bool
}

func (f *fakeSub) Valid() bool { return f.idx < len(f.rows) }
func (f *fakeSub) Term() []byte {
	return []byte(f.rows[f.idx].term)
}
func (f *fakeSub) Rowid() int64 { return f.rows[f.idx].rowid }
func (f *fakeSub) Positions() []poslist.Position {
	if f.rows[f.idx].del {
		return nil
	}
	return []poslist.Position{poslist.Pack(0, 0)}
}
func (f *fakeSub) Deleted() bool { return f.rows[f.idx].del }
func (f *fakeSub) Next() error {
	f.idx++
	return nil
}

func collect(t *testing.T, m *Multi) []string {
	t.Helper()
	var out []string
	for m.Valid() {
		out = append(out, string(m.Term()))
		if err := m.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	return out
}

func TestMultiMergesDistinctTerms(t *testing.T) {
	a := &fakeSub{rows: []fakeRow{{"apple", 1, false}, {"cherry", 3, false}}}
	b := &fakeSub{rows: []fakeRow{{"banana", 2, false}}}
	m, err := New([]SubIterator{a, b}, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := collect(t, m)
	want := []string{"apple", "banana", "cherry"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestMultiNewestWinsOnTie(t *testing.T) {
	// Both subs claim term "apple" rowid 1; sub 0 (pending, newest) is
	// a tombstone overriding sub 1's stale on-disk entry.
	pending := &fakeSub{rows: []fakeRow{{"apple", 1, true}}}
	onDisk := &fakeSub{rows: []fakeRow{{"apple", 1, false}}}
	m, err := New([]SubIterator{pending, onDisk}, false, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Valid() {
		t.Fatalf("expected a row (skipEmpty=false should surface the tombstone)")
	}
	if m.Rowid() != 1 || !m.Deleted() {
		t.Fatalf("expected tombstone row to win, got rowid=%d deleted=%v", m.Rowid(), m.Deleted())
	}
	if onDisk.Valid() {
		t.Fatalf("expected stale on-disk duplicate to be discarded")
	}
}

func TestMultiSkipEmptyHidesTombstones(t *testing.T) {
	a := &fakeSub{rows: []fakeRow{{"apple", 1, true}, {"apple", 2, false}}}
	m, err := New([]SubIterator{a}, false, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := []int64{}
	for m.Valid() {
		got = append(got, m.Rowid())
		m.Next()
	}
	if len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected only rowid 2 to survive, got %v", got)
	}
}

func TestMultiReversePicksMaxRowidOnTie(t *testing.T) {
	// Each sub is responsible for its own descending order (as
	// segment.Iterator's Reverse flag produces); Multi's job on a tie
	// is to prefer the larger rowid first.
	a := &fakeSub{rows: []fakeRow{{"apple", 5, false}, {"apple", 2, false}}}
	b := &fakeSub{rows: []fakeRow{{"apple", 8, false}}}
	m, err := New([]SubIterator{a, b}, true, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []int64
	for m.Valid() {
		got = append(got, m.Rowid())
		if err := m.Next(); err != nil {
			t.Fatalf("next: %v", err)
		}
	}
	want := []int64{8, 5, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
