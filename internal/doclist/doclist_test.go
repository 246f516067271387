package doclist

import (
	"testing"

	"github.com/tursodatabase/go-fts5/internal/poslist"
)

func TestRoundTrip(t *testing.T) {
	entries := []Entry{
		{Rowid: 1, Positions: []poslist.Position{poslist.Pack(0, 1)}},
		{Rowid: 5, Positions: []poslist.Position{poslist.Pack(0, 0), poslist.Pack(1, 2)}},
		{Rowid: 9, Positions: []poslist.Position{poslist.Pack(0, 4)}, Delete: true},
	}
	got := Decode(Build(entries))
	if len(got) != len(entries) {
		t.Fatalf("length mismatch: want %d got %d", len(entries), len(got))
	}
	for i := range entries {
		if got[i].Rowid != entries[i].Rowid {
			t.Fatalf("entry %d rowid mismatch: want %d got %d", i, entries[i].Rowid, got[i].Rowid)
		}
		if got[i].Delete != entries[i].Delete {
			t.Fatalf("entry %d delete flag mismatch", i)
		}
		if len(got[i].Positions) != len(entries[i].Positions) {
			t.Fatalf("entry %d position count mismatch", i)
		}
	}
}

func TestMonotoneRowids(t *testing.T) {
	entries := []Entry{
		{Rowid: 2, Positions: []poslist.Position{poslist.Pack(0, 0)}},
		{Rowid: 7, Positions: []poslist.Position{poslist.Pack(0, 0)}},
		{Rowid: 100, Positions: []poslist.Position{poslist.Pack(0, 0)}},
	}
	data := Build(entries)
	r := NewReader(data)
	prev := int64(-1)
	n := 0
	for {
		e, ok := r.Next()
		if !ok {
			break
		}
		if e.Rowid <= prev {
			t.Fatalf("rowids not strictly increasing: %d after %d", e.Rowid, prev)
		}
		prev = e.Rowid
		n++
	}
	if n != len(entries) {
		t.Fatalf("expected %d entries, got %d", len(entries), n)
	}
}

func TestEmptyDoclist(t *testing.T) {
	data := Build(nil)
	if len(data) != 1 || data[0] != 0 {
		t.Fatalf("expected bare terminator, got %x", data)
	}
	got := Decode(data)
	if len(got) != 0 {
		t.Fatalf("expected zero entries, got %d", len(got))
	}
}
