package page

import (
	"bytes"
	"testing"
)

func TestInteriorNodeRoundTrip(t *testing.T) {
	n := &InteriorNode{
		LeftmostChild: 5,
		Entries: []InteriorEntry{
			{Term: []byte("apple")},
			{Term: []byte("application")},
			{NoTerm: true, DlidxPresent: true, NEmptyLeaves: 7},
			{Term: []byte("banana")},
		},
	}
	got, err := DecodeInteriorNode(n.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.LeftmostChild != n.LeftmostChild {
		t.Fatalf("got %d want %d", got.LeftmostChild, n.LeftmostChild)
	}
	if len(got.Entries) != len(n.Entries) {
		t.Fatalf("got %d entries want %d", len(got.Entries), len(n.Entries))
	}
	for i, want := range n.Entries {
		got := got.Entries[i]
		if got.NoTerm != want.NoTerm {
			t.Fatalf("entry %d: NoTerm mismatch", i)
		}
		if want.NoTerm {
			if got.DlidxPresent != want.DlidxPresent || got.NEmptyLeaves != want.NEmptyLeaves {
				t.Fatalf("entry %d: noTerm fields mismatch: got %+v want %+v", i, got, want)
			}
			continue
		}
		if !bytes.Equal(got.Term, want.Term) {
			t.Fatalf("entry %d: got term %q want %q", i, got.Term, want.Term)
		}
	}
}

func TestInteriorNodeEmpty(t *testing.T) {
	n := &InteriorNode{LeftmostChild: 1}
	got, err := DecodeInteriorNode(n.Encode())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(got.Entries))
	}
}
