package config

import "testing"

func TestNewDefaults(t *testing.T) {
	c, err := New(WithColumns("title", "body"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.PageSize != DefaultPageSize {
		t.Fatalf("got pagesize %d want %d", c.PageSize, DefaultPageSize)
	}
	if c.Automerge != DefaultAutomerge {
		t.Fatalf("got automerge %d want %d", c.Automerge, DefaultAutomerge)
	}
	if c.Tokenizer == nil || c.Tokenizer.Name() != "simple" {
		t.Fatalf("expected default simple tokenizer")
	}
	if c.Cookie == 0 {
		t.Fatalf("expected nonzero cookie")
	}
}

func TestAutomergeOneMeansDefault(t *testing.T) {
	c, err := New(WithColumns("a"), WithAutomerge(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Automerge != DefaultAutomerge {
		t.Fatalf("automerge=1 should mean default (%d), got %d", DefaultAutomerge, c.Automerge)
	}
}

func TestPrefixSortedAndDeduped(t *testing.T) {
	c, err := New(WithColumns("a"), WithPrefix(3, 1, 3, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []int{1, 2, 3}
	if len(c.PrefixLens) != len(want) {
		t.Fatalf("got %v want %v", c.PrefixLens, want)
	}
	for i := range want {
		if c.PrefixLens[i] != want[i] {
			t.Fatalf("got %v want %v", c.PrefixLens, want)
		}
	}
}

func TestNoColumnsErrors(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatalf("expected error with no columns")
	}
}

func TestCookieChangesWithShape(t *testing.T) {
	a, _ := New(WithColumns("a", "b"))
	b, _ := New(WithColumns("a", "c"))
	if a.Cookie == b.Cookie {
		t.Fatalf("expected different cookies for different column sets")
	}
}

func TestColumnIndex(t *testing.T) {
	c, _ := New(WithColumns("title", "body"))
	if c.ColumnIndex("body") != 1 {
		t.Fatalf("expected body at index 1")
	}
	if c.ColumnIndex("missing") != -1 {
		t.Fatalf("expected -1 for missing column")
	}
}
