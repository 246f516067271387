package bolt

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/tursodatabase/go-fts5/storage"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestDataTableRoundTrip(t *testing.T) {
	s := openTestStore(t)
	d := s.Data()
	if err := d.Put(42, []byte("hello")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := d.Get(42)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q want %q", got, "hello")
	}
	if err := d.Delete(42); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := d.Get(42); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestDataTableDeleteRange(t *testing.T) {
	s := openTestStore(t)
	d := s.Data()
	for i := int64(1); i <= 10; i++ {
		if err := d.Put(i, []byte{byte(i)}); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	if err := d.DeleteRange(3, 7); err != nil {
		t.Fatalf("deleterange: %v", err)
	}
	for i := int64(1); i <= 10; i++ {
		_, err := d.Get(i)
		inRange := i >= 3 && i <= 7
		if inRange && !errors.Is(err, storage.ErrNotFound) {
			t.Fatalf("id %d: expected deleted, got err=%v", i, err)
		}
		if !inRange && err != nil {
			t.Fatalf("id %d: expected present, got err=%v", i, err)
		}
	}
}

func TestIdxTableSeekFloor(t *testing.T) {
	s := openTestStore(t)
	idx := s.Idx()
	terms := []string{"apple", "cherry", "mango"}
	for i, term := range terms {
		if err := idx.Put(1, []byte(term), uint32(i+1), false); err != nil {
			t.Fatalf("put %q: %v", term, err)
		}
	}
	// Also populate a different segid to make sure SeekFloor stays within
	// the requested segment.
	if err := idx.Put(2, []byte("zzz"), 99, false); err != nil {
		t.Fatalf("put segid2: %v", err)
	}

	tests := []struct {
		query     string
		wantTerm  string
		wantFound bool
	}{
		{"apple", "apple", true},
		{"banana", "apple", true},
		{"cherry", "cherry", true},
		{"zzz", "mango", true},
		{"aaa", "", false},
	}
	for _, tc := range tests {
		e, found, err := idx.SeekFloor(1, []byte(tc.query))
		if err != nil {
			t.Fatalf("seekfloor(%q): %v", tc.query, err)
		}
		if found != tc.wantFound {
			t.Fatalf("seekfloor(%q): found=%v want %v", tc.query, found, tc.wantFound)
		}
		if found && string(e.Term) != tc.wantTerm {
			t.Fatalf("seekfloor(%q): got term %q want %q", tc.query, e.Term, tc.wantTerm)
		}
	}
}

func TestIdxTableDlidxFlagRoundTrips(t *testing.T) {
	s := openTestStore(t)
	idx := s.Idx()
	if err := idx.Put(5, []byte("term"), 77, true); err != nil {
		t.Fatalf("put: %v", err)
	}
	e, found, err := idx.SeekFloor(5, []byte("term"))
	if err != nil || !found {
		t.Fatalf("seekfloor: found=%v err=%v", found, err)
	}
	if e.Pgno != 77 || !e.Dlidx {
		t.Fatalf("got pgno=%d dlidx=%v want 77/true", e.Pgno, e.Dlidx)
	}
}

func TestIdxTableDeleteSegment(t *testing.T) {
	s := openTestStore(t)
	idx := s.Idx()
	if err := idx.Put(1, []byte("a"), 1, false); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Put(1, []byte("b"), 2, false); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.Put(2, []byte("a"), 3, false); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := idx.DeleteSegment(1); err != nil {
		t.Fatalf("deletesegment: %v", err)
	}
	if _, found, _ := idx.SeekFloor(1, []byte("b")); found {
		t.Fatalf("expected segid 1 rows gone after DeleteSegment")
	}
	if _, found, _ := idx.SeekFloor(2, []byte("a")); !found {
		t.Fatalf("expected segid 2 rows to survive DeleteSegment(1)")
	}
}

func TestDocsizeTableRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ds := s.Docsize()
	if err := ds.Put(1, []byte{1, 2, 3}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := ds.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %v", got)
	}
	if err := ds.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := ds.Get(1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConfigTableRoundTrip(t *testing.T) {
	s := openTestStore(t)
	cfg := s.Config()
	if _, found, err := cfg.Get("version"); err != nil || found {
		t.Fatalf("expected absent key, found=%v err=%v", found, err)
	}
	if err := cfg.Put("version", "4"); err != nil {
		t.Fatalf("put: %v", err)
	}
	v, found, err := cfg.Get("version")
	if err != nil || !found || v != "4" {
		t.Fatalf("got %q found=%v err=%v", v, found, err)
	}
}

func TestContentTableRoundTrip(t *testing.T) {
	s := openTestStore(t)
	content, ok := s.Content()
	if !ok {
		t.Fatalf("expected content table by default")
	}
	if err := content.Put(1, []string{"hello world", "second column"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := content.Get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 2 || got[0] != "hello world" || got[1] != "second column" {
		t.Fatalf("got %v", got)
	}
	if err := content.Delete(1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := content.Get(1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNamespacesIsolateSegidSpaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("opendb: %v", err)
	}
	defer db.Close()

	main, err := db.Namespace("main")
	if err != nil {
		t.Fatalf("namespace main: %v", err)
	}
	prefix2, err := db.Namespace("prefix2")
	if err != nil {
		t.Fatalf("namespace prefix2: %v", err)
	}

	// Same segid, same term, different namespaces: each gets its own row.
	if err := main.Idx().Put(1, []byte("shared"), 10, false); err != nil {
		t.Fatalf("put main: %v", err)
	}
	if err := prefix2.Idx().Put(1, []byte("shared"), 20, false); err != nil {
		t.Fatalf("put prefix2: %v", err)
	}

	e, found, err := main.Idx().SeekFloor(1, []byte("shared"))
	if err != nil || !found || e.Pgno != 10 {
		t.Fatalf("main seekfloor: entry=%+v found=%v err=%v", e, found, err)
	}
	e, found, err = prefix2.Idx().SeekFloor(1, []byte("shared"))
	if err != nil || !found || e.Pgno != 20 {
		t.Fatalf("prefix2 seekfloor: entry=%+v found=%v err=%v", e, found, err)
	}

	if err := main.Data().Put(1, []byte("main-data")); err != nil {
		t.Fatalf("put main data: %v", err)
	}
	if _, err := prefix2.Data().Get(1); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected prefix2 data bucket to be independent of main, got %v", err)
	}

	// DeleteSegment in one namespace must not touch the other's rows.
	if err := main.Idx().DeleteSegment(1); err != nil {
		t.Fatalf("deletesegment: %v", err)
	}
	if _, found, _ := main.Idx().SeekFloor(1, []byte("shared")); found {
		t.Fatalf("expected main's segid 1 rows gone")
	}
	if _, found, _ := prefix2.Idx().SeekFloor(1, []byte("shared")); !found {
		t.Fatalf("expected prefix2's segid 1 rows to survive main's DeleteSegment")
	}
}

func TestExternalContentModeHasNoContentTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(path, WithExternalContent())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, ok := s.Content(); ok {
		t.Fatalf("expected no content table in external-content mode")
	}
}
