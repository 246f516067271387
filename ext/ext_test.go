package ext_test

import (
	"errors"
	"testing"

	"github.com/tursodatabase/go-fts5/ext"
	"github.com/tursodatabase/go-fts5/internal/poslist"
)

// fakeCursor is a minimal ext.Cursor for exercising Context/Registry
// without a real query engine.
type fakeCursor struct {
	rowid     int64
	rowCount  int64
	totalSize int64
	phraseHit map[int][]int64 // phrase -> rowids it matches, for QueryPhrase
}

func (c *fakeCursor) ColumnCount() int                       { return 1 }
func (c *fakeCursor) RowCount() (int64, error)                { return c.rowCount, nil }
func (c *fakeCursor) ColumnTotalSize(int) (int64, error)      { return c.totalSize, nil }
func (c *fakeCursor) ColumnAvgSize(col int) (float64, error) {
	n, _ := c.RowCount()
	if n == 0 {
		return 0, nil
	}
	return float64(c.totalSize) / float64(n), nil
}
func (c *fakeCursor) Tokenize(string, func(string, int, int) error) error { return nil }
func (c *fakeCursor) PhraseCount() int                                    { return len(c.phraseHit) }
func (c *fakeCursor) PhraseSize(int) int                                  { return 1 }
func (c *fakeCursor) Rowid() int64                                        { return c.rowid }
func (c *fakeCursor) ColumnText(int) (string, error)                      { return "", nil }
func (c *fakeCursor) ColumnSize(int) (int64, error)                       { return 0, nil }
func (c *fakeCursor) InstCount() (int, error)                             { return 0, nil }
func (c *fakeCursor) Inst(int) (int, int, int, error)                     { return 0, 0, 0, nil }
func (c *fakeCursor) Poslist(int) ([]poslist.Position, error)             { return nil, nil }
func (c *fakeCursor) QueryPhrase(iPhrase int, cb func(ext.Cursor) error) error {
	for _, rid := range c.phraseHit[iPhrase] {
		if err := cb(&fakeCursor{rowid: rid}); err != nil {
			return err
		}
	}
	return nil
}

func TestContextForwardsCursorMethods(t *testing.T) {
	cur := &fakeCursor{rowid: 42, rowCount: 10, totalSize: 100}
	ctx := ext.NewContext("test", cur, ext.NewQueryState())
	if got := ctx.Cursor.Rowid(); got != 42 {
		t.Fatalf("got rowid %d want 42", got)
	}
	avg, err := ctx.Cursor.ColumnAvgSize(0)
	if err != nil || avg != 10 {
		t.Fatalf("got avg %v err %v want 10", avg, err)
	}
}

func TestAuxdataRoundTripsAndDestructorRunsOnce(t *testing.T) {
	state := ext.NewQueryState()
	ctx := ext.NewContext("myfunc", &fakeCursor{}, state)

	destroyed := 0
	ctx.SetAuxdata(7, func(v any) { destroyed++ })
	got, ok := ctx.GetAuxdata()
	if !ok || got.(int) != 7 {
		t.Fatalf("got %v ok=%v want 7/true", got, ok)
	}

	// A second function sharing the same QueryState must not see or
	// clobber myfunc's slot.
	other := ext.NewContext("otherfunc", &fakeCursor{}, state)
	if _, ok := other.GetAuxdata(); ok {
		t.Fatalf("expected otherfunc to have no auxdata yet")
	}
	other.SetAuxdata("hello", nil)

	// Replacing myfunc's value destroys the old one.
	ctx.SetAuxdata(9, func(v any) { destroyed++ })
	if destroyed != 1 {
		t.Fatalf("expected exactly 1 destructor run from replacement, got %d", destroyed)
	}

	state.Close()
	if destroyed != 2 {
		t.Fatalf("expected the final value's destructor to run on Close, got %d", destroyed)
	}
}

func TestRegistryInvokeUsesQueryPhraseForDocumentFrequency(t *testing.T) {
	reg := ext.NewRegistry()
	reg.Register("docfreq", func(ctx *ext.Context) (any, error) {
		n := 0
		err := ctx.Cursor.QueryPhrase(0, func(ext.Cursor) error {
			n++
			return nil
		})
		return n, err
	})

	cur := &fakeCursor{phraseHit: map[int][]int64{0: {1, 2, 3}}}
	state := ext.NewQueryState()
	got, err := reg.Invoke("docfreq", cur, state)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if got.(int) != 3 {
		t.Fatalf("got %v want 3", got)
	}
}

func TestRegistryInvokeUnknownFunction(t *testing.T) {
	reg := ext.NewRegistry()
	_, err := reg.Invoke("nope", &fakeCursor{}, ext.NewQueryState())
	var unknown *ext.ErrUnknownFunction
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownFunction, got %v", err)
	}
}
