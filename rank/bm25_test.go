package rank_test

import (
	"testing"

	"github.com/tursodatabase/go-fts5/ext"
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/rank"
)

// doc models one row of a tiny corpus: its token count and, per phrase,
// how many times that phrase's term occurs.
type doc struct {
	rowid    int64
	size     int64
	phraseHits [2]int // occurrences of phrase 0 ("quick"), phrase 1 ("brown")
}

type fakeCursor struct {
	docs    []doc
	current int // index into docs
}

func (c *fakeCursor) cur() doc { return c.docs[c.current] }

func (c *fakeCursor) ColumnCount() int { return 1 }
func (c *fakeCursor) RowCount() (int64, error) { return int64(len(c.docs)), nil }
func (c *fakeCursor) ColumnTotalSize(int) (int64, error) {
	var total int64
	for _, d := range c.docs {
		total += d.size
	}
	return total, nil
}
func (c *fakeCursor) ColumnAvgSize(col int) (float64, error) {
	total, _ := c.ColumnTotalSize(col)
	n, _ := c.RowCount()
	return float64(total) / float64(n), nil
}
func (c *fakeCursor) Tokenize(string, func(string, int, int) error) error { return nil }
func (c *fakeCursor) PhraseCount() int                                    { return 2 }
func (c *fakeCursor) PhraseSize(int) int                                  { return 1 }
func (c *fakeCursor) Rowid() int64                                        { return c.cur().rowid }
func (c *fakeCursor) ColumnText(int) (string, error)                      { return "", nil }
func (c *fakeCursor) ColumnSize(int) (int64, error)                       { return c.cur().size, nil }
func (c *fakeCursor) InstCount() (int, error)                             { return 0, nil }
func (c *fakeCursor) Inst(int) (int, int, int, error)                     { return 0, 0, 0, nil }
func (c *fakeCursor) Poslist(iPhrase int) ([]poslist.Position, error) {
	n := c.cur().phraseHits[iPhrase]
	out := make([]poslist.Position, n)
	for i := range out {
		out[i] = poslist.Pack(0, uint32(i))
	}
	return out, nil
}
func (c *fakeCursor) QueryPhrase(iPhrase int, cb func(ext.Cursor) error) error {
	for i, d := range c.docs {
		if d.phraseHits[iPhrase] > 0 {
			sub := &fakeCursor{docs: c.docs, current: i}
			if err := cb(sub); err != nil {
				return err
			}
		}
	}
	return nil
}

func scoreAll(t *testing.T, docs []doc) map[int64]float64 {
	t.Helper()
	reg := ext.NewRegistry()
	rank.Register(reg)
	state := ext.NewQueryState()
	scores := make(map[int64]float64)
	for i := range docs {
		cur := &fakeCursor{docs: docs, current: i}
		got, err := reg.Invoke(rank.Name, cur, state)
		if err != nil {
			t.Fatalf("invoke: %v", err)
		}
		scores[cur.Rowid()] = got.(float64)
	}
	return scores
}

// TestDocMatchingBothPhrasesScoresBestAmongSingleMatches mirrors spec.md
// S6: a row containing both query phrases should score better
// (more negative, since bm25 scores are negated to sort ascending) than
// rows containing at most one.
func TestDocMatchingBothPhrasesScoresBestAmongSingleMatches(t *testing.T) {
	docs := []doc{
		{rowid: 1, size: 10, phraseHits: [2]int{1, 1}}, // both "quick" and "brown"
		{rowid: 2, size: 10, phraseHits: [2]int{1, 0}}, // only "quick"
		{rowid: 3, size: 10, phraseHits: [2]int{0, 0}}, // neither
	}
	scores := scoreAll(t, docs)
	if !(scores[1] < scores[2]) {
		t.Fatalf("expected doc 1 (both phrases) to score lower (more relevant) than doc 2: %v", scores)
	}
	if !(scores[2] < scores[3]) {
		t.Fatalf("expected doc 2 (one phrase) to score lower than doc 3 (no match): %v", scores)
	}
	if scores[3] != 0 {
		t.Fatalf("expected a non-matching doc to score 0, got %v", scores[3])
	}
}

func TestShorterDocumentScoresBetterForEqualTermFrequency(t *testing.T) {
	docs := []doc{
		{rowid: 1, size: 5, phraseHits: [2]int{1, 0}},
		{rowid: 2, size: 50, phraseHits: [2]int{1, 0}},
	}
	scores := scoreAll(t, docs)
	if !(scores[1] < scores[2]) {
		t.Fatalf("expected the shorter doc to score lower (more relevant): %v", scores)
	}
}
