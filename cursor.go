package fts5

import (
	"errors"
	"fmt"
	"sort"

	"github.com/tursodatabase/go-fts5/ext"
	"github.com/tursodatabase/go-fts5/internal/multiiter"
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/internal/segment"
	"github.com/tursodatabase/go-fts5/snippet"
	"github.com/tursodatabase/go-fts5/storage"
)

var _ ext.Cursor = (*Cursor)(nil)

// matchRow is one result row: its id plus, for a MATCH-driven plan,
// each phrase's match positions in that row (nil for a SCAN or ROWID
// plan, which carry no phrase information).
type matchRow struct {
	rowid     int64
	phrasePos [][]poslist.Position
}

func sortMatchRows(rows []matchRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].rowid < rows[j].rowid })
}

// Cursor is the result of an (*Index).Query call: a fixed, already
// materialized run of matching rows (spec.md §6's cursor contract,
// narrowed to what this module's Query replaces MATCH-string dispatch
// with — see query.go). It implements ext.Cursor so rank and snippet
// functions can run directly against it.
type Cursor struct {
	idx    *Index
	q      Query
	rows   []matchRow
	i      int
	state  *ext.QueryState
	closed bool
}

// Query evaluates q against idx and returns a Cursor positioned on the
// first result row, or already at Eof when nothing matches (spec.md
// §6's xFilter). Call Next to advance.
func (idx *Index) Query(q Query, opts ...QueryOptions) (*Cursor, error) {
	var o QueryOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	cur := &Cursor{idx: idx, q: q, state: ext.NewQueryState()}
	var rows []matchRow
	var err error

	switch o.plan(q) {
	case planRowid:
		rows, err = idx.rowidRow(*o.Rowid)
	case planScan:
		rows, err = idx.scanAll(o.Desc)
	case planSortedMatch:
		if rows, err = idx.evaluateQuery(q); err == nil {
			rows, err = idx.sortByRank(cur, rows)
		}
	default: // planMatch, planSource
		if rows, err = idx.evaluateQuery(q); err == nil && o.Desc {
			reverseRows(rows)
		}
	}
	if err != nil {
		return nil, err
	}
	if o.Limit > 0 && len(rows) > o.Limit {
		rows = rows[:o.Limit]
	}
	cur.rows = rows
	return cur, nil
}

func reverseRows(rows []matchRow) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}

// rowidRow resolves the ROWID plan: one row if it still exists in the
// docsize table, none otherwise.
func (idx *Index) rowidRow(rowid int64) ([]matchRow, error) {
	if _, err := idx.store.Docsize().Get(rowid); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return []matchRow{{rowid: rowid}}, nil
}

// scanAll resolves the SCAN plan: every live rowid in the index, found
// by merging every source's full term stream and folding away
// same-rowid duplicates that appear under more than one term.
//
// Simplification (see DESIGN.md): this walks every posting in the
// index rather than a dedicated all-rows list, since none of the
// persisted tables expose id enumeration on their own (spec.md's
// reference cursor instead reads the content table directly for an
// unqualified scan). Acceptable here: a SCAN plan already implies the
// caller wants every row, so the cost is proportional to the result.
func (idx *Index) scanAll(desc bool) ([]matchRow, error) {
	var subs []multiiter.SubIterator
	if idx.pending != nil {
		subs = append(subs, multiiter.NewPendingSub(idx.pending))
	}
	for _, l := range idx.structure.Levels {
		for _, seg := range l.Segments {
			it := segment.New(idx.fetcher, idx.idxLookup, seg)
			if err := it.Init(); err != nil {
				return nil, err
			}
			subs = append(subs, it)
		}
	}
	if len(subs) == 0 {
		return nil, nil
	}

	m, err := multiiter.New(subs, false, true)
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]bool)
	var rowids []int64
	for m.Valid() {
		r := m.Rowid()
		if !seen[r] {
			seen[r] = true
			rowids = append(rowids, r)
		}
		if err := m.Next(); err != nil {
			return nil, err
		}
	}
	if err := m.Err(); err != nil {
		return nil, err
	}

	sort.Slice(rowids, func(i, j int) bool {
		if desc {
			return rowids[i] > rowids[j]
		}
		return rowids[i] < rowids[j]
	})
	rows := make([]matchRow, len(rowids))
	for i, r := range rowids {
		rows[i] = matchRow{rowid: r}
	}
	return rows, nil
}

// sortByRank orders rows by the index's configured rank function, best
// match first (spec.md §6's SORTED_MATCH plan). cur is reused to
// evaluate the rank function row-by-row so bm25-style functions see a
// single, consistent per-query auxdata slot.
func (idx *Index) sortByRank(cur *Cursor, rows []matchRow) ([]matchRow, error) {
	cur.rows = rows
	type scored struct {
		row   matchRow
		score float64
	}
	scoredRows := make([]scored, len(rows))
	for i := range rows {
		cur.i = i
		s, err := cur.Rank()
		if err != nil {
			return nil, err
		}
		scoredRows[i] = scored{row: rows[i], score: s}
	}
	sort.SliceStable(scoredRows, func(i, j int) bool { return scoredRows[i].score < scoredRows[j].score })
	out := make([]matchRow, len(scoredRows))
	for i, s := range scoredRows {
		out[i] = s.row
	}
	cur.i = 0
	return out, nil
}

func (c *Cursor) current() matchRow {
	if c.i < 0 || c.i >= len(c.rows) {
		return matchRow{}
	}
	return c.rows[c.i]
}

// Eof reports whether the cursor has passed the last result row.
func (c *Cursor) Eof() bool { return c.i >= len(c.rows) }

// Next advances to the next result row.
func (c *Cursor) Next() error {
	c.i++
	return nil
}

// Column returns the original text of col for the current row,
// equivalent to ColumnText.
func (c *Cursor) Column(col int) (string, error) { return c.ColumnText(col) }

// Rank invokes the index's configured rank function against the
// current row.
func (c *Cursor) Rank() (float64, error) {
	v, err := c.idx.ext.Invoke(c.idx.cfg.RankName, c, c.state)
	if err != nil {
		return 0, err
	}
	f, ok := v.(float64)
	if !ok {
		return 0, fmt.Errorf("fts5: %w: rank function %q returned %T, want float64", ErrError, c.idx.cfg.RankName, v)
	}
	return f, nil
}

// Snippet returns the highest-scoring nToken-token window of col in the
// current row, matches wrapped in snippet.Default's markers.
func (c *Cursor) Snippet(col, nToken int) (string, error) {
	return snippet.Snippet(c, col, nToken, snippet.Default)
}

// Highlight returns col's full text in the current row with every
// match wrapped in snippet.Default's markers.
func (c *Cursor) Highlight(col int) (string, error) {
	return snippet.Highlight(c, col, snippet.Default)
}

// Close releases the cursor's per-query auxiliary data.
func (c *Cursor) Close() error {
	if !c.closed {
		c.state.Close()
		c.closed = true
	}
	return nil
}

// ext.Cursor implementation.

func (c *Cursor) ColumnCount() int { return len(c.idx.cfg.Columns) }

func (c *Cursor) RowCount() (int64, error) { return c.idx.averages.TotalRowCount, nil }

func (c *Cursor) ColumnTotalSize(col int) (int64, error) {
	if col < 0 {
		var total int64
		for _, n := range c.idx.averages.ColumnTokens {
			total += n
		}
		return total, nil
	}
	if col >= len(c.idx.averages.ColumnTokens) {
		return 0, fmt.Errorf("fts5: %w: column %d out of range", ErrError, col)
	}
	return c.idx.averages.ColumnTokens[col], nil
}

func (c *Cursor) ColumnAvgSize(col int) (float64, error) {
	if col < 0 {
		total, err := c.ColumnTotalSize(-1)
		if err != nil {
			return 0, err
		}
		if c.idx.averages.TotalRowCount == 0 {
			return 0, nil
		}
		return float64(total) / float64(c.idx.averages.TotalRowCount), nil
	}
	return c.idx.averages.AvgColumnSize(col), nil
}

func (c *Cursor) Tokenize(text string, cb func(token string, start, end int) error) error {
	toks, err := c.idx.cfg.Tokenizer.Tokenize(text)
	if err != nil {
		return err
	}
	for _, t := range toks {
		if err := cb(t.Term, t.Start, t.End); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cursor) PhraseCount() int { return len(c.q.Phrases) }

func (c *Cursor) PhraseSize(iPhrase int) int {
	if iPhrase < 0 || iPhrase >= len(c.q.Phrases) {
		return 0
	}
	return len(c.q.Phrases[iPhrase].Terms)
}

// Rowid returns the current row's id.
func (c *Cursor) Rowid() int64 { return c.current().rowid }

func (c *Cursor) ColumnText(col int) (string, error) {
	ct, ok := c.idx.store.Content()
	if !ok {
		return "", fmt.Errorf("fts5: %w: column text unavailable in external-content mode", ErrError)
	}
	cols, err := ct.Get(c.Rowid())
	if err != nil {
		return "", err
	}
	if col < 0 || col >= len(cols) {
		return "", fmt.Errorf("fts5: %w: column %d out of range", ErrError, col)
	}
	return cols[col], nil
}

func (c *Cursor) ColumnSize(col int) (int64, error) {
	raw, err := c.idx.store.Docsize().Get(c.Rowid())
	if err != nil {
		return 0, err
	}
	sizes, err := decodeDocsize(raw, len(c.idx.cfg.Columns))
	if err != nil {
		return 0, err
	}
	if col < 0 || col >= len(sizes) {
		return 0, fmt.Errorf("fts5: %w: column %d out of range", ErrError, col)
	}
	return sizes[col], nil
}

func (c *Cursor) InstCount() (int, error) {
	n := 0
	for _, p := range c.current().phrasePos {
		n += len(p)
	}
	return n, nil
}

func (c *Cursor) Inst(iInst int) (phrase, col, tokenOff int, err error) {
	row := c.current()
	base := 0
	for pi, positions := range row.phrasePos {
		if iInst < base+len(positions) {
			p := positions[iInst-base]
			return pi, int(p.Col()), int(p.Offset()), nil
		}
		base += len(positions)
	}
	return 0, 0, 0, fmt.Errorf("fts5: %w: instance %d out of range", ErrError, iInst)
}

func (c *Cursor) Poslist(iPhrase int) ([]poslist.Position, error) {
	row := c.current()
	if iPhrase < 0 || iPhrase >= len(row.phrasePos) {
		return nil, nil
	}
	return row.phrasePos[iPhrase], nil
}

// QueryPhrase runs phrase iPhrase alone (ignoring the rest of the
// query's AND), invoking cb once per matching row in rowid order with
// a Cursor positioned on that row, sharing this cursor's QueryState so
// a rank function's auxdata scope is per-query, not per-sub-cursor.
func (c *Cursor) QueryPhrase(iPhrase int, cb func(ext.Cursor) error) error {
	if iPhrase < 0 || iPhrase >= len(c.q.Phrases) {
		return fmt.Errorf("fts5: %w: phrase %d out of range", ErrError, iPhrase)
	}
	matches, err := c.idx.evaluatePhrase(c.q.Phrases[iPhrase])
	if err != nil {
		return err
	}
	rowids := make([]int64, 0, len(matches))
	for r := range matches {
		rowids = append(rowids, r)
	}
	sort.Slice(rowids, func(i, j int) bool { return rowids[i] < rowids[j] })

	sub := &Cursor{
		idx:   c.idx,
		q:     Query{Phrases: []Phrase{c.q.Phrases[iPhrase]}},
		state: c.state,
	}
	for _, r := range rowids {
		sub.rows = []matchRow{{rowid: r, phrasePos: [][]poslist.Position{matches[r]}}}
		sub.i = 0
		if err := cb(sub); err != nil {
			return err
		}
	}
	return nil
}
