// Package rank implements the bm25 ranking function (spec.md §4.10) on
// top of ext.Cursor: per-query setup (average document length,
// per-phrase inverse document frequency via QueryPhrase) cached in the
// query's ext.QueryState, and a per-row score computed from term
// frequency and document length.
package rank

import (
	"math"

	"github.com/tursodatabase/go-fts5/ext"
)

const (
	k1 = 1.2
	b  = 0.75
)

// Name is the function name a `rank='bm25'` configuration directive
// resolves to (spec.md §6).
const Name = "bm25"

// state is bm25's per-query data, computed once on the first row and
// cached via ext.Context.SetAuxdata for the rest of the query.
type state struct {
	avgdl float64
	idf   []float64 // one entry per phrase
}

// Register adds bm25 to reg under Name.
func Register(reg *ext.Registry) {
	reg.Register(Name, Func)
}

// Func is bm25's ext.Func: the current row's negated score (more
// relevant sorts ascending, per spec.md §4.10).
func Func(ctx *ext.Context) (any, error) {
	st, err := loadState(ctx)
	if err != nil {
		return nil, err
	}

	var score float64
	for i, idf := range st.idf {
		f, err := termFrequency(ctx.Cursor, i)
		if err != nil {
			return nil, err
		}
		if f == 0 {
			continue
		}
		d, err := docLength(ctx.Cursor)
		if err != nil {
			return nil, err
		}
		denom := f + k1*(1-b+b*d/st.avgdl)
		score += idf * (f / denom)
	}
	return -score, nil
}

// loadState returns this query's cached bm25 state, computing it on
// first use.
func loadState(ctx *ext.Context) (*state, error) {
	if v, ok := ctx.GetAuxdata(); ok {
		return v.(*state), nil
	}
	st, err := computeState(ctx.Cursor)
	if err != nil {
		return nil, err
	}
	ctx.SetAuxdata(st, nil)
	return st, nil
}

func computeState(cur ext.Cursor) (*state, error) {
	n, err := cur.RowCount()
	if err != nil {
		return nil, err
	}
	avgdl, err := cur.ColumnAvgSize(-1)
	if err != nil {
		return nil, err
	}
	if avgdl == 0 {
		avgdl = 1
	}

	nPhrase := cur.PhraseCount()
	idf := make([]float64, nPhrase)
	for i := 0; i < nPhrase; i++ {
		nHit := 0
		if err := cur.QueryPhrase(i, func(ext.Cursor) error {
			nHit++
			return nil
		}); err != nil {
			return nil, err
		}
		idf[i] = math.Max(1e-6, math.Log((float64(n)-float64(nHit)+0.5)/(float64(nHit)+0.5)))
	}
	return &state{avgdl: avgdl, idf: idf}, nil
}

// termFrequency counts how many of the current row's phrase-i match
// instances fall in any column, via the row's position list for that
// phrase.
func termFrequency(cur ext.Cursor, iPhrase int) (float64, error) {
	positions, err := cur.Poslist(iPhrase)
	if err != nil {
		return 0, err
	}
	return float64(len(positions)), nil
}

// docLength returns the current row's total token count across every
// column (spec.md §4.10's D).
func docLength(cur ext.Cursor) (float64, error) {
	n := cur.ColumnCount()
	var total int64
	for col := 0; col < n; col++ {
		sz, err := cur.ColumnSize(col)
		if err != nil {
			return 0, err
		}
		total += sz
	}
	return float64(total), nil
}
