package fts5

// Term is one token a Phrase matches against, optionally as a prefix
// (spec.md §4.6's PREFIX flag).
type Term struct {
	Text   string
	Prefix bool
}

// T is shorthand for an exact-match Term.
func T(text string) Term { return Term{Text: text} }

// PrefixT is shorthand for a prefix-match Term (the "al*" shape of
// spec.md's S3 scenario).
func PrefixT(text string) Term { return Term{Text: text, Prefix: true} }

// Phrase is an ordered run of terms that must appear as consecutive
// token positions in one column for a row to match it (spec.md §2's
// "phrase queries"). A single-term Phrase is the common case: a bare
// word or prefix search.
type Phrase struct {
	Terms []Term
	// Column restricts the phrase to one column, or -1 to match any
	// column (the default the constructor helpers use).
	Column int
}

// MatchTerm builds a one-word, any-column Query.
func MatchTerm(text string) Query {
	return Query{Phrases: []Phrase{{Terms: []Term{T(text)}, Column: -1}}}
}

// MatchPrefix builds a one-word prefix Query (spec.md S3: `MATCH 'al*'`).
func MatchPrefix(text string) Query {
	return Query{Phrases: []Phrase{{Terms: []Term{PrefixT(text)}, Column: -1}}}
}

// MatchPhrase builds a Query requiring texts to appear as one contiguous
// run of tokens in a single column.
func MatchPhrase(texts ...string) Query {
	terms := make([]Term, len(texts))
	for i, t := range texts {
		terms[i] = T(t)
	}
	return Query{Phrases: []Phrase{{Terms: terms, Column: -1}}}
}

// Query is the programmatic query representation this module exposes in
// place of a MATCH expression-string parser, which spec.md §1 lists as
// explicitly out of scope ("the query-expression parser for MATCH
// syntax"). A Query is a conjunction ("AND") of Phrases: a row matches
// the Query only if every Phrase matches it somewhere, the same
// top-level semantics an unquoted multi-word MATCH string has (spec.md
// S6's `MATCH 'quick brown'`, modeled here as two one-word Phrases
// ANDed together). Callers that need genuine phrase adjacency add
// multiple Terms to one Phrase instead of spreading them across
// several.
//
// A zero-value Query (no Phrases) matches every row — the SCAN plan of
// spec.md §6's bestIndex.
type Query struct {
	Phrases []Phrase
}

// And returns a Query matching every row that matches both q and the
// given phrases, letting callers compose multi-word queries
// incrementally: fts5.MatchTerm("quick").And(fts5.MatchTerm("brown")).
func (q Query) And(other Query) Query {
	out := Query{Phrases: make([]Phrase, 0, len(q.Phrases)+len(other.Phrases))}
	out.Phrases = append(out.Phrases, q.Phrases...)
	out.Phrases = append(out.Phrases, other.Phrases...)
	return out
}

// planKind mirrors spec.md §6's bestIndex plans. The SQL query planner
// itself is out of scope, so this stays internal: Query picks among
// these directly from the shape of the Query and QueryOptions it is
// given, rather than a cost-based planner choosing among candidate
// plans for a parsed expression.
type planKind int

const (
	// planScan visits every row in rowid order (an empty Query).
	planScan planKind = iota
	// planMatch evaluates phrases and returns matching rows in rowid
	// order (ascending or descending per QueryOptions.Desc).
	planMatch
	// planSortedMatch evaluates phrases like planMatch but orders
	// results by rank instead of rowid (QueryOptions.OrderByRank).
	planSortedMatch
	// planRowid looks up a single row directly by id.
	planRowid
	// planSource evaluates phrases without consulting a rank function,
	// for ext.Cursor.QueryPhrase's nested "does this phrase hit any
	// rows" sub-queries.
	planSource
)

// QueryOptions configures how a Query's matches are returned.
type QueryOptions struct {
	// Desc reverses rowid order (ignored when OrderByRank is set).
	Desc bool
	// OrderByRank sorts matches by the configured rank function, best
	// match first, instead of by rowid (spec.md §6's SORTED_MATCH plan).
	OrderByRank bool
	// Rowid, if non-nil, restricts the query to exactly one row id
	// (spec.md §6's ROWID plan) — used for row lookups by primary key
	// rather than a MATCH.
	Rowid *int64
	// Limit caps the number of rows returned; 0 means unlimited.
	Limit int
}

func (o QueryOptions) plan(q Query) planKind {
	if o.Rowid != nil {
		return planRowid
	}
	if len(q.Phrases) == 0 {
		return planScan
	}
	if o.OrderByRank {
		return planSortedMatch
	}
	return planMatch
}
