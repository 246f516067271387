// Package snippet implements snippet extraction and match highlighting
// (spec.md §4.10) on top of ext.Cursor: re-tokenizing a column's text to
// recover byte offsets, locating the coalesced match windows that score
// highest, and wrapping matched spans with caller-supplied markup.
package snippet

import (
	"strings"

	"github.com/tursodatabase/go-fts5/ext"
)

// Markers controls the literal text snippet/highlight wrap matches and
// elided regions with. The zero value is unmarked plain text; Default
// mirrors the teacher ecosystem's usual "..." / bold convention.
type Markers struct {
	Ellipsis string
	Open     string
	Close    string
}

// Default markers: "..." for elided text, <b>/</b> around matches.
var Default = Markers{Ellipsis: "...", Open: "<b>", Close: "</b>"}

type token struct {
	text       string
	start, end int // byte offsets into the column's original text
}

func tokenize(cur ext.Cursor, col int) ([]token, string, error) {
	text, err := cur.ColumnText(col)
	if err != nil {
		return nil, "", err
	}
	var toks []token
	err = cur.Tokenize(text, func(tok string, start, end int) error {
		toks = append(toks, token{text: tok, start: start, end: end})
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	return toks, text, nil
}

// span is one coalesced match: a contiguous run of token indices
// [lo, hi) covered by one or more phrase-instance hits, with the
// distinct phrases and total hit count contributing to it (spec.md
// §4.10's scoring: "1000 per distinct phrase in window + 1 per extra
// hit").
type span struct {
	lo, hi  int
	phrases map[int]bool
	hits    int
}

// instancesInColumn collects every match instance (spec.md §4.9's
// xInst) whose column is col, as a (tokenOffset, phrase) pair, using
// phraseSize to know how many tokens each hit spans.
func instancesInColumn(cur ext.Cursor, col int) ([]span, error) {
	n, err := cur.InstCount()
	if err != nil {
		return nil, err
	}
	var raw []span
	for i := 0; i < n; i++ {
		phrase, instCol, tokOff, err := cur.Inst(i)
		if err != nil {
			return nil, err
		}
		if instCol != col {
			continue
		}
		size := cur.PhraseSize(phrase)
		if size < 1 {
			size = 1
		}
		raw = append(raw, span{
			lo: tokOff, hi: tokOff + size,
			phrases: map[int]bool{phrase: true}, hits: 1,
		})
	}
	return coalesce(raw), nil
}

// coalesce sorts raw match spans by start and unions any whose token
// ranges overlap, accumulating their phrase sets and hit counts (spec.md
// §4.10: "a coalesced-instance iterator (instances whose token ranges
// overlap are unioned)").
func coalesce(raw []span) []span {
	if len(raw) == 0 {
		return nil
	}
	for i := 1; i < len(raw); i++ {
		for j := i; j > 0 && raw[j].lo < raw[j-1].lo; j-- {
			raw[j], raw[j-1] = raw[j-1], raw[j]
		}
	}
	out := []span{raw[0]}
	for _, s := range raw[1:] {
		last := &out[len(out)-1]
		if s.lo < last.hi {
			if s.hi > last.hi {
				last.hi = s.hi
			}
			for p := range s.phrases {
				last.phrases[p] = true
			}
			last.hits += s.hits
			continue
		}
		out = append(out, s)
	}
	return out
}

// windowScore sums spec.md §4.10's score for every coalesced span that
// intersects the half-open token range [lo, hi).
func windowScore(spans []span, lo, hi int) int {
	score := 0
	for _, s := range spans {
		if s.hi <= lo || s.lo >= hi {
			continue
		}
		score += 1000*len(s.phrases) + (s.hits - 1)
	}
	return score
}

// bestWindow finds the start offset of the nToken-token window scoring
// highest, preferring the earliest such window on ties, then nudges it
// right by one token if that doesn't lose any points and the window
// doesn't already start at the document's first token (spec.md §4.10).
// The nudge does not check where the first match lands: with a
// two-token window, or matches on adjacent tokens, it can leave the
// first match flush against the window's left edge.
func bestWindow(nTok, nToken int, spans []span) int {
	if nToken >= nTok {
		return 0
	}
	bestStart, bestScore := 0, -1
	for start := 0; start+nToken <= nTok; start++ {
		if sc := windowScore(spans, start, start+nToken); sc > bestScore {
			bestScore, bestStart = sc, start
		}
	}
	if bestStart > 0 && windowScore(spans, bestStart+1, bestStart+1+nToken) == bestScore {
		bestStart++
	}
	return bestStart
}

// render emits text[lo:hi) (lo/hi are byte offsets) with every
// coalesced span intersecting the token range [tokLo, tokHi) wrapped in
// m.Open/m.Close, and leading/trailing m.Ellipsis when the rendered
// range doesn't reach the start/end of the full token list.
func render(text string, toks []token, spans []span, tokLo, tokHi int, m Markers) string {
	var b strings.Builder
	if tokLo > 0 {
		b.WriteString(m.Ellipsis)
	}
	byteLo, byteHi := toks[tokLo].start, toks[tokHi-1].end

	cursor := byteLo
	for _, s := range spans {
		lo, hi := s.lo, s.hi
		if hi <= tokLo || lo >= tokHi {
			continue
		}
		if lo < tokLo {
			lo = tokLo
		}
		if hi > tokHi {
			hi = tokHi
		}
		spanByteLo, spanByteHi := toks[lo].start, toks[hi-1].end
		if spanByteLo > cursor {
			b.WriteString(text[cursor:spanByteLo])
		}
		b.WriteString(m.Open)
		b.WriteString(text[spanByteLo:spanByteHi])
		b.WriteString(m.Close)
		cursor = spanByteHi
	}
	if cursor < byteHi {
		b.WriteString(text[cursor:byteHi])
	}
	if tokHi < len(toks) {
		b.WriteString(m.Ellipsis)
	}
	return b.String()
}

// Snippet returns the highest-scoring nToken-token window of column col
// in the current row, with matches wrapped in m's markers and an
// ellipsis at either edge that doesn't reach the column's boundary
// (spec.md §4.10).
func Snippet(cur ext.Cursor, col, nToken int, m Markers) (string, error) {
	toks, text, err := tokenize(cur, col)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "", nil
	}
	spans, err := instancesInColumn(cur, col)
	if err != nil {
		return "", err
	}
	n := nToken
	if n > len(toks) {
		n = len(toks)
	}
	start := bestWindow(len(toks), n, spans)
	return render(text, toks, spans, start, start+n, m), nil
}

// Highlight returns column col's full text with every coalesced match
// span wrapped in m's markers (spec.md §4.10): re-tokenize, then emit
// open/close around each coalesced range.
func Highlight(cur ext.Cursor, col int, m Markers) (string, error) {
	toks, text, err := tokenize(cur, col)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return text, nil
	}
	spans, err := instancesInColumn(cur, col)
	if err != nil {
		return "", err
	}
	return render(text, toks, spans, 0, len(toks), m), nil
}
