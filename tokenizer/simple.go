package tokenizer

import (
	"unicode"

	"golang.org/x/text/cases"
)

// Simple splits on runs of non-letter/non-digit runes and case-folds
// with golang.org/x/text/cases, the same Unicode-aware folding the
// go-mizu search blueprint and the eutils reference repo both pull in
// rather than hand-rolling ASCII lower-casing.
type Simple struct {
	caser cases.Caser
}

// NewSimple returns the default simple tokenizer.
func NewSimple() *Simple {
	return &Simple{caser: cases.Fold()}
}

func (s *Simple) Name() string { return "simple" }

// Tokenize implements Tokenizer.
func (s *Simple) Tokenize(text string) ([]Token, error) {
	var toks []Token
	runes := []rune(text)
	byteOff := make([]int, len(runes)+1)
	off := 0
	for i, r := range runes {
		byteOff[i] = off
		off += runeLen(r)
	}
	byteOff[len(runes)] = off

	var pos uint32
	i := 0
	for i < len(runes) {
		if !isTokenRune(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && isTokenRune(runes[i]) {
			i++
		}
		raw := string(runes[start:i])
		toks = append(toks, Token{
			Term:  s.caser.String(raw),
			Start: byteOff[start],
			End:   byteOff[i],
			Pos:   pos,
		})
		pos++
	}
	return toks, nil
}

func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func runeLen(r rune) int {
	switch {
	case r < 0x80:
		return 1
	case r < 0x800:
		return 2
	case r < 0x10000:
		return 3
	default:
		return 4
	}
}
