package tokenizer

import "github.com/surgebase/porter2"

// Porter wraps Simple and stems each token with the Porter2 algorithm
// (github.com/surgebase/porter2), the same dependency the eutils/edirect
// reference repo uses for English term stemming.
type Porter struct {
	base *Simple
}

// NewPorter returns a tokenizer that case-folds, splits and stems.
func NewPorter() *Porter {
	return &Porter{base: NewSimple()}
}

func (p *Porter) Name() string { return "porter" }

// Tokenize implements Tokenizer. Offsets and positions are preserved
// from the underlying simple tokenization; only Term is rewritten to its
// stem, so highlighting and snippeting (which re-tokenize to recover
// byte ranges) still see accurate spans.
func (p *Porter) Tokenize(text string) ([]Token, error) {
	toks, err := p.base.Tokenize(text)
	if err != nil {
		return nil, err
	}
	for i := range toks {
		toks[i].Term = porter2.Stem(toks[i].Term)
	}
	return toks, nil
}
