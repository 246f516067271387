// Package tokenizer defines the pluggable contract an index's tokenizer
// binding must satisfy (spec.md §2/§6 "tokenizer contract") and ships two
// built-ins: simple and porter.
//
// A tokenizer's job is purely to split a column's text into tokens
// carrying byte offsets and a sequence position; the tokenizer registry
// that maps a name to an implementation, and any SQL-level
// tokenize-argument parsing, are host concerns out of this module's
// scope (spec.md §1).
package tokenizer

// Token is one (term, byte-range, position) unit produced by a
// Tokenizer.
type Token struct {
	Term  string // normalized term bytes, what gets indexed
	Start int    // byte offset of the token in the source text
	End   int    // end byte offset (exclusive)
	Pos   uint32 // 0-based sequence position within the column
}

// Tokenizer splits column text into tokens. Implementations must be safe
// for concurrent use by multiple read cursors; the host serializes
// writers (spec.md §5), so Tokenize is never called concurrently with
// itself for the same column during indexing, but ranking/snippet code
// may re-tokenize a column from a read path while other reads proceed.
type Tokenizer interface {
	Name() string
	Tokenize(text string) ([]Token, error)
}

// registry is the small, in-process set of built-ins this module ships.
// It is intentionally not the "tokenizer registry" spec.md treats as an
// external collaborator: hosts that want additional tokenizers register
// them by implementing Tokenizer and passing an instance directly to
// config.WithTokenizer, bypassing this map.
var registry = map[string]func(args ...string) (Tokenizer, error){
	"simple": func(args ...string) (Tokenizer, error) { return NewSimple(), nil },
	"porter": func(args ...string) (Tokenizer, error) { return NewPorter(), nil },
}

// Lookup resolves a built-in tokenizer by name, the same "name args..."
// shape spec.md §6 describes for the tokenize= configuration directive.
func Lookup(name string, args ...string) (Tokenizer, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, &UnknownTokenizerError{Name: name}
	}
	return ctor(args...)
}

// UnknownTokenizerError is returned by Lookup for an unregistered name.
type UnknownTokenizerError struct{ Name string }

func (e *UnknownTokenizerError) Error() string {
	return "tokenizer: unknown tokenizer " + e.Name
}
