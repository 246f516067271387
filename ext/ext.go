// Package ext implements the auxiliary-function extension API (spec.md
// §4.9): the stable, narrow surface every ranking or snippet function
// (bm25, snippet, highlight, or a host-registered custom function) sees
// of the query currently running, plus per-query auxiliary-data
// storage.
//
// spec.md §9 flags the source's global registry of open cursors,
// keyed by an opaque id, as needing re-architecture; this package
// follows that note by passing a *QueryState explicitly to every
// function invocation instead of looking one up by id.
package ext

import (
	"github.com/tursodatabase/go-fts5/internal/poslist"
)

// Cursor is the read-only view of the current query a Context wraps.
// The top-level fts5 package's Cursor type implements this.
type Cursor interface {
	// ColumnCount returns the number of indexed columns.
	ColumnCount() int
	// RowCount returns the total number of rows ever inserted, minus
	// deletions (averages.nRow).
	RowCount() (int64, error)
	// ColumnTotalSize returns the sum of token counts for col across
	// every row, or every column if col < 0.
	ColumnTotalSize(col int) (int64, error)
	// ColumnAvgSize returns ColumnTotalSize(col) / RowCount(), the
	// average document length bm25 needs.
	ColumnAvgSize(col int) (float64, error)
	// Tokenize runs the index's configured tokenizer over text,
	// invoking cb once per token with its byte offsets.
	Tokenize(text string, cb func(token string, start, end int) error) error
	// PhraseCount returns the number of phrases in the current MATCH
	// expression.
	PhraseCount() int
	// PhraseSize returns the number of tokens in the iPhrase'th phrase.
	PhraseSize(iPhrase int) int
	// Rowid returns the current row's id.
	Rowid() int64
	// ColumnText returns the original text of col for the current row
	// (requires the index not be in external-content mode, or a host
	// that still exposes the column).
	ColumnText(col int) (string, error)
	// ColumnSize returns the token count of col for the current row.
	ColumnSize(col int) (int64, error)
	// InstCount returns the number of phrase-match instances for the
	// current row.
	InstCount() (int, error)
	// Inst returns the iInst'th match instance: which phrase matched,
	// in which column, at which token offset.
	Inst(iInst int) (phrase, col, tokenOff int, err error)
	// Poslist returns the position list for the iPhrase'th phrase's
	// match in the current row.
	Poslist(iPhrase int) ([]poslist.Position, error)
	// QueryPhrase runs a nested MATCH of the iPhrase'th phrase alone,
	// invoking cb once per matching row with a Cursor positioned on
	// that row. Used by bm25 to count document frequency.
	QueryPhrase(iPhrase int, cb func(Cursor) error) error
}

// auxSlot holds one function's per-query auxiliary data plus its
// destructor, run when the owning QueryState closes.
type auxSlot struct {
	value   any
	destroy func(any)
}

// QueryState is the per-query state a Context's SetAuxdata/GetAuxdata
// read and write: one slot per extension-function name, replacing the
// source's global cursor-keyed registry (spec.md §9).
type QueryState struct {
	slots map[string]auxSlot
}

// NewQueryState returns an empty QueryState for one query's lifetime.
func NewQueryState() *QueryState {
	return &QueryState{slots: make(map[string]auxSlot)}
}

func (qs *QueryState) set(name string, value any, destroy func(any)) {
	if old, ok := qs.slots[name]; ok && old.destroy != nil {
		old.destroy(old.value)
	}
	qs.slots[name] = auxSlot{value: value, destroy: destroy}
}

func (qs *QueryState) get(name string) (any, bool) {
	s, ok := qs.slots[name]
	if !ok {
		return nil, false
	}
	return s.value, true
}

// Close runs every stored slot's destructor, in unspecified order. Call
// once when the owning cursor closes.
func (qs *QueryState) Close() {
	for _, s := range qs.slots {
		if s.destroy != nil {
			s.destroy(s.value)
		}
	}
	qs.slots = nil
}

// Context is the vtable handed to one auxiliary-function invocation
// (spec.md §4.9): a Cursor plus this function's own auxdata slot,
// scoped by name so several aux functions can share one query's
// QueryState without colliding.
type Context struct {
	Cursor Cursor
	name   string
	state  *QueryState
}

// NewContext builds the invocation context for the extension function
// named name, backed by cur and state.
func NewContext(name string, cur Cursor, state *QueryState) *Context {
	return &Context{Cursor: cur, name: name, state: state}
}

// SetAuxdata stores one value for this function for the remainder of
// the query; destroy (if non-nil) runs when the query's cursor closes
// or a later call to SetAuxdata replaces the value.
func (c *Context) SetAuxdata(value any, destroy func(any)) {
	c.state.set(c.name, value, destroy)
}

// GetAuxdata retrieves this function's previously stored value, if any.
func (c *Context) GetAuxdata() (any, bool) {
	return c.state.get(c.name)
}

// Func is one registered auxiliary/ranking function's implementation.
// It returns the function's result for the current row (a rank score,
// a snippet string, ...).
type Func func(ctx *Context) (any, error)

// Registry maps extension-function names (as named in a `rank=...`
// directive or invoked explicitly) to their implementations — the
// counterpart of the source's xCreateFunction registration.
type Registry struct {
	fns map[string]Func
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{fns: make(map[string]Func)}
}

// Register adds or replaces the function named name.
func (r *Registry) Register(name string, fn Func) {
	r.fns[name] = fn
}

// Lookup returns the function registered as name, if any.
func (r *Registry) Lookup(name string) (Func, bool) {
	fn, ok := r.fns[name]
	return fn, ok
}

// Invoke runs the named function against cur, scoping its auxdata to
// state.
func (r *Registry) Invoke(name string, cur Cursor, state *QueryState) (any, error) {
	fn, ok := r.fns[name]
	if !ok {
		return nil, &ErrUnknownFunction{Name: name}
	}
	return fn(NewContext(name, cur, state))
}

// ErrUnknownFunction reports a call to a function name never
// registered.
type ErrUnknownFunction struct{ Name string }

func (e *ErrUnknownFunction) Error() string {
	return "ext: unknown function " + e.Name
}
