// Package config parses and holds one index's table definition: column
// names, prefix-index widths, the tokenizer binding, page size and merge
// thresholds, and the 32-bit configuration cookie (spec.md §3 "Configuration").
package config

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/tursodatabase/go-fts5/tokenizer"
)

const (
	// DefaultPageSize matches spec.md's default leaf page target.
	DefaultPageSize = 1000
	// MaxPageSize is the largest page size spec.md allows.
	MaxPageSize = 128 * 1024

	// DefaultAutomerge is substituted when automerge=1 is requested.
	DefaultAutomerge = 4
	// MaxAutomerge bounds the automerge work-unit width.
	MaxAutomerge = 64

	// DefaultCrisisMerge is the segment count per level that forces a
	// full merge of that level (spec.md §4.8).
	DefaultCrisisMerge = 16

	// MaxPrefixLen is the largest character count a prefix index may be
	// declared over.
	MaxPrefixLen = 999
)

// Config is one index's immutable configuration, parsed once at create
// or connect time.
type Config struct {
	Columns      []string
	PrefixLens   []int // sorted, deduplicated character counts
	TokenizerTag string
	Tokenizer    tokenizer.Tokenizer
	PageSize     int
	Automerge    int // 0 = disabled
	CrisisMerge  int
	RankName     string
	RankArgs     []string
	Cookie       uint32
}

// Option configures a Config, mirroring the teacher's functional-option
// style (mizu.AppOption).
type Option func(*Config) error

// WithColumns sets the ordered column names. At least one is required.
func WithColumns(names ...string) Option {
	return func(c *Config) error {
		if len(names) == 0 {
			return fmt.Errorf("config: at least one column is required")
		}
		seen := make(map[string]bool, len(names))
		for _, n := range names {
			if seen[n] {
				return fmt.Errorf("config: duplicate column %q", n)
			}
			seen[n] = true
		}
		c.Columns = append([]string(nil), names...)
		return nil
	}
}

// WithPrefix declares prefix indexes over the given character counts
// (the prefix='N[,M...]' directive).
func WithPrefix(lens ...int) Option {
	return func(c *Config) error {
		set := make(map[int]bool, len(lens))
		for _, n := range lens {
			if n < 1 || n > MaxPrefixLen {
				return fmt.Errorf("config: prefix length %d out of range [1,%d]", n, MaxPrefixLen)
			}
			set[n] = true
		}
		out := make([]int, 0, len(set))
		for n := range set {
			out = append(out, n)
		}
		sort.Ints(out)
		c.PrefixLens = out
		return nil
	}
}

// WithTokenizer binds a tokenizer by name (resolved via tokenizer.Lookup)
// plus its constructor arguments.
func WithTokenizer(name string, args ...string) Option {
	return func(c *Config) error {
		tk, err := tokenizer.Lookup(name, args...)
		if err != nil {
			return err
		}
		c.TokenizerTag = tagTokenizer(name, args)
		c.Tokenizer = tk
		return nil
	}
}

// WithTokenizerInstance binds an already-constructed tokenizer, for
// hosts that implement their own (spec.md treats the tokenizer registry
// as an external collaborator; this is the escape hatch for it).
func WithTokenizerInstance(tag string, tk tokenizer.Tokenizer) Option {
	return func(c *Config) error {
		if tk == nil {
			return fmt.Errorf("config: nil tokenizer")
		}
		c.TokenizerTag = tag
		c.Tokenizer = tk
		return nil
	}
}

// WithPageSize sets the target leaf page size in bytes.
func WithPageSize(n int) Option {
	return func(c *Config) error {
		if n <= 0 || n > MaxPageSize {
			return fmt.Errorf("config: pgsz %d out of range (0,%d]", n, MaxPageSize)
		}
		c.PageSize = n
		return nil
	}
}

// WithAutomerge sets the automerge work-unit width. 0 disables
// automerge; 1 substitutes DefaultAutomerge.
func WithAutomerge(n int) Option {
	return func(c *Config) error {
		if n < 0 || n > MaxAutomerge {
			return fmt.Errorf("config: automerge %d out of range [0,%d]", n, MaxAutomerge)
		}
		if n == 1 {
			n = DefaultAutomerge
		}
		c.Automerge = n
		return nil
	}
}

// WithCrisisMerge overrides the crisis-merge segment-count threshold.
func WithCrisisMerge(n int) Option {
	return func(c *Config) error {
		if n < 1 {
			return fmt.Errorf("config: crisismerge must be >= 1")
		}
		c.CrisisMerge = n
		return nil
	}
}

// WithRank binds the rank function spec (rank='name(arg,...)').
func WithRank(name string, args ...string) Option {
	return func(c *Config) error {
		c.RankName = name
		c.RankArgs = append([]string(nil), args...)
		return nil
	}
}

// New parses a Config from options, applying defaults for anything left
// unset.
func New(opts ...Option) (*Config, error) {
	c := &Config{
		PageSize:    DefaultPageSize,
		Automerge:   DefaultAutomerge,
		CrisisMerge: DefaultCrisisMerge,
		RankName:    "bm25",
	}
	for _, o := range opts {
		if err := o(c); err != nil {
			return nil, err
		}
	}
	if len(c.Columns) == 0 {
		return nil, fmt.Errorf("config: no columns configured")
	}
	if c.Tokenizer == nil {
		if err := WithTokenizer("simple")(c); err != nil {
			return nil, err
		}
	}
	c.Cookie = computeCookie(c)
	return c, nil
}

// ColumnIndex returns the 0-based index of name, or -1 if absent.
func (c *Config) ColumnIndex(name string) int {
	for i, n := range c.Columns {
		if n == name {
			return i
		}
	}
	return -1
}

// HasPrefix reports whether a prefix index exists for exactly n
// characters.
func (c *Config) HasPrefix(n int) bool {
	for _, p := range c.PrefixLens {
		if p == n {
			return true
		}
	}
	return false
}

// computeCookie derives the 32-bit cookie stored at the head of the
// structure record. Any change to the shape that would make persisted
// segments unreadable (columns, prefix set, page size) changes the
// cookie; the Index compares it against the structure record's on
// load and refuses to open on mismatch (spec.md §3 invariant).
func computeCookie(c *Config) uint32 {
	h := xxhash.New()
	for _, col := range c.Columns {
		h.WriteString(col)
		h.Write([]byte{0})
	}
	for _, p := range c.PrefixLens {
		fmt.Fprintf(h, "p%d;", p)
	}
	fmt.Fprintf(h, "pgsz=%d;tok=%s;", c.PageSize, c.TokenizerTag)
	return uint32(h.Sum64())
}

func tagTokenizer(name string, args []string) string {
	tag := name
	for _, a := range args {
		tag += " " + a
	}
	return tag
}
