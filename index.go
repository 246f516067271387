// Package fts5 ties the storage, query, extension and ranking packages
// together into the index handle a host program actually opens: create
// or connect to a table definition, insert/update/delete rows, run
// queries, and perform the maintenance operations (optimize,
// integrity-check) spec.md §6 exposes as the virtual-table surface.
//
// The SQL virtual-table dispatch itself, its query planner and its
// MATCH expression parser are out of scope (spec.md §1); this package
// is what that dispatch layer would call into, so every operation here
// takes its arguments as plain Go values instead of SQL text.
package fts5

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/tursodatabase/go-fts5/config"
	"github.com/tursodatabase/go-fts5/ext"
	"github.com/tursodatabase/go-fts5/internal/pending"
	"github.com/tursodatabase/go-fts5/internal/query"
	"github.com/tursodatabase/go-fts5/internal/rowid"
	"github.com/tursodatabase/go-fts5/internal/segment"
	"github.com/tursodatabase/go-fts5/internal/structure"
	"github.com/tursodatabase/go-fts5/internal/writer"
	"github.com/tursodatabase/go-fts5/rank"
	"github.com/tursodatabase/go-fts5/storage"
)

// pendingFlushBytes is the pending hash's size threshold: an Insert or
// Delete that leaves ByteSize() at or above this flushes before it
// returns (spec.md §3:
// "a flush is triggered by size..."). spec.md does not fix an exact
// number; this mirrors a modest page-cache-sized default.
const pendingFlushBytes = 1 << 20

// Option configures an Index at Create or Open time, following the
// teacher's functional-option style (mizu.AppOption/WithLogger).
type Option func(*Index)

// WithLogger overrides the *slog.Logger an Index reports structural
// events to. Each flush of the pending hash is logged at Info; merges,
// promotions and corruption are not logged. The default discards all
// logs.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) { idx.log = l }
}

// Index is one open full-text index: a configuration, a Store and the
// in-memory state (pending hash, structure record, averages record)
// that sits atop it.
type Index struct {
	cfg   *config.Config
	store storage.Store
	log   *slog.Logger

	fetcher   segment.PageFetcher
	sink      writer.PageSink
	idxLookup segment.IndexLookup
	idxSink   writer.IdxSink

	structure *structure.Structure
	averages  *structure.Averages

	pending  *pending.Hash
	qidx     *query.Index
	merger   *writer.Merger
	ext      *ext.Registry
	lastRow  int64
	hasLast  bool
	oplog    []pendingOp
	txStack  []txFrame
	flushGen int
}

func newIndex(store storage.Store, cfg *config.Config, opts []Option) *Index {
	idx := &Index{
		cfg:   cfg,
		store: store,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	idx.fetcher = storage.PageFetcher(store.Data())
	idx.sink = storage.PageSink(store.Data())
	idx.idxLookup = storage.IndexLookup(store.Idx())
	idx.idxSink = store.Idx()
	idx.pending = pending.New()
	idx.qidx = query.NewIndex(idx.fetcher, idx.idxLookup, idx.pending)
	idx.merger = writer.NewMerger(idx.fetcher, idx.idxLookup, idx.sink, idx.idxSink, cfg.PageSize)
	idx.ext = ext.NewRegistry()
	rank.Register(idx.ext)
	for _, o := range opts {
		o(idx)
	}
	return idx
}

// Create initializes a fresh index over store, parsing its table
// definition from opts (spec.md §6's `create`) and persisting the
// initial structure and averages records.
func Create(store storage.Store, opts []config.Option, fopts ...Option) (*Index, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("fts5: %w: %v", ErrError, err)
	}
	idx := newIndex(store, cfg, fopts)

	idx.structure = &structure.Structure{Cookie: cfg.Cookie, Levels: []structure.Level{{}}}
	idx.averages = &structure.Averages{ColumnTokens: make([]int64, len(cfg.Columns))}
	if err := idx.persist(); err != nil {
		return nil, err
	}
	_ = store.Config().Put("rank", cfg.RankName)
	_ = store.Config().Put("pgsz", fmt.Sprint(cfg.PageSize))
	return idx, nil
}

// Open connects to an existing index (spec.md §6's `connect`): opts
// must describe the same schema the table was created with, since the
// column list and tokenizer binding aren't themselves persisted in a
// machine-readable form this package reconstructs — exactly as
// SQLite's own xConnect receives the same CREATE VIRTUAL TABLE argv
// xCreate did. The computed configuration cookie is checked against the
// one stored in the structure record; a mismatch means the schema has
// drifted since the index was created.
func Open(store storage.Store, opts []config.Option, fopts ...Option) (*Index, error) {
	cfg, err := config.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("fts5: %w: %v", ErrError, err)
	}
	idx := newIndex(store, cfg, fopts)

	raw, err := store.Data().Get(rowid.Structure)
	if err != nil {
		return nil, fmt.Errorf("fts5: load structure record: %w", err)
	}
	st, err := structure.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
	}
	if st.Cookie != cfg.Cookie {
		return nil, ErrSchemaMismatch
	}
	idx.structure = st

	avgRaw, err := store.Data().Get(rowid.Averages)
	if err != nil {
		return nil, fmt.Errorf("fts5: load averages record: %w", err)
	}
	avg, err := structure.DecodeAverages(avgRaw, len(cfg.Columns))
	if err != nil {
		return nil, fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
	}
	idx.averages = avg

	return idx, nil
}

// Config returns the index's parsed table definition.
func (idx *Index) Config() *config.Config { return idx.cfg }

// persist writes the structure and averages records to the data table.
// The structure record is written last in any mutating step (spec.md
// §5: "readers cache it only within a cursor's lifetime").
func (idx *Index) persist() error {
	if err := idx.store.Data().Put(rowid.Averages, idx.averages.Encode()); err != nil {
		return fmt.Errorf("fts5: persist averages: %w", err)
	}
	if err := idx.store.Data().Put(rowid.Structure, idx.structure.Encode()); err != nil {
		return fmt.Errorf("fts5: persist structure: %w", err)
	}
	return nil
}

// Close releases the underlying Store. Any unflushed pending postings
// are discarded, matching spec.md §5's treatment of an aborted
// connection.
func (idx *Index) Close() error {
	return idx.store.Close()
}
