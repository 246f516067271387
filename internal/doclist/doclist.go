// Package doclist encodes and decodes the (rowid, poslist) sequence that
// backs every term in the index: pending-hash entries, on-disk leaf
// payloads and the in-memory lists produced by merges all share this
// wire format (spec.md §3):
//
//	varint(firstRowid) poslist { varint(rowidDelta>0) poslist } 0x00
//
// A poslist is itself `varint(nBytes*2 + deleteFlag) body`, so a reader
// can skip a row's position data without parsing it (spec.md §4.6) just
// by reading the size prefix.
package doclist

import (
	"github.com/tursodatabase/go-fts5/internal/poslist"
	"github.com/tursodatabase/go-fts5/internal/varint"
)

// Entry is one row's contribution to a term's doclist.
type Entry struct {
	Rowid     int64
	Positions []poslist.Position
	Delete    bool // true if this entry is a tombstone (nPos == 0 logically)
}

// AppendEntry appends one entry to a doclist under construction. first
// must be true only for the very first entry written to dst (encoded as
// an absolute rowid); every later call encodes the delta from the
// previous rowid, which the caller supplies.
func AppendEntry(dst []byte, prevRowid int64, first bool, e Entry) []byte {
	if first {
		dst, _ = varint.Write(dst, uint64(e.Rowid))
	} else {
		delta := e.Rowid - prevRowid
		dst, _ = varint.Write(dst, uint64(delta))
	}
	body := poslist.AppendBody(nil, e.Positions)
	sizeFlag := uint64(len(body)) << 1
	if e.Delete {
		sizeFlag |= 1
	}
	dst, _ = varint.Write(dst, sizeFlag)
	dst = append(dst, body...)
	return dst
}

// AppendTerminator appends the 0x00 byte that ends a doclist.
func AppendTerminator(dst []byte) []byte {
	return append(dst, 0x00)
}

// Reader walks a fully in-memory doclist (one that does not span page
// boundaries — pending-hash entries and small merged lists).
type Reader struct {
	data    []byte
	off     int
	rowid   int64
	started bool
	done    bool
}

// NewReader returns a Reader over a doclist body.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Next returns the next entry, or ok=false once the terminator is
// reached or the buffer is exhausted.
func (r *Reader) Next() (Entry, bool) {
	if r.done || r.off >= len(r.data) {
		return Entry{}, false
	}
	v, n := varint.Read(r.data[r.off:])
	if n == 0 || v == 0 {
		r.done = true
		return Entry{}, false
	}
	r.off += n
	if !r.started {
		r.rowid = int64(v)
		r.started = true
	} else {
		r.rowid += int64(v)
	}

	sizeFlag, n2 := varint.Read(r.data[r.off:])
	r.off += n2
	nBytes := int(sizeFlag >> 1)
	del := sizeFlag&1 != 0
	end := r.off + nBytes
	if end > len(r.data) {
		end = len(r.data)
	}
	body := r.data[r.off:end]
	r.off = end

	return Entry{Rowid: r.rowid, Positions: poslist.Decode(body), Delete: del}, true
}

// Offset returns the reader's current byte offset into data. Once Next
// has returned ok=false because it consumed the terminator, Offset
// points just past it, at the start of whatever follows the doclist on
// a leaf payload.
func (r *Reader) Offset() int {
	if r.done && r.off < len(r.data) {
		return r.off + 1
	}
	return r.off
}

// Done reports whether Next stopped because it consumed the doclist's
// terminating 0x00 byte. A doclist whose tail was sliced onto a
// continuation leaf (spec.md §3) instead runs out of data without ever
// seeing a terminator, leaving Done false — the signal a segment
// iterator uses to know it must follow the next leaf rather than treat
// the term as finished.
func (r *Reader) Done() bool { return r.done }

// NewContinuationReader returns a Reader resuming a doclist whose tail
// was split onto a new leaf (spec.md §3 "Doclist-index"): data opens
// directly with a rowid-delta varint rather than an absolute first
// rowid, decoded against prevRowid, the last rowid read before the
// split.
func NewContinuationReader(data []byte, prevRowid int64) *Reader {
	return &Reader{data: data, rowid: prevRowid, started: true}
}

// FirstDelta peeks the rowid-delta varint opening a doclist
// continuation's data without constructing a Reader, for callers (a
// dlidx-guided seek) that already know the leaf's absolute first rowid
// and only need to recover the running total it was encoded against.
// ok is false if data is empty or the varint is corrupt.
func FirstDelta(data []byte) (delta int64, ok bool) {
	v, n := varint.Read(data)
	if n == 0 {
		return 0, false
	}
	return int64(v), true
}

// Decode materializes an entire doclist. Used by tests and by small,
// fully in-memory merges (the pending hash, prefix-index assembly).
func Decode(data []byte) []Entry {
	r := NewReader(data)
	var out []Entry
	for {
		e, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

// Build serializes a full set of entries (already sorted ascending by
// rowid) into a terminated doclist.
func Build(entries []Entry) []byte {
	var dst []byte
	var prev int64
	for i, e := range entries {
		dst = AppendEntry(dst, prev, i == 0, e)
		prev = e.Rowid
	}
	return AppendTerminator(dst)
}
