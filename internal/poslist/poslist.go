// Package poslist encodes and decodes per-row position lists: the set of
// (column, offset) pairs at which a term occurs within one row.
//
// Wire format (see spec.md §3/§4.1): a sequence of varints. A plain varint
// v >= 2 carries an offset: v-2 is the offset itself if it is the first
// offset emitted since the last column switch, otherwise v-2 is the delta
// from the previous offset in the same column. The reserved value 1
// introduces a column switch (followed by varint(newColumn)); the
// reserved value 0 is never emitted mid-list by this package (list end is
// signaled by length, not by an in-band terminator, except where doclist
// framing requires it — see internal/doclist).
package poslist

import "github.com/tursodatabase/go-fts5/internal/varint"

// Position packs a (column, offset) pair into a single comparable value,
// ordered the same way (col, offset) pairs compare lexicographically.
type Position uint64

// Pack builds a Position from a column index and a token offset.
func Pack(col, offset uint32) Position {
	return Position(uint64(col)<<32 | uint64(offset))
}

// Col returns the column component.
func (p Position) Col() uint32 { return uint32(p >> 32) }

// Offset returns the offset component.
func (p Position) Offset() uint32 { return uint32(p) }

const (
	markerSwitchColumn = 1
)

// AppendBody appends the wire encoding of positions (which must already be
// sorted ascending by (col, offset)) to dst and returns the extended
// slice. It does not append the doclist-level 0x00 terminator or the
// leading size prefix; callers that need those compose them separately
// (see internal/doclist), since the size prefix must be computed from the
// encoded length before it can be written.
func AppendBody(dst []byte, positions []Position) []byte {
	curCol := uint32(0)
	var lastOffset uint32
	firstInRun := true
	for i, p := range positions {
		col, off := p.Col(), p.Offset()
		switchedColumn := col != curCol
		if i == 0 {
			switchedColumn = col != 0
		}
		if switchedColumn {
			dst = append(dst, byte(markerSwitchColumn))
			dst, _ = varint.Write(dst, uint64(col))
			firstInRun = true
		}
		curCol = col
		if firstInRun {
			dst, _ = varint.Write(dst, uint64(off)+2)
			firstInRun = false
		} else {
			dst, _ = varint.Write(dst, uint64(off-lastOffset)+2)
		}
		lastOffset = off
	}
	return dst
}

// Reader walks a position-list body, collapsing column-switch markers
// into fully-resolved Positions so callers never see the 0x01/varint(col)
// pair directly.
type Reader struct {
	data       []byte
	off        int
	col        uint32
	lastOffset uint32
	firstInRun bool
	started    bool
}

// NewReader returns a Reader over a position-list body of exactly n
// bytes (the caller slices this out of a doclist using the decoded size
// prefix).
func NewReader(data []byte) *Reader {
	return &Reader{data: data, firstInRun: true}
}

// Next returns the next position and true, or ok=false once the body is
// exhausted.
func (r *Reader) Next() (Position, bool) {
	for r.off < len(r.data) {
		v, n := varint.Read(r.data[r.off:])
		if n == 0 {
			return 0, false
		}
		r.off += n
		if v == markerSwitchColumn {
			col, n2 := varint.Read(r.data[r.off:])
			r.off += n2
			r.col = uint32(col)
			r.firstInRun = true
			continue
		}
		off := uint32(v - 2)
		if !r.firstInRun {
			off = r.lastOffset + uint32(v-2)
		}
		r.firstInRun = false
		r.lastOffset = off
		r.started = true
		return Pack(r.col, off), true
	}
	return 0, false
}

// Decode materializes every position in a body. Used by tests and by
// callers (snippet/highlight) that want random access to the full list.
func Decode(data []byte) []Position {
	r := NewReader(data)
	out := make([]Position, 0, len(data)/2)
	for {
		p, ok := r.Next()
		if !ok {
			break
		}
		out = append(out, p)
	}
	return out
}
