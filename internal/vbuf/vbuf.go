// Package vbuf implements an append-only, capacity-doubling byte buffer
// with a sticky error status. No other package in this module imports
// it; the segment writer builds its pages with plain byte slices.
//
// Once a Buffer's status is set, every subsequent append is a silent
// no-op; the accumulated error surfaces the next time the caller checks
// Err. This lets long encoding call-chains (prefix-compress a term,
// append a doclist, append a position list, ...) skip a per-call error
// check and instead check once at the end, mirroring the sticky-status
// pattern spec'd for the original C builders.
package vbuf

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/varint"
)

// Buffer is a growable, append-only byte slice that remembers the first
// error it encountered.
type Buffer struct {
	b   []byte
	err error
}

// New returns an empty Buffer with capacity hint n.
func New(n int) *Buffer {
	return &Buffer{b: make([]byte, 0, n)}
}

// Wrap adapts an existing slice for in-place growth.
func Wrap(b []byte) *Buffer {
	return &Buffer{b: b}
}

// Err returns the sticky error, if any.
func (bu *Buffer) Err() error { return bu.err }

// Fail marks the buffer as failed with err, if not already failed.
func (bu *Buffer) Fail(err error) {
	if bu.err == nil {
		bu.err = err
	}
}

// Bytes returns the accumulated buffer. The result aliases internal
// storage and must not be retained across further writes.
func (bu *Buffer) Bytes() []byte { return bu.b }

// Len returns the number of valid bytes written so far.
func (bu *Buffer) Len() int { return len(bu.b) }

// Reset empties the buffer and clears its status, retaining capacity.
func (bu *Buffer) Reset() {
	bu.b = bu.b[:0]
	bu.err = nil
}

// Grow ensures capacity for n more bytes without changing Len.
func (bu *Buffer) Grow(n int) {
	if bu.err != nil {
		return
	}
	if cap(bu.b)-len(bu.b) >= n {
		return
	}
	grown := make([]byte, len(bu.b), growCap(cap(bu.b), len(bu.b)+n))
	copy(grown, bu.b)
	bu.b = grown
}

// growCap doubles capacity until it covers need, the same amortized
// strategy append() itself uses, made explicit so Grow can be called
// ahead of several back-to-back appends.
func growCap(have, need int) int {
	if have == 0 {
		have = 64
	}
	for have < need {
		have *= 2
	}
	return have
}

// AppendBlob appends raw bytes.
func (bu *Buffer) AppendBlob(p []byte) {
	if bu.err != nil {
		return
	}
	bu.b = append(bu.b, p...)
}

// AppendByte appends a single byte.
func (bu *Buffer) AppendByte(c byte) {
	if bu.err != nil {
		return
	}
	bu.b = append(bu.b, c)
}

// AppendVarint appends v in the host varint encoding.
func (bu *Buffer) AppendVarint(v uint64) {
	if bu.err != nil {
		return
	}
	bu.b, _ = varint.Write(bu.b, v)
}

// AppendPrintf appends a formatted string.
func (bu *Buffer) AppendPrintf(format string, args ...any) {
	if bu.err != nil {
		return
	}
	bu.b = append(bu.b, fmt.Sprintf(format, args...)...)
}

// Set replaces the buffer contents wholesale.
func (bu *Buffer) Set(p []byte) {
	if bu.err != nil {
		return
	}
	bu.b = append(bu.b[:0], p...)
}

// Zero appends n zero bytes.
func (bu *Buffer) Zero(n int) {
	if bu.err != nil {
		return
	}
	start := len(bu.b)
	bu.Grow(n)
	bu.b = bu.b[:start+n]
	for i := start; i < start+n; i++ {
		bu.b[i] = 0
	}
}

// Free releases the backing array. The Buffer is unusable afterwards.
func (bu *Buffer) Free() {
	bu.b = nil
}
