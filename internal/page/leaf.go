// Package page implements the on-disk binary layouts of spec.md §3/§4.4:
// leaf pages, interior (B-tree) nodes and doclist-index pages, plus the
// prefix-compressed term/doclist group encoding leaves carry.
package page

import (
	"encoding/binary"
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/varint"
)

// HeaderSize is the fixed two-u16-field leaf page header size.
const HeaderSize = 4

// Leaf is one decoded leaf page: `[u16 iFirstRowid][u16 iFirstTerm][payload]`.
type Leaf struct {
	// FirstRowidOffset is the byte offset within Payload of the first
	// rowid on the page, or 0 if the page starts with a term header
	// (no doclist continuation carried over from the previous page).
	FirstRowidOffset uint16
	// FirstTermOffset is the page-absolute byte offset of the first
	// term header (HeaderSize when the payload opens with one), or 0 if
	// the page opens mid-doclist (a continuation of the previous page's
	// last term).
	FirstTermOffset uint16
	Payload         []byte
}

// Encode serializes the page.
func (l *Leaf) Encode() []byte {
	buf := make([]byte, HeaderSize+len(l.Payload))
	binary.BigEndian.PutUint16(buf[0:2], l.FirstRowidOffset)
	binary.BigEndian.PutUint16(buf[2:4], l.FirstTermOffset)
	copy(buf[HeaderSize:], l.Payload)
	return buf
}

// DecodeLeaf parses a page previously produced by Encode.
func DecodeLeaf(data []byte) (*Leaf, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("page: leaf shorter than header (%d bytes)", len(data))
	}
	return &Leaf{
		FirstRowidOffset: binary.BigEndian.Uint16(data[0:2]),
		FirstTermOffset:  binary.BigEndian.Uint16(data[2:4]),
		Payload:          data[HeaderSize:],
	}, nil
}

// TermGroup is one term and its associated doclist bytes (produced by
// internal/doclist), to be laid out on a leaf page.
type TermGroup struct {
	Term    []byte
	Doclist []byte
}

// commonPrefixLen returns the number of leading bytes a and b share.
func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// BuildLeafPayload lays out groups (already in ascending term order) onto
// a single page's payload, uncompressing the first term and
// prefix-compressing every subsequent one against its immediate
// predecessor on the same page (spec.md §3 "Term/doclist group").
//
// It returns the payload bytes and the page-absolute offset of the first
// term header (HeaderSize, since the header always precedes the
// payload) if groups is non-empty. Continuation pages, which open
// mid-doclist and carry no term header of their own, are assembled
// separately by the segment writer and report FirstTermOffset 0.
func BuildLeafPayload(groups []TermGroup) (payload []byte, firstTermOffset uint16) {
	var prev []byte
	for i, g := range groups {
		if i == 0 {
			payload, _ = varint.Write(payload, uint64(len(g.Term)))
			payload = append(payload, g.Term...)
		} else {
			nPrefix := commonPrefixLen(prev, g.Term)
			suffix := g.Term[nPrefix:]
			payload, _ = varint.Write(payload, uint64(nPrefix))
			payload, _ = varint.Write(payload, uint64(len(suffix)))
			payload = append(payload, suffix...)
		}
		payload = append(payload, g.Doclist...)
		prev = g.Term
	}
	if len(groups) > 0 {
		firstTermOffset = HeaderSize
	}
	return payload, firstTermOffset
}

// TermGroupReader walks the term/doclist groups written by
// BuildLeafPayload, reconstructing each full term from its prefix
// compression against the previous one.
type TermGroupReader struct {
	data []byte
	off  int
	prev []byte
	err  error
}

// NewTermGroupReader begins reading groups from a payload-relative
// offset (a Leaf's FirstTermOffset minus HeaderSize, or 0 for the start
// of the payload). Pass first == true when the group at off is
// uncompressed (every page's first term); pass first == false with
// seedTerm set to the term active at off otherwise.
func NewTermGroupReader(payload []byte, off int, first bool, seedTerm []byte) *TermGroupReader {
	r := &TermGroupReader{data: payload, off: off}
	if !first {
		r.prev = seedTerm
	}
	return r
}

// Err returns the first decoding error encountered, if any.
func (r *TermGroupReader) Err() error { return r.err }

// Next decodes the next term/doclist group, returning ok=false once the
// payload is exhausted.
func (r *TermGroupReader) Next() (term []byte, doclistStart int, ok bool) {
	if r.err != nil || r.off >= len(r.data) {
		return nil, 0, false
	}
	if r.prev == nil {
		nTerm, n := varint.Read(r.data[r.off:])
		if n == 0 {
			r.err = fmt.Errorf("page: corrupt term length varint at offset %d", r.off)
			return nil, 0, false
		}
		r.off += n
		end := r.off + int(nTerm)
		if end > len(r.data) {
			r.err = fmt.Errorf("page: term length %d overruns payload", nTerm)
			return nil, 0, false
		}
		term = r.data[r.off:end]
		r.off = end
	} else {
		nPrefix, n1 := varint.Read(r.data[r.off:])
		if n1 == 0 {
			r.err = fmt.Errorf("page: corrupt nPrefix varint at offset %d", r.off)
			return nil, 0, false
		}
		r.off += n1
		nSuffix, n2 := varint.Read(r.data[r.off:])
		if n2 == 0 {
			r.err = fmt.Errorf("page: corrupt nSuffix varint at offset %d", r.off)
			return nil, 0, false
		}
		r.off += n2
		if int(nPrefix) > len(r.prev) {
			r.err = fmt.Errorf("page: nPrefix %d exceeds previous term length %d", nPrefix, len(r.prev))
			return nil, 0, false
		}
		end := r.off + int(nSuffix)
		if end > len(r.data) {
			r.err = fmt.Errorf("page: suffix length %d overruns payload", nSuffix)
			return nil, 0, false
		}
		suffix := r.data[r.off:end]
		r.off = end
		full := make([]byte, 0, int(nPrefix)+len(suffix))
		full = append(full, r.prev[:nPrefix]...)
		full = append(full, suffix...)
		term = full
	}
	r.prev = term
	return term, r.off, true
}

// Offset returns the reader's current byte offset within the payload.
func (r *TermGroupReader) Offset() int { return r.off }

// Advance moves the reader past n bytes of doclist body that the caller
// has consumed (e.g. via doclist.NewReader), positioning it at the next
// term header.
func (r *TermGroupReader) Advance(n int) { r.off += n }
