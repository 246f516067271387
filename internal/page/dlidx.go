package page

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/varint"
)

// DlidxEntry is one (leaf page, first rowid on that leaf) pair recorded
// by a doclist-index page.
type DlidxEntry struct {
	Pgno  uint32
	Rowid int64
}

// DlidxPage is a decoded doclist-index page: a mini B-tree accelerating
// rowid seeks into a doclist that spans many leaves (spec.md §3).
type DlidxPage struct {
	NotRoot bool
	Entries []DlidxEntry // Entries[0].Pgno is firstLeafPgno; pgnos are consecutive
}

// Encode serializes the page: `byte(flags) varint(firstLeafPgno)
// varint(firstRowid) { varint(delta) } 0x00`. Deltas are biased by +2,
// the same trick poslist.AppendBody uses, so a delta of 0 never collides
// with the 0x00 page terminator.
func (p *DlidxPage) Encode() []byte {
	var flags byte
	if p.NotRoot {
		flags = 1
	}
	dst := []byte{flags}
	if len(p.Entries) == 0 {
		dst, _ = varint.Write(dst, 0)
		dst, _ = varint.Write(dst, 0)
		return append(dst, 0x00)
	}
	dst, _ = varint.Write(dst, uint64(p.Entries[0].Pgno))
	dst, _ = varint.Write(dst, uint64(p.Entries[0].Rowid))
	prevRowid := p.Entries[0].Rowid
	for _, e := range p.Entries[1:] {
		delta := e.Rowid - prevRowid
		dst, _ = varint.Write(dst, uint64(delta)+2)
		prevRowid = e.Rowid
	}
	return append(dst, 0x00)
}

// DecodeDlidxPage parses a page previously produced by Encode.
func DecodeDlidxPage(data []byte) (*DlidxPage, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("page: empty dlidx page")
	}
	p := &DlidxPage{NotRoot: data[0]&1 != 0}
	off := 1

	firstPgno, n := varint.Read(data[off:])
	if n == 0 {
		return nil, fmt.Errorf("page: corrupt dlidx firstLeafPgno")
	}
	off += n
	firstRowid, n := varint.Read(data[off:])
	if n == 0 {
		return nil, fmt.Errorf("page: corrupt dlidx firstRowid")
	}
	off += n

	p.Entries = append(p.Entries, DlidxEntry{Pgno: uint32(firstPgno), Rowid: int64(firstRowid)})
	pgno := uint32(firstPgno)
	rowid := int64(firstRowid)
	for off < len(data) {
		if data[off] == 0x00 {
			off++
			break
		}
		v, n := varint.Read(data[off:])
		if n == 0 {
			return nil, fmt.Errorf("page: corrupt dlidx delta at offset %d", off)
		}
		off += n
		pgno++
		rowid += int64(v) - 2
		p.Entries = append(p.Entries, DlidxEntry{Pgno: pgno, Rowid: rowid})
	}
	return p, nil
}
