package page

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/varint"
)

// InteriorEntry is one entry of an interior (B-tree) node: either a
// run-of-empty-leaves marker (only valid at height 1) or a term
// separating two children.
type InteriorEntry struct {
	NoTerm       bool
	DlidxPresent bool   // only meaningful when NoTerm
	NEmptyLeaves uint64 // only meaningful when NoTerm
	Term         []byte // full (decompressed) separator term; only when !NoTerm
}

// InteriorNode is a fully decoded interior B-tree node (spec.md §3).
type InteriorNode struct {
	LeftmostChild uint32
	Entries       []InteriorEntry
}

// Encode serializes the node. Separator terms are prefix-compressed
// against the previous separator term on the node; NoTerm entries do not
// participate in (and do not reset) that prefix chain.
func (n *InteriorNode) Encode() []byte {
	var dst []byte
	dst, _ = varint.Write(dst, uint64(n.LeftmostChild))

	var prev []byte
	for _, e := range n.Entries {
		if e.NoTerm {
			ctrl := uint64(0)
			if e.DlidxPresent {
				ctrl = 1
			}
			dst, _ = varint.Write(dst, ctrl)
			dst, _ = varint.Write(dst, e.NEmptyLeaves)
			continue
		}
		nPrefix := commonPrefixLen(prev, e.Term)
		suffix := e.Term[nPrefix:]
		dst, _ = varint.Write(dst, uint64(nPrefix)+2)
		dst, _ = varint.Write(dst, uint64(len(suffix)))
		dst = append(dst, suffix...)
		prev = e.Term
	}
	return dst
}

// DecodeInteriorNode parses a node previously produced by Encode.
func DecodeInteriorNode(data []byte) (*InteriorNode, error) {
	n := &InteriorNode{}
	off := 0

	v, nb := varint.Read(data[off:])
	if nb == 0 {
		return nil, fmt.Errorf("page: corrupt leftmost-child varint")
	}
	n.LeftmostChild = uint32(v)
	off += nb

	var prev []byte
	for off < len(data) {
		ctrl, nb := varint.Read(data[off:])
		if nb == 0 {
			return nil, fmt.Errorf("page: corrupt interior entry control varint at offset %d", off)
		}
		off += nb

		if ctrl < 2 {
			nEmpty, nb := varint.Read(data[off:])
			if nb == 0 {
				return nil, fmt.Errorf("page: corrupt nEmptyLeaves varint at offset %d", off)
			}
			off += nb
			n.Entries = append(n.Entries, InteriorEntry{
				NoTerm:       true,
				DlidxPresent: ctrl == 1,
				NEmptyLeaves: nEmpty,
			})
			continue
		}

		nPrefix := ctrl - 2
		nSuffix, nb := varint.Read(data[off:])
		if nb == 0 {
			return nil, fmt.Errorf("page: corrupt nSuffix varint at offset %d", off)
		}
		off += nb
		if int(nPrefix) > len(prev) {
			return nil, fmt.Errorf("page: nPrefix %d exceeds previous term length %d", nPrefix, len(prev))
		}
		end := off + int(nSuffix)
		if end > len(data) {
			return nil, fmt.Errorf("page: suffix length %d overruns node", nSuffix)
		}
		full := make([]byte, 0, int(nPrefix)+int(nSuffix))
		full = append(full, prev[:nPrefix]...)
		full = append(full, data[off:end]...)
		off = end
		n.Entries = append(n.Entries, InteriorEntry{Term: full})
		prev = full
	}
	return n, nil
}
