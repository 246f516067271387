// fts5_decode/fts5_rowid equivalents: human-readable inspection of the
// persisted record at a given `_data` rowid, and construction of a
// `_data` rowid from its component fields, for debugging and the
// cmd/fts5ctl CLI.
package fts5

import (
	"fmt"
	"strings"

	"github.com/tursodatabase/go-fts5/internal/page"
	"github.com/tursodatabase/go-fts5/internal/rowid"
	"github.com/tursodatabase/go-fts5/internal/structure"
)

// DecodeRecord renders the block stored at rowid r in human-readable
// form: the structure record, the averages record, a doclist-index
// page's entries, an interior node's leftmost child and separator
// terms, or a leaf page's header offsets and payload length, whichever
// r's encoding names. A leaf's terms and rowids are not decoded.
func DecodeRecord(r int64, blob []byte, nCol int) (string, error) {
	switch r {
	case rowid.Averages:
		avg, err := structure.DecodeAverages(blob, nCol)
		if err != nil {
			return "", fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
		}
		return fmt.Sprintf("averages: nRow=%d columnTokens=%v", avg.TotalRowCount, avg.ColumnTokens), nil
	case rowid.Structure:
		st, err := structure.Decode(blob)
		if err != nil {
			return "", fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "structure: cookie=%#08x writeCounter=%d\n", st.Cookie, st.WriteCounter)
		for i, l := range st.Levels {
			fmt.Fprintf(&b, "  level %d: nMerge=%d segments=", i, l.NMerge)
			for j, s := range l.Segments {
				if j > 0 {
					b.WriteString(",")
				}
				fmt.Fprintf(&b, "{id=%d leaves=%d..%d height=%d}", s.ID, s.FirstLeaf, s.LastLeaf, s.Height)
			}
			b.WriteString("\n")
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	segid, dlidx, height, pgno := rowid.Decompose(r)
	if dlidx {
		dp, err := page.DecodeDlidxPage(blob)
		if err != nil {
			return "", fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "dlidx: segid=%d pgno=%d notRoot=%v\n", segid, pgno, dp.NotRoot)
		for _, e := range dp.Entries {
			fmt.Fprintf(&b, "  leaf=%d firstRowid=%d\n", e.Pgno, e.Rowid)
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}
	if height > 0 {
		node, err := page.DecodeInteriorNode(blob)
		if err != nil {
			return "", fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
		}
		var b strings.Builder
		fmt.Fprintf(&b, "interior: segid=%d pgno=%d height=%d leftmostChild=%d\n", segid, pgno, height, node.LeftmostChild)
		for _, e := range node.Entries {
			if e.NoTerm {
				fmt.Fprintf(&b, "  run: nEmptyLeaves=%d dlidx=%v\n", e.NEmptyLeaves, e.DlidxPresent)
			} else {
				fmt.Fprintf(&b, "  term=%q\n", e.Term)
			}
		}
		return strings.TrimRight(b.String(), "\n"), nil
	}

	leaf, err := page.DecodeLeaf(blob)
	if err != nil {
		return "", fmt.Errorf("fts5: %w: %v", ErrCorrupt, err)
	}
	return fmt.Sprintf("leaf: segid=%d pgno=%d firstRowidOffset=%d firstTermOffset=%d payloadLen=%d",
		segid, pgno, leaf.FirstRowidOffset, leaf.FirstTermOffset, len(leaf.Payload)), nil
}

// ComposeRowid builds a `_data` rowid from its component fields (the
// inverse debugging aid to DecodeRecord), or one of the two reserved
// metadata rowids when kind is "averages" or "structure".
func ComposeRowid(kind string, segid uint16, dlidx bool, height uint8, pgno uint32) (int64, error) {
	switch kind {
	case "averages":
		return rowid.Averages, nil
	case "structure":
		return rowid.Structure, nil
	case "page":
		return rowid.Compose(segid, dlidx, height, pgno), nil
	default:
		return 0, fmt.Errorf("fts5: %w: unknown rowid kind %q (want averages, structure, or page)", ErrError, kind)
	}
}
