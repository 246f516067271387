// Package structure implements the structure record and averages record
// (spec.md §3): the root metadata describing levels, segments and the
// write counter, and the per-column token-count snapshot BM25 uses.
//
// spec.md fixes the averages record's wire format exactly but leaves the
// structure record's byte layout unspecified beyond its invariants; this
// package picks a varint-based layout (documented here, see DESIGN.md)
// consistent with every other on-disk structure in this module.
package structure

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/varint"
)

// MaxSegments is the total segment-count ceiling across all levels
// (spec.md §3 invariant).
const MaxSegments = 2000

// MaxSegmentID segment ids live in [1, MaxSegmentID).
const MaxSegmentID = 1 << 16

// Segment describes one immutable on-disk segment.
type Segment struct {
	ID         uint16
	FirstLeaf  uint32 // first leaf page number; may advance after a trim
	LastLeaf   uint32
	Height     uint32 // B-tree height (0 = single leaf, no interior nodes)
}

// Level is one bucket of segments of comparable size.
type Level struct {
	NMerge   int // in-progress merge width, 0 <= NMerge <= len(Segments)
	Segments []Segment // oldest first
}

// Structure is the root metadata record, persisted at the reserved rowid
// 10 (spec.md §3).
type Structure struct {
	Cookie        uint32
	WriteCounter  uint64 // monotone count of level-0 leaves ever produced
	Levels        []Level
}

// NumSegments returns the total segment count across all levels.
func (s *Structure) NumSegments() int {
	n := 0
	for _, l := range s.Levels {
		n += len(l.Segments)
	}
	return n
}

// Validate checks the invariants spec.md §3 lists for the structure
// record.
func (s *Structure) Validate() error {
	if s.NumSegments() > MaxSegments {
		return fmt.Errorf("structure: %d segments exceeds max %d", s.NumSegments(), MaxSegments)
	}
	seen := make(map[uint16]bool)
	for li, l := range s.Levels {
		if l.NMerge < 0 || l.NMerge > len(l.Segments) {
			return fmt.Errorf("structure: level %d has invalid nMerge %d for %d segments", li, l.NMerge, len(l.Segments))
		}
		for _, seg := range l.Segments {
			if seg.ID == 0 {
				return fmt.Errorf("structure: segment id 0 is reserved")
			}
			if seen[seg.ID] {
				return fmt.Errorf("structure: duplicate segment id %d", seg.ID)
			}
			seen[seg.ID] = true
		}
	}
	return nil
}

// Encode serializes the structure record.
func (s *Structure) Encode() []byte {
	var dst []byte
	dst, _ = varint.Write(dst, uint64(s.Cookie))
	dst, _ = varint.Write(dst, s.WriteCounter)
	dst, _ = varint.Write(dst, uint64(len(s.Levels)))
	for _, l := range s.Levels {
		dst, _ = varint.Write(dst, uint64(l.NMerge))
		dst, _ = varint.Write(dst, uint64(len(l.Segments)))
		for _, seg := range l.Segments {
			dst, _ = varint.Write(dst, uint64(seg.ID))
			dst, _ = varint.Write(dst, uint64(seg.FirstLeaf))
			dst, _ = varint.Write(dst, uint64(seg.LastLeaf))
			dst, _ = varint.Write(dst, uint64(seg.Height))
		}
	}
	return dst
}

// Decode parses a structure record previously produced by Encode.
func Decode(data []byte) (*Structure, error) {
	s := &Structure{}
	off := 0
	read := func() (uint64, error) {
		if off >= len(data) {
			return 0, fmt.Errorf("structure: truncated record")
		}
		v, n := varint.Read(data[off:])
		if n == 0 {
			return 0, fmt.Errorf("structure: corrupt varint at offset %d", off)
		}
		off += n
		return v, nil
	}

	cookie, err := read()
	if err != nil {
		return nil, err
	}
	s.Cookie = uint32(cookie)

	s.WriteCounter, err = read()
	if err != nil {
		return nil, err
	}

	nLevel, err := read()
	if err != nil {
		return nil, err
	}
	s.Levels = make([]Level, 0, nLevel)
	for li := uint64(0); li < nLevel; li++ {
		nMerge, err := read()
		if err != nil {
			return nil, err
		}
		nSeg, err := read()
		if err != nil {
			return nil, err
		}
		segs := make([]Segment, 0, nSeg)
		for si := uint64(0); si < nSeg; si++ {
			id, err := read()
			if err != nil {
				return nil, err
			}
			first, err := read()
			if err != nil {
				return nil, err
			}
			last, err := read()
			if err != nil {
				return nil, err
			}
			height, err := read()
			if err != nil {
				return nil, err
			}
			segs = append(segs, Segment{
				ID:        uint16(id),
				FirstLeaf: uint32(first),
				LastLeaf:  uint32(last),
				Height:    uint32(height),
			})
		}
		s.Levels = append(s.Levels, Level{NMerge: int(nMerge), Segments: segs})
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
