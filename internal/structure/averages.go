package structure

import (
	"fmt"

	"github.com/tursodatabase/go-fts5/internal/varint"
)

// Averages is the per-column token-count snapshot persisted at the
// reserved rowid 1, used by rank functions (BM25's avgdl term).
//
// Wire format per spec.md §3: varint(totalRowCount) followed by
// varint(columnTokenCount) once per configured column, in column order.
type Averages struct {
	TotalRowCount   int64
	ColumnTokens    []int64
}

// Encode serializes the averages record.
func (a *Averages) Encode() []byte {
	var dst []byte
	dst, _ = varint.Write(dst, uint64(a.TotalRowCount))
	for _, n := range a.ColumnTokens {
		dst, _ = varint.Write(dst, uint64(n))
	}
	return dst
}

// DecodeAverages parses an averages record for a table with nCol columns.
func DecodeAverages(data []byte, nCol int) (*Averages, error) {
	a := &Averages{ColumnTokens: make([]int64, nCol)}
	off := 0

	v, n := varint.Read(data[off:])
	if n == 0 {
		return nil, fmt.Errorf("structure: corrupt averages record")
	}
	a.TotalRowCount = int64(v)
	off += n

	for i := 0; i < nCol; i++ {
		if off >= len(data) {
			return nil, fmt.Errorf("structure: averages record truncated at column %d", i)
		}
		v, n := varint.Read(data[off:])
		if n == 0 {
			return nil, fmt.Errorf("structure: corrupt averages record at column %d", i)
		}
		a.ColumnTokens[i] = int64(v)
		off += n
	}
	return a, nil
}

// AvgColumnSize returns the mean token count of column i across all rows,
// or 0 if the table is empty.
func (a *Averages) AvgColumnSize(i int) float64 {
	if a.TotalRowCount == 0 || i < 0 || i >= len(a.ColumnTokens) {
		return 0
	}
	return float64(a.ColumnTokens[i]) / float64(a.TotalRowCount)
}

// AddRow updates the running totals when a row with the given per-column
// token counts is inserted.
func (a *Averages) AddRow(colTokens []int64) {
	a.TotalRowCount++
	for i, n := range colTokens {
		if i < len(a.ColumnTokens) {
			a.ColumnTokens[i] += n
		}
	}
}

// RemoveRow reverses AddRow, used when a row is deleted.
func (a *Averages) RemoveRow(colTokens []int64) {
	a.TotalRowCount--
	for i, n := range colTokens {
		if i < len(a.ColumnTokens) {
			a.ColumnTokens[i] -= n
		}
	}
}
