package fts5

// Stats summarizes one index's structural state, the counters
// internal/debugsrv's admin surface exposes for operational inspection.
type Stats struct {
	Rows         int64
	Levels       int
	Segments     int
	WriteCounter uint64
	Cookie       uint32
}

// Stats reports the index's current structural counters.
func (idx *Index) Stats() Stats {
	return Stats{
		Rows:         idx.averages.TotalRowCount,
		Levels:       len(idx.structure.Levels),
		Segments:     idx.structure.NumSegments(),
		WriteCounter: idx.structure.WriteCounter,
		Cookie:       idx.structure.Cookie,
	}
}
