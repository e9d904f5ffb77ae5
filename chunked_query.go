package ecs

// ChunkedQuery resolves a Query into fixed-size row-range chunks, never
// crossing an archetype boundary, for chunk-parallel kernel dispatch
// (§4.9). Each ChunkView exposes both the archetype/row-range it covers and
// the zero-copy-or-cloned column views a kernel actually touches.
type ChunkedQuery struct {
	query     *Query
	chunkSize int
}

// NewChunkedQuery builds a chunked query over q with the given fixed chunk
// size. chunkSize <= 0 is treated as 1 to guarantee forward progress.
func NewChunkedQuery(q *Query, chunkSize int) *ChunkedQuery {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &ChunkedQuery{query: q, chunkSize: chunkSize}
}

// ChunkView is one contiguous row range within one archetype, plus the
// column views requested for it.
type ChunkView struct {
	Archetype *Archetype
	Start     int
	End       int
	Columns   map[TypeID]ChunkColumnView
}

// Len reports the number of rows this chunk covers.
func (c ChunkView) Len() int { return c.End - c.Start }

// Entities returns the entity handles covered by this chunk, in row order.
func (c ChunkView) Entities() []Entity {
	return c.Archetype.Entities()[c.Start:c.End]
}

// Plan resolves the query's matching archetypes and splits each into
// fixed-size row-range chunks, requesting a ChunkColumnView for every
// typeId in want per chunk. Chunk order is archetype order (stable per
// §4.5) then ascending row range within each archetype.
func (q *ChunkedQuery) Plan(w *World, want []TypeID) []ChunkView {
	archetypes := q.query.Match(w)
	var chunks []ChunkView
	for _, a := range archetypes {
		n := a.Len()
		for start := 0; start < n; start += q.chunkSize {
			end := start + q.chunkSize
			if end > n {
				end = n
			}
			cols := make(map[TypeID]ChunkColumnView, len(want))
			for _, t := range want {
				col, ok := a.Column(t)
				if !ok {
					continue
				}
				cols[t] = col.SliceDescriptor(start, end)
			}
			chunks = append(chunks, ChunkView{Archetype: a, Start: start, End: end, Columns: cols})
		}
	}
	return chunks
}

// ChunkSize returns the configured fixed chunk size.
func (q *ChunkedQuery) ChunkSize() int { return q.chunkSize }
