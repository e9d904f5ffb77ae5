package chunkdispatch

import ecs "github.com/forgeworks/ecscore"

// validateNoOverlap checks that no two chunks in the same dispatch batch
// address overlapping rows of the same declared-write column, typed or
// array-backed (§4.9 point 2). Chunks built from
// one ChunkedQuery.Plan call never overlap by construction (each row
// belongs to exactly one chunk), so this is primarily a defense against a
// caller accidentally dispatching two overlapping chunk sets against the
// same write-declared columns; it runs unconditionally since it is cheap
// relative to kernel execution.
func validateNoOverlap(chunks []ecs.ChunkView, writes []ecs.TypeID) error {
	writeSet := make(map[ecs.TypeID]struct{}, len(writes))
	for _, t := range writes {
		writeSet[t] = struct{}{}
	}

	type rowRange struct {
		archetypeID    uint32
		start, end int
	}
	seen := make(map[ecs.TypeID][]rowRange)

	for _, c := range chunks {
		for t := range writeSet {
			if _, ok := c.Columns[t]; !ok {
				continue
			}
			candidate := rowRange{archetypeID: c.Archetype.ID(), start: c.Start, end: c.End}
			for _, prior := range seen[t] {
				if prior.archetypeID == candidate.archetypeID && rangesOverlap(prior.start, prior.end, candidate.start, candidate.end) {
					return DataRaceError{
						TypeID:      t,
						RangeAStart: prior.start, RangeAEnd: prior.end,
						RangeBStart: candidate.start, RangeBEnd: candidate.end,
					}
				}
			}
			seen[t] = append(seen[t], candidate)
		}
	}
	return nil
}

func rangesOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}
