package chunkdispatch

import (
	"context"

	ecs "github.com/forgeworks/ecscore"
)

// ForEachChunkParallel is the chunk-parallel kernel dispatch entry point
// (§4.9): it plans chunks from query, runs kernelID over every chunk
// either inline (no shared memory / no pool) or through pool's worker
// goroutines (shared memory available), validates the kernel's reported
// writes against its registration, and commits change tracking for every
// declared write column.
func ForEachChunkParallel(
	ctx context.Context,
	w *ecs.World,
	registry *Registry,
	query *ecs.ChunkedQuery,
	kernelID string,
	params any,
	pool *Pool,
) error {
	reg, ok := registry.Lookup(kernelID)
	if !ok {
		return MissingKernelError{KernelID: kernelID}
	}

	chunks := query.Plan(w, reg.Columns())
	if err := validateNoOverlap(chunks, reg.Writes); err != nil {
		return err
	}

	useShared := ecs.SharedMemoryAvailable() && pool != nil && reg.Worker != nil
	if useShared {
		if err := dispatchShared(ctx, pool, reg, chunks, params); err != nil {
			return err
		}
	} else {
		if err := dispatchHost(reg, chunks, params); err != nil {
			return err
		}
	}

	commitChangeTracking(w, reg.Writes, chunks)
	return nil
}

func dispatchHost(reg Registration, chunks []ecs.ChunkView, params any) error {
	for _, c := range chunks {
		result, err := reg.Host(c.Columns, c.Len(), params)
		if err != nil {
			return err
		}
		if err := validateWritten(reg, result); err != nil {
			return err
		}
	}
	return nil
}

func dispatchShared(ctx context.Context, pool *Pool, reg Registration, chunks []ecs.ChunkView, params any) error {
	runID := pool.NewRun()
	replies := make([]<-chan jobResult, len(chunks))
	for i, c := range chunks {
		replies[i] = pool.Submit(ctx, runID, i, reg.Worker, c.Columns, c.Len(), params)
	}
	for i, rc := range replies {
		select {
		case <-ctx.Done():
			pool.Abort(runID)
			return ctx.Err()
		case res, ok := <-rc:
			if !ok {
				pool.Abort(runID)
				return ctx.Err()
			}
			if res.jobID != i || res.runID != runID {
				// Defensive: a reply keyed to a different job/run slipped
				// through despite Submit's per-call channel; skip it
				// rather than trust the data.
				continue
			}
			if res.err != nil {
				pool.Abort(runID)
				return res.err
			}
			if err := validateWritten(reg, res.result); err != nil {
				pool.Abort(runID)
				return err
			}
		}
	}
	return nil
}

// commitChangeTracking marks every declared write column's affected rows
// as changed at the current frame, after either dispatch path completes
// successfully (§4.9 point 4).
func commitChangeTracking(w *ecs.World, writes []ecs.TypeID, chunks []ecs.ChunkView) {
	frame := w.Frame()
	for _, c := range chunks {
		for _, t := range writes {
			col, ok := c.Archetype.Column(t)
			if !ok {
				continue
			}
			col.MarkWrittenRange(c.Start, c.End, frame)
		}
	}
}
