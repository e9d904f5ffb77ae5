// Package chunkdispatch implements chunk-parallel kernel dispatch over
// chunked queries (§4.9): fixed-size row-range chunking, a worker-pool or
// host-thread execution path depending on shared-memory availability, and
// write-set validation before committing change tracking.
package chunkdispatch

import (
	"fmt"
	"sync"

	ecs "github.com/forgeworks/ecscore"
)

// KernelResult is what a kernel invocation reports back: the column
// indices (by TypeID) it actually wrote this call, for validation against
// its registered writes (§4.9 point 5).
type KernelResult struct {
	Written []ecs.TypeID
}

// KernelFunc is a pure function of (columns, length, params) — it must
// never call back into the World (§4.9: "They may not call into the
// world").
type KernelFunc func(cols map[ecs.TypeID]ecs.ChunkColumnView, length int, params any) (KernelResult, error)

// Registration is one kernel's full registration: a host-thread
// implementation, an optional worker-side implementation for the shared-
// memory dispatch path, and its declared write set.
type Registration struct {
	ID     string
	Reads  []ecs.TypeID
	Writes []ecs.TypeID
	Host   KernelFunc
	Worker KernelFunc
}

// Columns returns the full set of column typeIds this kernel needs
// addressed in its payload: its declared reads plus its declared writes.
func (r Registration) Columns() []ecs.TypeID {
	out := make([]ecs.TypeID, 0, len(r.Reads)+len(r.Writes))
	out = append(out, r.Reads...)
	out = append(out, r.Writes...)
	return out
}

// Registry holds every registered kernel, keyed by id.
type Registry struct {
	mu    sync.RWMutex
	byID  map[string]Registration
}

// NewRegistry returns an empty kernel registry.
func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]Registration)}
}

// RegisterHostKernel registers (or replaces) kernelID's host-thread
// implementation and declared read/write columns.
func (r *Registry) RegisterHostKernel(kernelID string, reads, writes []ecs.TypeID, fn KernelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.byID[kernelID]
	reg.ID = kernelID
	reg.Reads = append([]ecs.TypeID(nil), reads...)
	reg.Writes = append([]ecs.TypeID(nil), writes...)
	reg.Host = fn
	r.byID[kernelID] = reg
}

// RegisterWorkerKernel registers kernelID's worker-side implementation for
// the shared-memory dispatch path. Safe to call before or after
// RegisterHostKernel.
func (r *Registry) RegisterWorkerKernel(kernelID string, reads, writes []ecs.TypeID, fn KernelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg := r.byID[kernelID]
	reg.ID = kernelID
	if reg.Writes == nil {
		reg.Reads = append([]ecs.TypeID(nil), reads...)
		reg.Writes = append([]ecs.TypeID(nil), writes...)
	}
	reg.Worker = fn
	r.byID[kernelID] = reg
}

// Lookup returns kernelID's registration, if any.
func (r *Registry) Lookup(kernelID string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.byID[kernelID]
	return reg, ok
}

// MissingKernelError reports a dispatch attempt against an unregistered
// kernel id.
type MissingKernelError struct{ KernelID string }

func (e MissingKernelError) Error() string {
	return fmt.Sprintf("chunkdispatch: no kernel registered for id %q", e.KernelID)
}

// WriteMismatchError reports that a kernel's runtime-reported written set
// disagreed with its registered writes (§4.9 point 5).
type WriteMismatchError struct {
	KernelID string
	Declared []ecs.TypeID
	Reported []ecs.TypeID
}

func (e WriteMismatchError) Error() string {
	return fmt.Sprintf("chunkdispatch: kernel %q reported writes %v, declared %v", e.KernelID, e.Reported, e.Declared)
}

// DataRaceError reports overlapping concurrent payloads addressing the
// same rows of a written column (§4.9 point 2).
type DataRaceError struct {
	TypeID     ecs.TypeID
	RangeAStart, RangeAEnd int
	RangeBStart, RangeBEnd int
}

func (e DataRaceError) Error() string {
	return fmt.Sprintf("chunkdispatch: overlapping write ranges on typeId %d: [%d,%d) vs [%d,%d)",
		e.TypeID, e.RangeAStart, e.RangeAEnd, e.RangeBStart, e.RangeBEnd)
}

func validateWritten(reg Registration, result KernelResult) error {
	declared := make(map[ecs.TypeID]struct{}, len(reg.Writes))
	for _, t := range reg.Writes {
		declared[t] = struct{}{}
	}
	reported := make(map[ecs.TypeID]struct{}, len(result.Written))
	for _, t := range result.Written {
		reported[t] = struct{}{}
	}
	if len(declared) != len(reported) {
		return WriteMismatchError{KernelID: reg.ID, Declared: reg.Writes, Reported: result.Written}
	}
	for t := range declared {
		if _, ok := reported[t]; !ok {
			return WriteMismatchError{KernelID: reg.ID, Declared: reg.Writes, Reported: result.Written}
		}
	}
	return nil
}
