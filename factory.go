package ecs

// factory implements the teacher's package-global factory pattern,
// generalized from warehouse's Storage/Query/Cursor trio to this core's own
// World/Query/CommandBuffer construction surface.
type factory struct{}

// Factory is the global factory instance for constructing core values,
// mirroring the teacher's exported package-level Factory variable.
var Factory factory

// NewWorld constructs a fresh World.
func (f factory) NewWorld() *World { return NewWorld() }

// NewQuery constructs a Query over the given required/forbidden type sets.
func (f factory) NewQuery(required, forbidden []TypeID) *Query {
	return NewQuery(required, forbidden)
}

// NewChunkedQuery constructs a ChunkedQuery over q with the given chunk size.
func (f factory) NewChunkedQuery(q *Query, chunkSize int) *ChunkedQuery {
	return NewChunkedQuery(q, chunkSize)
}

// NewCommandBuffer constructs an empty CommandBuffer.
func (f factory) NewCommandBuffer() *CommandBuffer { return NewCommandBuffer() }

// NewGUIDAllocator constructs a GUID allocator seeded deterministically.
func (f factory) NewGUIDAllocator(seed uint64) *GUIDAllocator { return NewGUIDAllocator(seed) }
